package app

import (
	"fmt"
	"strings"

	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// AuthService validates credentials and resolves the request principal from
// a bearer token.
type AuthService struct {
	store  store.Store
	hasher auth.Hasher
	tokens *TokenService
}

// NewAuthService wires the credential and token collaborators.
func NewAuthService(st store.Store, hasher auth.Hasher, tokens *TokenService) *AuthService {
	return &AuthService{store: st, hasher: hasher, tokens: tokens}
}

// Authenticate returns the user matching the credentials. It does not
// distinguish an unknown email from a bad password.
func (s *AuthService) Authenticate(email, password string) (domain.User, error) {
	user, ok, err := s.store.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrAuthentication
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return domain.User{}, ErrAuthentication
	}
	return user, nil
}

// Login authenticates and issues a bearer token for the user.
func (s *AuthService) Login(email, password string) (domain.User, string, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// PrincipalFromToken resolves the user named by the token subject. It does
// not check the active flag; mutating operations guard that themselves, and
// read flows permit inactive principals.
func (s *AuthService) PrincipalFromToken(token string) (domain.User, error) {
	email, err := s.tokens.Subject(token)
	if err != nil {
		return domain.User{}, err
	}
	user, ok, err := s.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrAuthentication
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
