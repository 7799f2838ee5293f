package app

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"forumhub/pkg/domain"
)

const (
	tokenIssuer = "ForumHub"
	tokenTTL    = 2 * time.Hour
)

// tokenZone is the fixed offset the expiration instant is computed in.
var tokenZone = time.FixedZone("-03:00", -3*60*60)

// TokenService issues and verifies HS256 bearer tokens whose subject is the
// user's email. The signing secret is process-wide state loaded at startup
// and never mutated afterward.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService builds the service around the configured signing secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue returns a signed token for the user, expiring two hours from now.
func (s *TokenService) Issue(user domain.User) (string, error) {
	now := s.now().In(tokenZone)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   user.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Subject validates signature, issuer, and expiration and returns the
// subject claim. Any verification failure comes back as ErrTokenInvalid.
func (s *TokenService) Subject(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
