package app

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// UserService handles registration, self-update, soft deletion, and the
// active-principal guard every mutation runs through.
type UserService struct {
	store  store.Store
	hasher auth.Hasher
}

// NewUserService wires storage and the password hasher.
func NewUserService(st store.Store, hasher auth.Hasher) *UserService {
	return &UserService{store: st, hasher: hasher}
}

// UserUpdate carries the optional self-update fields. Password, when
// present, arrives raw and is hashed before assignment.
type UserUpdate struct {
	Name     *string
	Password *string
}

// Register stores a new active user with a hashed password. The email must
// not belong to any account, active or not.
func (s *UserService) Register(name, email, rawPassword string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	var fields []FieldError
	if name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "must not be blank"})
	}
	switch {
	case email == "":
		fields = append(fields, FieldError{Field: "email", Message: "must not be blank"})
	case !validEmail(email):
		fields = append(fields, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if rawPassword == "" {
		fields = append(fields, FieldError{Field: "password", Message: "must not be blank"})
	}
	if len(fields) > 0 {
		return domain.User{}, FieldValidationError{Fields: fields}
	}

	if _, ok, err := s.store.GetUserByEmail(email); err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	} else if ok {
		return domain.User{}, ValidationError{Message: "Email já cadastrado"}
	}
	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.SaveUser(&user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, ValidationError{Message: "Email já cadastrado"}
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// UpdateSelf applies the non-nil fields to the principal's own account.
func (s *UserService) UpdateSelf(principal domain.User, upd UserUpdate) (domain.User, error) {
	if err := s.EnsureActive(principal); err != nil {
		return domain.User{}, err
	}
	if upd.Name == nil && upd.Password == nil {
		return domain.User{}, ValidationError{Message: "É necessário informar ao menos um campo para atualização."}
	}
	var hash *string
	if upd.Password != nil {
		h, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}
	principal.Update(upd.Name, hash)
	if err := s.store.SaveUser(&principal); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return principal, nil
}

// SoftDelete deactivates the principal's own account. A second call fails
// because the guard rejects inactive principals.
func (s *UserService) SoftDelete(principal domain.User) error {
	if err := s.EnsureActive(principal); err != nil {
		return err
	}
	principal.Deactivate()
	if err := s.store.SaveUser(&principal); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// ListActive returns a page of active users plus the total count.
func (s *UserService) ListActive(p store.Pagination) ([]domain.User, int64, error) {
	return s.store.ListActiveUsers(p)
}

// ListOwnTopics returns a page of the principal's topics plus the total.
func (s *UserService) ListOwnTopics(principal domain.User, p store.Pagination) ([]domain.Topic, int64, error) {
	return s.store.ListTopicsByAuthor(principal.ID, p)
}

// EnsureActive rejects mutations coming from a soft-deleted principal.
func (s *UserService) EnsureActive(u domain.User) error {
	if !u.Active {
		return ValidationError{Message: "user inactive"}
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
