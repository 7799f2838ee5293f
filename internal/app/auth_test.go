package app

import (
	"errors"
	"testing"

	"forumhub/pkg/auth"
	"forumhub/pkg/store"
)

func newAuthFixture(t *testing.T) (*AuthService, *UserService) {
	t.Helper()
	st := store.NewMemoryStore()
	hasher := auth.NewBcryptHasher()
	users := NewUserService(st, hasher)
	return NewAuthService(st, hasher, NewTokenService("test-secret")), users
}

func TestLoginIssuesTokenWithEmailSubject(t *testing.T) {
	authSvc, users := newAuthFixture(t)
	mustRegister(t, users, "Ana", "ana@x.io", "p4ss")

	user, token, err := authSvc.Login("Ana@X.io", "p4ss")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "ana@x.io" {
		t.Fatalf("unexpected user: %+v", user)
	}

	subject, err := authSvc.tokens.Subject(token)
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	if subject != "ana@x.io" {
		t.Fatalf("unexpected subject: %q", subject)
	}
}

func TestLoginDoesNotDistinguishUnknownEmailFromBadPassword(t *testing.T) {
	authSvc, users := newAuthFixture(t)
	mustRegister(t, users, "Ana", "ana@x.io", "p4ss")

	_, _, unknownErr := authSvc.Login("nobody@x.io", "p4ss")
	_, _, badPassErr := authSvc.Login("ana@x.io", "wrong")
	if !errors.Is(unknownErr, ErrAuthentication) || !errors.Is(badPassErr, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for both, got %v and %v", unknownErr, badPassErr)
	}
}

func TestPrincipalFromTokenResolvesEvenInactiveUsers(t *testing.T) {
	authSvc, users := newAuthFixture(t)
	ana := mustRegister(t, users, "Ana", "ana@x.io", "p4ss")
	_, token, err := authSvc.Login("ana@x.io", "p4ss")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := users.SoftDelete(ana); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// The token stays resolvable; the mutation guards reject the principal.
	principal, err := authSvc.PrincipalFromToken(token)
	if err != nil {
		t.Fatalf("principal: %v", err)
	}
	if principal.Active {
		t.Fatal("expected inactive principal")
	}

	if _, err := authSvc.PrincipalFromToken("garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
