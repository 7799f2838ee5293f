package app

import (
	"errors"
	"strings"
)

var (
	// ErrAuthentication covers both unknown email and bad password so that
	// responses do not enable account enumeration.
	ErrAuthentication = errors.New("Incorrect email address or password")

	// ErrTokenInvalid is returned when a bearer token fails verification:
	// bad signature, wrong issuer, expired, or malformed.
	ErrTokenInvalid = errors.New("invalid token")
)

// ValidationError is a business-rule violation: duplicate, missing target,
// unauthorized mutation, inactive principal, empty update. It maps to 400
// with a single message.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// FieldError describes one request-field schema failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationError aggregates request body schema failures. It maps to
// 400 with a list of {field, message} entries.
type FieldValidationError struct {
	Fields []FieldError
}

func (e FieldValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}
