package util

import "github.com/google/uuid"

// NewID returns a fresh request id.
func NewID() string {
	return uuid.NewString()
}
