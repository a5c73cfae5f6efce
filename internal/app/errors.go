package app

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is safe to show to end users.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	// ErrEmailTaken is returned when registration or a profile update would
	// reuse an email that another account already holds.
	ErrEmailTaken = errors.New("email already registered")

	ErrAccountNotFound = errors.New("account not found")
	ErrPostNotFound    = errors.New("post not found")

	// ErrNotPostAuthor is returned when a requester tries to delete a post
	// they did not author.
	ErrNotPostAuthor = errors.New("only the author can delete this post")
)

// ValidationError reports malformed input with per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid input: " + strings.Join(names, ", ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
