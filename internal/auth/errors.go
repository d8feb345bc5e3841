package auth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("password confirmation must match password")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// Client-facing rejection reasons. They are deliberately coarse.
const (
	ReasonAccessRequired  = "Access token required"
	ReasonSessionInvalid  = "Session no longer valid"
	ReasonRefreshRequired = "Refresh token required"
	ReasonInvalidSession  = "Invalid session"
	ReasonSessionNotFound = "Session not found"
)

// UnauthenticatedError is returned by the guard and by sign-out. Reason is safe
// to show to the client; it never names the underlying token failure.
type UnauthenticatedError struct {
	Reason string
}

func unauthenticated(reason string) error { return &UnauthenticatedError{Reason: reason} }

func (e *UnauthenticatedError) Error() string { return e.Reason }

func (e *UnauthenticatedError) Is(target error) bool { return target == ErrUnauthenticated }

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed input validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
