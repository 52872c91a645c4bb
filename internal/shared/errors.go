package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates an email address already in use.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserError carries a message that is safe to show to the end user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// NewUserError wraps a user-facing message into an error.
func NewUserError(message string) error {
	return &UserError{Message: message}
}

// UserSafeMessage returns a message suitable for rendering in a page. Known
// error kinds map to specific sentences; anything else collapses into a
// generic failure so internals never leak.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	switch {
	case errors.As(err, &userErr):
		return userErr.Message
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrDuplicateEmail):
		return "An account with this email already exists."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong. Please try again."
	}
}
