package domain

import "errors"

var (
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrDuplicateUsername  = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	ErrAccountNotFound    = errors.New("account not found")
	ErrNoChangeApplied    = errors.New("no changes applied")
	ErrInvalidTheme       = errors.New("invalid theme")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrPasswordReused     = errors.New("new password must differ from the old password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// ValidationError carries the user-facing message of the first input rule
// that rejected a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
