package contract

import "errors"

var (
	// Completion service failures (see IsTransient for retry eligibility).
	ErrServiceUnavailable = errors.New("completion service unavailable")
	ErrRateLimited        = errors.New("completion service rate limited")
	ErrAuth               = errors.New("completion service authentication failed")
	ErrTimeout            = errors.New("completion service timed out")

	// ErrUnknownOperation marks a tool-call request for an operation outside
	// the closed calendar set. This is a contract error, not a user error.
	ErrUnknownOperation = errors.New("unknown calendar operation")

	// ErrCollaborator wraps calendar-side failures. Never fatal to a turn.
	ErrCollaborator = errors.New("calendar collaborator failure")

	ErrValidation      = errors.New("validation failed")
	ErrEmptyCompletion = errors.New("completion returned no usable content")
)

// IsTransient reports whether a completion failure may be retried.
// Authentication and malformed-request failures are terminal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}
