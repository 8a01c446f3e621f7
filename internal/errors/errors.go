package errors

import (
	"errors"
	"fmt"
)

// Common error types for better error handling
var (
	// Session errors
	ErrNoSession      = errors.New("no playback session for guild")
	ErrServiceStopped = errors.New("service is stopped")

	// Resolution errors
	ErrResolutionFailed = errors.New("failed to resolve media")
	ErrNotFound         = errors.New("no media found for query")
	ErrTimeout          = errors.New("operation timed out")

	// Voice errors
	ErrTransportUnavailable = errors.New("voice transport unavailable")
	ErrNotInVoiceChannel    = errors.New("you must be in a voice channel")
	ErrAlreadyConnected     = errors.New("already connected to voice channel")
	ErrNotConnected         = errors.New("not connected to voice channel")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// UserError wraps an error with a user-friendly message
type UserError struct {
	Err     error
	Message string
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) UserMessage() string {
	return e.Message
}

// NewUserError creates a new user error
func NewUserError(err error, message string) *UserError {
	return &UserError{
		Err:     err,
		Message: message,
	}
}

// WrapUserError wraps an error with a formatted user-friendly message
func WrapUserError(err error, format string, args ...interface{}) *UserError {
	return &UserError{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	}
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}

	switch {
	case errors.Is(err, ErrNoSession):
		return "🤷 Nothing to do"
	case errors.Is(err, ErrNotFound):
		return "🔍 Couldn't find anything for that query"
	case errors.Is(err, ErrResolutionFailed):
		return "❌ Couldn't load that track. Please try another link"
	case errors.Is(err, ErrNotInVoiceChannel), errors.Is(err, ErrTransportUnavailable):
		return "😠 Voice channel not found!"
	case errors.Is(err, ErrAlreadyConnected):
		return "😡 I'm already connected!"
	case errors.Is(err, ErrNotConnected):
		return "😤 I'm not even connected!"
	case errors.Is(err, ErrInvalidInput):
		return "⚠️ Invalid input"
	case errors.Is(err, ErrTimeout):
		return "⏱️ Operation timed out. Please try again"
	default:
		return "❌ An error occurred. Please try again later"
	}
}
