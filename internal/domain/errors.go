package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned when no progress record exists for a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrAwardNotFound indicates a badge or achievement id is unknown.
	ErrAwardNotFound = errors.New("award not found")
	// ErrLimitExceeded is returned when a user has used all attempts for a quiz.
	ErrLimitExceeded = errors.New("maximum attempts reached")
	// ErrTimeExceeded is returned when a submission took longer than the quiz allows.
	ErrTimeExceeded = errors.New("time limit exceeded")
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation error")
)

// ValidationError describes a malformed quiz or awardable definition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrAwardNotFound)
}
