// Package common holds the error types, retry loop and logging setup shared
// by every package.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a stored item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHistoryUnavailable means the ground truth sheet could not be read.
	ErrHistoryUnavailable = errors.New("history unavailable")
	// ErrSinkWrite means a recorded bet could not be written to the sheet.
	ErrSinkWrite = errors.New("sink write failed")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError carries a message meant for the operator alongside the
// underlying cause, which is only logged.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError wraps err with a message for the operator.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}
