package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPersistPendingRequest  = errors.New("failed to save auth request")
	ErrPendingRequestNotFound = errors.New("auth request not found")
	ErrLinkNotFound           = errors.New("account link not found")
	ErrLinkExists             = errors.New("account link already exists")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountCreateConflict  = errors.New("account already exists")
	ErrSessionNotFound        = errors.New("session not found")
)

// Error codes carried by *Error. They follow the numbering hosted
// backends commonly use so clients can branch on them.
const (
	CodeInternal       = 1
	CodeObjectNotFound = 101
	CodeDuplicateValue = 137
	CodeUsernameTaken  = 202
)

// Error is a store failure with a structured code and message.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the structured code.
func (e *Error) ErrorCode() int {
	return e.Code
}

// ErrorMessage returns the human-readable message without the cause.
func (e *Error) ErrorMessage() string {
	return e.Message
}

func internalError(op string, err error) error {
	return &Error{Code: CodeInternal, Message: op, Err: err}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
