package apperror

import (
	"errors"
	"fmt"
)

// Code classifies a failure for the HTTP layer. Only validation,
// not-found, terminal-state and in-flight failures carry their message
// to callers; everything else collapses to a generic response so
// internal detail does not leak. Quota exhaustion is not an error here:
// it downgrades the turn to a fallback payload the controller returns
// with a 402.
type Code string

const (
	CodeValidation    Code = "VALIDATION"
	CodeNotFound      Code = "NOT_FOUND"
	CodeTerminalState Code = "TERMINAL_STATE"
	CodeCycleInFlight Code = "CYCLE_IN_FLIGHT"
	CodeRetrieval     Code = "RETRIEVAL"
	CodeReasoning     Code = "REASONING"
	CodeUnparsable    Code = "UNPARSABLE_RESPONSE"
	CodeStorage       Code = "STORAGE"
)

type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewTerminalState(message string) *AppError {
	return &AppError{Code: CodeTerminalState, Message: message}
}

func NewCycleInFlight(message string) *AppError {
	return &AppError{Code: CodeCycleInFlight, Message: message}
}

func NewRetrieval(err error) *AppError {
	return &AppError{Code: CodeRetrieval, Message: "vector search failed", Err: err}
}

func NewReasoning(err error) *AppError {
	return &AppError{Code: CodeReasoning, Message: "reasoning call failed", Err: err}
}

func NewUnparsable(err error) *AppError {
	return &AppError{Code: CodeUnparsable, Message: "reasoning response unparsable", Err: err}
}

func NewStorage(err error) *AppError {
	return &AppError{Code: CodeStorage, Message: "storage operation failed", Err: err}
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
