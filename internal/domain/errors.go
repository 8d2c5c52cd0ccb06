package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeWorkflow   ErrorType = "workflow"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError carries a classified failure. For validation and workflow
// errors Message is written for the person using the upload form; the other
// types describe the environment and are only logged.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// UserMessage returns Message when it is meant for display, otherwise "".
func (e *DomainError) UserMessage() string {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeWorkflow:
		return e.Message
	}
	return ""
}

// IsType reports whether err wraps a DomainError of type t.
func IsType(err error, t ErrorType) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Type == t
}

func newError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

func ValidationError(message string, err error) *DomainError {
	return newError(ErrorTypeValidation, message, err)
}

func TransportError(message string, err error) *DomainError {
	return newError(ErrorTypeTransport, message, err)
}

func WorkflowError(message string, err error) *DomainError {
	return newError(ErrorTypeWorkflow, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return newError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return newError(ErrorTypeIO, message, err)
}
