package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed submission.
type Kind string

const (
	KindServerMessage  Kind = "server-message"
	KindBadRequest     Kind = "bad-request"
	KindServerError    Kind = "server-error"
	KindNetworkFailure Kind = "network-failure"
	KindUnknown        Kind = "unknown"
)

// Messages is the user-facing text for each classified failure.
type Messages struct {
	BadRequest     string
	ServerError    string
	NetworkFailure string
	Fallback       string
}

// DefaultMessages returns the stock wording shown to users.
func DefaultMessages() Messages {
	return Messages{
		BadRequest:     "Invalid request. Please check your images and try again.",
		ServerError:    "Server error. Please try again later.",
		NetworkFailure: "Network error. Please check your connection and try again.",
		Fallback:       "Error processing images. Please try again.",
	}
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	if m.BadRequest == "" {
		m.BadRequest = def.BadRequest
	}
	if m.ServerError == "" {
		m.ServerError = def.ServerError
	}
	if m.NetworkFailure == "" {
		m.NetworkFailure = def.NetworkFailure
	}
	if m.Fallback == "" {
		m.Fallback = def.Fallback
	}
	return m
}

// Error is returned by Client.Submit. Message is always safe to show to the user.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ocr submit failed (%s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ", HTTP %d", e.StatusCode)
	}
	fmt.Fprintf(&b, "): %s", e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the display text for this failure.
func (e *Error) UserMessage() string {
	return e.Message
}

// UserMessage returns the text to surface for err. Errors not produced by
// this package fall back to the generic message.
func UserMessage(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Message != "" {
		return te.UserMessage()
	}
	return DefaultMessages().Fallback
}

// classifyResponse maps a non-2xx response. A server-supplied message wins,
// then the status class, then the fallback.
func (m Messages) classifyResponse(status int, payload errorPayload) *Error {
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return &Error{Kind: KindServerMessage, Message: msg, StatusCode: status}
	}

	switch {
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return &Error{Kind: KindBadRequest, Message: m.BadRequest, StatusCode: status}
	case status >= http.StatusInternalServerError:
		return &Error{Kind: KindServerError, Message: m.ServerError, StatusCode: status}
	}

	return &Error{Kind: KindUnknown, Message: m.Fallback, StatusCode: status}
}

// classifyNoResponse maps a failure where no response arrived.
func (m Messages) classifyNoResponse(err error) *Error {
	return &Error{Kind: KindNetworkFailure, Message: m.NetworkFailure, Err: err}
}

func (m Messages) fallback(status int, err error) *Error {
	return &Error{Kind: KindUnknown, Message: m.Fallback, StatusCode: status, Err: err}
}

// isCanceled reports whether err came from the caller giving up rather than
// the network.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
