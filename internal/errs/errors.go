// Package errs defines the error taxonomy shared by the API client and the
// quiz attempt session. Callers match on the concrete types with errors.As.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// NetworkError reports a transport failure: no response was received.
type NetworkError struct {
	// Op names the operation, e.g. "GET /quizzes/".
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError reports absent, expired or rejected credentials that could not
// be recovered by the single renewal attempt.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// RequestError is any non-2xx response. Message is the server's "error"
// field when present, otherwise derived from the status.
type RequestError struct {
	StatusCode int
	Message    string
	// Body is the raw response payload.
	Body []byte
}

func (e *RequestError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// NewRequestError builds a RequestError, falling back to the status text
// when the server supplied no message.
func NewRequestError(status int, message string, body []byte) *RequestError {
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return &RequestError{StatusCode: status, Message: message, Body: body}
}

// ValidationError reports rejected input, either checked locally before a
// request or returned by the server with a 400.
type ValidationError struct {
	Message string
	// Fields maps an input name to its messages.
	Fields map[string][]string
	// Err is the underlying response error for server-side rejections.
	Err *RequestError
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// Field returns the joined messages for one input, or "".
func (e *ValidationError) Field(name string) string {
	return strings.Join(e.Fields[name], "; ")
}

// NewFieldError is a local validation failure on a single input.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("%s: %s", field, message),
		Fields:  map[string][]string{field: {message}},
	}
}

// NotFoundError reports that a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
	Err      *RequestError
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// LogicError means the caller broke a state contract. It is a bug in the
// caller, never a user-facing failure.
type LogicError struct {
	Op     string
	Reason string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// IncompleteAnswerError is returned when navigation or submission is
// attempted before the gating question has an answer.
type IncompleteAnswerError struct {
	QuestionID string
	Index      int
}

func (e *IncompleteAnswerError) Error() string {
	return fmt.Sprintf("question %d is not answered", e.Index+1)
}

// IsAuth reports whether err ends the authenticated session.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
