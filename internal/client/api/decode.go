package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/QuizDesk/internal/errs"
)

// decodeResponse maps a non-2xx status onto the error taxonomy or decodes a
// successful body into out.
func decodeResponse(req request, status int, body []byte, out any) error {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.op(), err)
		}
		return nil
	}
	return responseError(status, body)
}

func responseError(status int, body []byte) error {
	reqErr := errs.NewRequestError(status, serverMessage(body), body)
	switch status {
	case http.StatusNotFound:
		return &errs.NotFoundError{Resource: "resource", Err: reqErr}
	case http.StatusBadRequest:
		fields := fieldErrors(body)
		msg := serverMessage(body)
		if msg == "" && len(fields) == 0 {
			msg = reqErr.Message
		}
		return &errs.ValidationError{Message: msg, Fields: fields, Err: reqErr}
	case http.StatusUnauthorized:
		return &errs.AuthError{Message: reqErr.Message, Err: reqErr}
	default:
		return reqErr
	}
}

// serverMessage extracts the human-readable message the backend puts in
// "error" (or "detail" for framework-generated responses).
func serverMessage(body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	return strings.TrimSpace(payload.Detail)
}

// fieldErrors collects {"field": ["message", ...]} entries of a validation
// payload. Values of any other shape are ignored.
func fieldErrors(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	var fields map[string][]string
	for name, value := range raw {
		if name == "error" || name == "detail" {
			continue
		}
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err != nil || len(msgs) == 0 {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		fields[name] = msgs
	}
	return fields
}
