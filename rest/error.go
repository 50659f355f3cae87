package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is returned for every response outside the 2xx range.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	// Message is the exchange's "message" field when the body carries one.
	Message string
}

func newError(method, path string, statusCode int, body []byte) *Error {
	e := &Error{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Body:       body,
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
	}

	return e
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: get http response code %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s %s: get http response code %d and body %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether the exchange answered 404.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
