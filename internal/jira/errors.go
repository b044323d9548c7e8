package jira

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized signals that Jira rejected the request with 401, or answered
// with a redirect to a login page. Callers may refresh the session and retry.
var ErrUnauthorized = errors.New("jira session expired or credentials rejected")

// ErrNotFound signals a 404 for the addressed resource.
var ErrNotFound = errors.New("not found")

// StatusError carries a non-2xx response so callers can show Jira's own
// error body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusFound:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}
