package jira

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend reports that an issue does not exist.
var ErrNotFound = errors.New("issue not found")

// UpstreamError is any other failure reported by, or on the way to, the backend.
// StatusCode is zero when the request never produced an HTTP response.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("jira request failed: %s", e.Message)
	}
	return fmt.Sprintf("jira returned %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
