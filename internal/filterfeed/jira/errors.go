package jira

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the server reports that a filter id does not exist.
var ErrNotFound = errors.New("filter not found")

// APIError represents a transport failure or a non-2xx response from the Jira API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("jira API request %s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("jira API request %s failed with status %d", e.Endpoint, e.StatusCode)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
