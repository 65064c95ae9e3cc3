package transport

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrRetriesExhausted is matched by every *ExhaustedError
var ErrRetriesExhausted = errors.New("retries exhausted")

const snippetLimit = 500

// StatusError is an HTTP response with a status code of 400 or above
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Snippet)
}

// ExhaustedError is returned once every attempt of a retryable request failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// StatusCode extracts the HTTP status from err, or 0 if it carries none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Snippet trims and truncates a response body for diagnostics
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
