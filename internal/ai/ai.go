package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrBackendsExhausted is returned by the Gateway when every configured
// reasoning backend failed for one logical call.
var ErrBackendsExhausted = errors.New("all reasoning backends exhausted")

// Backend is one interchangeable reasoning service tried by the Gateway in
// priority order.
type Backend interface {
	// ID returns a stable identifier used in logs, usually the model name.
	ID() string
	// Generate sends the prompt and returns the textual response. Failures
	// with a known HTTP-like status are reported as *StatusError.
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)
}

// StatusError carries the HTTP-like status of a failed backend call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the next backend should be tried after this
// failure. Rate limiting, server errors and a missing model are worth a
// retry; a bad request will fail identically everywhere.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusServiceUnavailable, http.StatusNotFound:
		return true
	}
	return false
}

// IsRateLimited reports whether the error is a 429-equivalent backend failure.
func IsRateLimited(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Code == http.StatusTooManyRequests
}
