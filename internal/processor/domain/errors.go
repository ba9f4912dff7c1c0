package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSignature     = errors.New("missing_signature")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrMissingWebhookSecret = errors.New("missing_webhook_secret")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrInvalidEvent         = errors.New("invalid_event")
)

// APIError is a non-2xx response from the processor API. The upstream message
// is preserved because the root cause is usually bad input.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor api error: %d %s", e.StatusCode, e.Message)
}
