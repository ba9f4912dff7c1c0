package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("subscription_record_not_found")
	ErrAccountUnresolved = errors.New("account_unresolved")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrValidation        = errors.New("validation_failed")

	ErrMissingSubscriptionID = fmt.Errorf("%w: no subscription id on record", ErrInvalidTransition)
	ErrMissingCustomerID     = fmt.Errorf("%w: no customer id on record", ErrInvalidTransition)
	ErrNotPendingCancel      = fmt.Errorf("%w: only subscriptions pending cancellation can be reactivated", ErrInvalidTransition)
)

// UpstreamError wraps a processor or store failure, preserving the upstream
// message for the caller.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
