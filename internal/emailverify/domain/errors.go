package domain

import "errors"

var (
	ErrValidation      = errors.New("validation_failed")
	ErrCodeStillActive = errors.New("code_still_active")
	ErrCodeExpired     = errors.New("code_expired")
	ErrCodeMismatch    = errors.New("code_mismatch")
	ErrNoPendingCode   = errors.New("no_pending_code")
	ErrEmailTaken      = errors.New("email_verified_elsewhere")
	ErrAlreadyVerified = errors.New("already_verified")
)
