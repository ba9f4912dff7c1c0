package domain

import (
	"context"
	"time"
)

type Service interface {
	// RequestCode issues a fresh OTP to the address and emails it. A second
	// request while a prior code is unexpired is rejected.
	RequestCode(ctx context.Context, accountID, email string) error

	// VerifyCode checks the submitted OTP, marks the address verified and
	// clears the pending code.
	VerifyCode(ctx context.Context, accountID, code string) (*Verification, error)
}

// Store persists verification state. The redis implementation keeps a
// reverse index from verified email to account so an address verified under
// one account cannot be claimed by another.
type Store interface {
	Get(ctx context.Context, accountID string) (*Verification, error)
	Put(ctx context.Context, v *Verification, ttl time.Duration) error
	VerifiedOwner(ctx context.Context, email string) (string, error)
	ClaimEmail(ctx context.Context, email, accountID string, ttl time.Duration) error
}
