package domain

import "time"

// Verification is the per-account OTP state stored in redis under a TTL that
// matches the code's expiry.
type Verification struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
}
