package domain

import "context"

// Repository is the account-keyed document store for subscription records.
// Update performs a partial-field merge; callers never overwrite whole
// records.
type Repository interface {
	Get(ctx context.Context, accountID string) (*Record, error)
	Set(ctx context.Context, record *Record) error
	Update(ctx context.Context, accountID string, fields map[string]any) error
	AppendEventLog(ctx context.Context, entry *EventLog) error
}
