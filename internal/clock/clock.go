package clock

import (
	"context"
	"time"
)

// Clock supplies the current time so lifecycle decisions stay testable.
type Clock interface {
	Now(ctx context.Context) time.Time
}
