package engine

import (
	recorddomain "github.com/subtracklabs/subtrack/internal/record/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/domain"
)

// FailurePolicy decides what a failed subscription invoice does to the
// record. Kept behind a single decision point so the strict policy can be
// swapped for a grace-period one without touching the engine.
type FailurePolicy interface {
	OnPaymentFailed(current *recorddomain.Record, ev domain.InvoicePaymentFailed) map[string]any
}

// CancelOnFailure cancels the subscription on the first failed invoice.
type CancelOnFailure struct{}

func (CancelOnFailure) OnPaymentFailed(current *recorddomain.Record, ev domain.InvoicePaymentFailed) map[string]any {
	return map[string]any{
		recorddomain.ColStatus:                recorddomain.StatusCancelled,
		recorddomain.ColLastFailedPaymentDate: ev.FailedAt,
	}
}
