package engine

import (
	"fmt"
	"time"

	processordomain "github.com/subtracklabs/subtrack/internal/processor/domain"
	recorddomain "github.com/subtracklabs/subtrack/internal/record/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/domain"
)

// Engine is the pure reconciliation core: given the stored record and an
// input it computes the next record state as a partial-field update plus the
// ordered processor effects required. It performs no I/O.
type Engine struct {
	failure FailurePolicy
}

func New() *Engine {
	return &Engine{failure: CancelOnFailure{}}
}

func NewWithFailurePolicy(policy FailurePolicy) *Engine {
	return &Engine{failure: policy}
}

// Reconcile applies one input to the current record. Every transition is
// re-appliable: fields are overwritten with event-sourced values, never
// accumulated, so replaying an event yields the same record.
func (e *Engine) Reconcile(current *recorddomain.Record, in domain.Input, now time.Time) (*Decision, error) {
	if ignored, ok := in.(domain.Ignored); ok {
		return &Decision{Ignored: true, IgnoredType: ignored.EventType}, nil
	}
	if current == nil {
		return nil, domain.ErrRecordNotFound
	}

	switch input := in.(type) {
	case domain.SubscriptionCreated:
		return e.applySubscriptionCreated(current, input, now), nil
	case domain.SubscriptionUpdated:
		return e.applySubscriptionUpdated(current, input, now), nil
	case domain.SubscriptionDeleted:
		return e.applySubscriptionDeleted(current, input, now), nil
	case domain.InvoicePaid:
		return e.applyInvoicePaid(current, input, now), nil
	case domain.InvoicePaymentFailed:
		return e.applyInvoicePaymentFailed(current, input, now), nil
	case domain.CancelAction:
		return e.planCancel(current, now)
	case domain.ReactivateAction:
		return e.planReactivate(current, now)
	case domain.ApplyPaymentMethodAction:
		return e.planApplyPaymentMethod(current, input, now)
	default:
		return &Decision{Ignored: true, IgnoredType: fmt.Sprintf("%T", in)}, nil
	}
}

func (e *Engine) applySubscriptionCreated(current *recorddomain.Record, ev domain.SubscriptionCreated, now time.Time) *Decision {
	if staleSubscriptionEvent(current, ev.SubscriptionID, ev.OccurredAt) {
		return &Decision{Stale: true}
	}

	// The processor reports authoritative period bounds per line item on
	// creation; PeriodStart/PeriodEnd here already carry the first item's.
	fields := map[string]any{
		recorddomain.ColStatus:               normalizeStatus(ev.Status),
		recorddomain.ColPlanID:               ev.PlanID,
		recorddomain.ColSubscriptionID:       ev.SubscriptionID,
		recorddomain.ColCustomerID:           ev.CustomerID,
		recorddomain.ColCurrentPeriodStart:   ev.PeriodStart,
		recorddomain.ColCurrentPeriodEnd:     ev.PeriodEnd,
		recorddomain.ColCancelAtPeriodEnd:    ev.CancelAtPeriodEnd,
		recorddomain.ColSubscriptionSyncedAt: ev.OccurredAt,
		recorddomain.ColUpdatedAt:            now,
	}
	return &Decision{Fields: fields}
}

func (e *Engine) applySubscriptionUpdated(current *recorddomain.Record, ev domain.SubscriptionUpdated, now time.Time) *Decision {
	if staleSubscriptionEvent(current, ev.SubscriptionID, ev.OccurredAt) {
		return &Decision{Stale: true}
	}

	fields := map[string]any{
		recorddomain.ColStatus:               normalizeStatus(ev.Status),
		recorddomain.ColPlanID:               ev.PlanID,
		recorddomain.ColCustomerID:           ev.CustomerID,
		recorddomain.ColCurrentPeriodStart:   ev.PeriodStart,
		recorddomain.ColCurrentPeriodEnd:     ev.PeriodEnd,
		recorddomain.ColCancelAtPeriodEnd:    ev.CancelAtPeriodEnd,
		recorddomain.ColSubscriptionSyncedAt: ev.OccurredAt,
		recorddomain.ColUpdatedAt:            now,
	}
	return &Decision{Fields: fields}
}

func (e *Engine) applySubscriptionDeleted(current *recorddomain.Record, ev domain.SubscriptionDeleted, now time.Time) *Decision {
	if current.SubscriptionSyncedAt != nil && ev.OccurredAt.Before(*current.SubscriptionSyncedAt) {
		return &Decision{Stale: true}
	}

	reason := ev.Reason
	if reason == "" {
		reason = "subscription deleted"
	}
	fields := map[string]any{
		recorddomain.ColStatus:               recorddomain.StatusCancelled,
		recorddomain.ColCustomerID:           ev.CustomerID,
		recorddomain.ColCancelledAt:          now,
		recorddomain.ColCancelReason:         reason,
		recorddomain.ColSubscriptionSyncedAt: ev.OccurredAt,
		recorddomain.ColUpdatedAt:            now,
	}
	return &Decision{Fields: fields}
}

func (e *Engine) applyInvoicePaid(current *recorddomain.Record, ev domain.InvoicePaid, now time.Time) *Decision {
	if ev.SubscriptionID == "" {
		return &Decision{Ignored: true, IgnoredType: "invoice.payment_succeeded (no subscription)"}
	}
	if stalePaymentEvent(current, ev.OccurredAt) {
		return &Decision{Stale: true}
	}

	// Records payment facts only; cancelAtPeriodEnd is owned by the
	// subscription event group and is deliberately left alone.
	fields := map[string]any{
		recorddomain.ColStatus:            recorddomain.StatusActive,
		recorddomain.ColCustomerID:        ev.CustomerID,
		recorddomain.ColLastPaymentDate:   ev.PaidAt,
		recorddomain.ColLastPaymentAmount: ev.AmountPaid,
		recorddomain.ColPaymentSyncedAt:   ev.OccurredAt,
		recorddomain.ColUpdatedAt:         now,
	}
	if ev.InvoicePDF != "" {
		fields[recorddomain.ColInvoicePDF] = ev.InvoicePDF
	}
	return &Decision{Fields: fields}
}

func (e *Engine) applyInvoicePaymentFailed(current *recorddomain.Record, ev domain.InvoicePaymentFailed, now time.Time) *Decision {
	if ev.SubscriptionID == "" {
		return &Decision{Ignored: true, IgnoredType: "invoice.payment_failed (no subscription)"}
	}
	if stalePaymentEvent(current, ev.OccurredAt) {
		return &Decision{Stale: true}
	}

	fields := e.failure.OnPaymentFailed(current, ev)
	fields[recorddomain.ColCustomerID] = ev.CustomerID
	fields[recorddomain.ColPaymentSyncedAt] = ev.OccurredAt
	fields[recorddomain.ColUpdatedAt] = now
	return &Decision{Fields: fields}
}

func (e *Engine) planCancel(current *recorddomain.Record, now time.Time) (*Decision, error) {
	if current.SubscriptionID == nil || *current.SubscriptionID == "" {
		return nil, domain.ErrMissingSubscriptionID
	}

	decision := &Decision{
		Fields: map[string]any{
			recorddomain.ColStatus:            recorddomain.StatusCancelling,
			recorddomain.ColCancelAtPeriodEnd: true,
			recorddomain.ColCancelledAt:       now,
			recorddomain.ColUpdatedAt:         now,
		},
		Effects: []Effect{{
			Kind:           EffectScheduleCancel,
			SubscriptionID: *current.SubscriptionID,
		}},
	}
	return decision, nil
}

func (e *Engine) planReactivate(current *recorddomain.Record, now time.Time) (*Decision, error) {
	if current.SubscriptionID == nil || *current.SubscriptionID == "" {
		return nil, domain.ErrMissingSubscriptionID
	}
	if !current.CancelAtPeriodEnd {
		return nil, domain.ErrNotPendingCancel
	}

	decision := &Decision{
		Fields: map[string]any{
			recorddomain.ColCancelAtPeriodEnd: false,
			recorddomain.ColCancelledAt:       nil,
			recorddomain.ColUpdatedAt:         now,
		},
		Effects: []Effect{{
			Kind:           EffectClearScheduledCancel,
			SubscriptionID: *current.SubscriptionID,
		}},
	}
	return decision, nil
}

func (e *Engine) planApplyPaymentMethod(current *recorddomain.Record, in domain.ApplyPaymentMethodAction, now time.Time) (*Decision, error) {
	if current.SubscriptionID == nil || *current.SubscriptionID == "" {
		return nil, domain.ErrMissingSubscriptionID
	}
	if current.CustomerID == nil || *current.CustomerID == "" {
		return nil, domain.ErrMissingCustomerID
	}

	decision := &Decision{
		Fields: map[string]any{
			recorddomain.ColPaymentMethodID:        in.PaymentMethodID,
			recorddomain.ColPaymentMethodUpdatedAt: now,
			recorddomain.ColUpdatedAt:              now,
		},
		Effects: []Effect{
			{
				Kind:            EffectSetCustomerDefaultPaymentMethod,
				CustomerID:      *current.CustomerID,
				PaymentMethodID: in.PaymentMethodID,
			},
			{
				Kind:            EffectSetSubscriptionDefaultPaymentMethod,
				SubscriptionID:  *current.SubscriptionID,
				PaymentMethodID: in.PaymentMethodID,
			},
			{
				Kind:       EffectPayLatestOpenInvoice,
				CustomerID: *current.CustomerID,
				BestEffort: true,
			},
		},
	}
	return decision, nil
}

// staleSubscriptionEvent drops events that are older than what the record
// already reflects for the subscription field group, and any event that would
// resurrect a terminally cancelled subscription under the same id.
func staleSubscriptionEvent(current *recorddomain.Record, subscriptionID string, occurredAt time.Time) bool {
	if current.SubscriptionSyncedAt != nil && occurredAt.Before(*current.SubscriptionSyncedAt) {
		return true
	}
	if current.Status == recorddomain.StatusCancelled &&
		current.SubscriptionID != nil && *current.SubscriptionID == subscriptionID {
		return true
	}
	return false
}

func stalePaymentEvent(current *recorddomain.Record, occurredAt time.Time) bool {
	return current.PaymentSyncedAt != nil && occurredAt.Before(*current.PaymentSyncedAt)
}

// normalizeStatus maps processor-reported subscription statuses onto the
// record's lifecycle states.
func normalizeStatus(status string) recorddomain.Status {
	switch status {
	case "active", "trialing":
		return recorddomain.StatusActive
	case "past_due", "unpaid":
		return recorddomain.StatusPastDue
	case "canceled", "cancelled":
		return recorddomain.StatusCancelled
	case "incomplete", "incomplete_expired":
		return recorddomain.StatusPending
	default:
		return recorddomain.StatusPending
	}
}

// AdoptedStatus exposes the status mapping for callers absorbing processor
// acknowledgements.
func AdoptedStatus(status string) recorddomain.Status {
	return normalizeStatus(status)
}

// Absorb merges a processor acknowledgement into the decision's pending
// fields. It is pure; callers execute the effect and hand the result back.
func (d *Decision) Absorb(effect Effect, ack *processordomain.Subscription) {
	if ack == nil {
		return
	}
	switch effect.Kind {
	case EffectScheduleCancel:
		if !ack.CurrentPeriodEnd.IsZero() {
			d.Fields[recorddomain.ColCurrentPeriodEnd] = ack.CurrentPeriodEnd
		}
	case EffectClearScheduledCancel:
		d.Fields[recorddomain.ColStatus] = normalizeStatus(ack.Status)
		if !ack.CurrentPeriodEnd.IsZero() {
			d.Fields[recorddomain.ColCurrentPeriodEnd] = ack.CurrentPeriodEnd
		}
	}
}
