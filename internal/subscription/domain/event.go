package domain

import "time"

// Input is the closed set of things the reconciliation engine accepts: one
// variant per handled processor event type, the catch-all Ignored variant,
// and the user-initiated actions.
type Input interface {
	inputName() string
}

type SubscriptionCreated struct {
	AccountID         string
	OccurredAt        time.Time
	SubscriptionID    string
	CustomerID        string
	PlanID            string
	Status            string
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
	Created           time.Time
}

type SubscriptionUpdated struct {
	AccountID         string
	OccurredAt        time.Time
	SubscriptionID    string
	CustomerID        string
	PlanID            string
	Status            string
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
}

type SubscriptionDeleted struct {
	AccountID      string
	OccurredAt     time.Time
	SubscriptionID string
	CustomerID     string
	Reason         string
}

type InvoicePaid struct {
	AccountID      string
	OccurredAt     time.Time
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	PaidAt         time.Time
	InvoicePDF     string
}

type InvoicePaymentFailed struct {
	AccountID      string
	OccurredAt     time.Time
	CustomerID     string
	SubscriptionID string
	FailedAt       time.Time
}

// Ignored is an event type the engine has no handler for. It is logged and
// acknowledged without touching the record.
type Ignored struct {
	EventType string
}

type CancelAction struct {
	AccountID string
}

type ReactivateAction struct {
	AccountID string
}

type ApplyPaymentMethodAction struct {
	AccountID       string
	PaymentMethodID string
}

func (SubscriptionCreated) inputName() string      { return "subscription.created" }
func (SubscriptionUpdated) inputName() string      { return "subscription.updated" }
func (SubscriptionDeleted) inputName() string      { return "subscription.deleted" }
func (InvoicePaid) inputName() string              { return "invoice.paid" }
func (InvoicePaymentFailed) inputName() string     { return "invoice.payment_failed" }
func (Ignored) inputName() string                  { return "ignored" }
func (CancelAction) inputName() string             { return "action.cancel" }
func (ReactivateAction) inputName() string         { return "action.reactivate" }
func (ApplyPaymentMethodAction) inputName() string { return "action.apply_payment_method" }
