package domain

import "time"

type Customer struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]string
}

type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PlanID             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Created            time.Time
	LatestInvoice      *Invoice
}

type Invoice struct {
	ID                        string
	CustomerID                string
	SubscriptionID            string
	Status                    string
	AmountPaid                int64
	AmountDue                 int64
	Created                   time.Time
	InvoicePDF                string
	PaymentIntentClientSecret string
}

const InvoiceStatusOpen = "open"

type SetupIntent struct {
	ID           string
	ClientSecret string
}

type EphemeralKey struct {
	ID     string
	Secret string
}

// WebhookEvent is a verified processor event with its object payload decoded
// for the one family the event type belongs to.
type WebhookEvent struct {
	ID         string
	Type       string
	OccurredAt time.Time

	Subscription *EventSubscription
	Invoice      *EventInvoice
}

// EventSubscription carries both the subscription-level period bounds and the
// first line item's bounds; the processor reports authoritative bounds per
// line item on creation events.
type EventSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	PlanID            string
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
	ItemPeriodStart   time.Time
	ItemPeriodEnd     time.Time
	Created           time.Time
}

type EventInvoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
	Created        time.Time
	InvoicePDF     string
}
