package domain

import (
	"context"
)

// Gateway is the payment-processor client surface the reconciliation core
// depends on. The processor is the source of truth for billing facts; every
// call here is idempotent by construction ("set this target state").
type Gateway interface {
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	CreateCustomer(ctx context.Context, in CreateCustomerInput) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, in UpdateCustomerInput) (*Customer, error)

	CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, in UpdateSubscriptionInput) (*Subscription, error)

	ListInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error)
	PayInvoice(ctx context.Context, invoiceID string) (*Invoice, error)

	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (*EphemeralKey, error)
}

// Verifier gates raw webhook deliveries on the processor's signature scheme
// and decodes verified envelopes.
type Verifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) error
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

type CreateCustomerInput struct {
	Name     string
	Email    string
	Metadata map[string]string
}

type UpdateCustomerInput struct {
	Email                string
	DefaultPaymentMethod string
}

type CreateSubscriptionInput struct {
	CustomerID string
	PriceID    string
}

type UpdateSubscriptionInput struct {
	CancelAtPeriodEnd    *bool
	DefaultPaymentMethod string
}
