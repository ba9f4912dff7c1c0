package domain

import (
	"context"
	"time"
)

type Service interface {
	// HandleWebhook verifies, normalizes and reconciles one raw processor
	// event. Safe under redelivery of the same event.
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error

	CreatePaymentSheet(ctx context.Context, req PaymentSheetRequest) (*PaymentSheetResponse, error)
	Cancel(ctx context.Context, accountID string) (*CancelResponse, error)
	Reactivate(ctx context.Context, accountID string) (*ReactivateResponse, error)
	CreateSetupIntent(ctx context.Context, accountID string) (*SetupIntentResponse, error)
	ApplyPaymentMethod(ctx context.Context, req ApplyPaymentMethodRequest) (*ApplyPaymentMethodResponse, error)
	UpdateEmail(ctx context.Context, req UpdateEmailRequest) (*UpdateEmailResponse, error)
}

type PaymentSheetRequest struct {
	AccountID string
	PriceID   string
	Email     string
}

type PaymentSheetResponse struct {
	PaymentIntentClientSecret string `json:"paymentIntent"`
	EphemeralKeySecret        string `json:"ephemeralKey"`
	CustomerID                string `json:"customer"`
	SubscriptionID            string `json:"subscriptionId"`
}

type CancelResponse struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

type ReactivateResponse struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

type SetupIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

type ApplyPaymentMethodRequest struct {
	AccountID       string
	PaymentMethodID string
}

// ApplyPaymentMethodResponse reports the primary outcome plus the separately
// tracked best-effort invoice payment, which never fails the request.
type ApplyPaymentMethodResponse struct {
	Status          string `json:"status"`
	PaymentMethodID string `json:"paymentMethodId"`
	InvoicePaid     bool   `json:"invoicePaid"`
	InvoicePayError string `json:"invoicePayError,omitempty"`
}

type UpdateEmailRequest struct {
	AccountID string
	Email     string
}

type UpdateEmailResponse struct {
	Email string `json:"stripeEmail"`
}
