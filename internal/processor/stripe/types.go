package stripe

import (
	"encoding/json"
	"time"

	"github.com/subtracklabs/subtrack/internal/processor/domain"
)

type stripeCustomer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

func (c stripeCustomer) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:       c.ID,
		Email:    c.Email,
		Name:     c.Name,
		Metadata: c.Metadata,
	}
}

type stripeSubscriptionItem struct {
	ID                 string `json:"id"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Price              struct {
		ID string `json:"id"`
	} `json:"price"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Created            int64  `json:"created"`
	Items              struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
	LatestInvoice json.RawMessage `json:"latest_invoice"`
}

func (s stripeSubscription) toDomain() *domain.Subscription {
	out := &domain.Subscription{
		ID:                 s.ID,
		CustomerID:         s.Customer,
		Status:             s.Status,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
		Created:            unixTime(s.Created),
	}
	if len(s.Items.Data) > 0 {
		out.PlanID = s.Items.Data[0].Price.ID
	}
	// latest_invoice is an ID string unless expanded into an object.
	if len(s.LatestInvoice) > 0 && s.LatestInvoice[0] == '{' {
		var invoice stripeInvoice
		if err := json.Unmarshal(s.LatestInvoice, &invoice); err == nil {
			out.LatestInvoice = invoice.toDomain()
		}
	}
	return out
}

type stripeInvoice struct {
	ID            string          `json:"id"`
	Customer      string          `json:"customer"`
	Subscription  string          `json:"subscription"`
	Status        string          `json:"status"`
	AmountPaid    int64           `json:"amount_paid"`
	AmountDue     int64           `json:"amount_due"`
	Created       int64           `json:"created"`
	InvoicePDF    string          `json:"invoice_pdf"`
	PaymentIntent json.RawMessage `json:"payment_intent"`
}

func (i stripeInvoice) toDomain() *domain.Invoice {
	out := &domain.Invoice{
		ID:             i.ID,
		CustomerID:     i.Customer,
		SubscriptionID: i.Subscription,
		Status:         i.Status,
		AmountPaid:     i.AmountPaid,
		AmountDue:      i.AmountDue,
		Created:        unixTime(i.Created),
		InvoicePDF:     i.InvoicePDF,
	}
	if len(i.PaymentIntent) > 0 && i.PaymentIntent[0] == '{' {
		var intent struct {
			ClientSecret string `json:"client_secret"`
		}
		if err := json.Unmarshal(i.PaymentIntent, &intent); err == nil {
			out.PaymentIntentClientSecret = intent.ClientSecret
		}
	}
	return out
}

type stripeInvoiceList struct {
	Data []stripeInvoice `json:"data"`
}

type stripeSetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeEphemeralKey struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

func unixTime(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
