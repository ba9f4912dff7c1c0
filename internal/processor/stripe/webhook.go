package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/subtracklabs/subtrack/internal/processor/domain"
)

// VerifyWebhook checks the Stripe-Signature header (t/v1 scheme) against the
// shared webhook secret.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) error {
	if c.webhookSecret == "" {
		return domain.ErrMissingWebhookSecret
	}
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return domain.ErrMissingSignature
	}

	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		switch strings.TrimSpace(keyValue[0]) {
		case "t":
			timestamp = strings.TrimSpace(keyValue[1])
		case "v1":
			signatures = append(signatures, strings.TrimSpace(keyValue[1]))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, domain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

// ParseWebhook satisfies the Verifier interface.
func (c *Client) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	return ParseEvent(payload)
}

type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeEventSubscription struct {
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
}

type stripeEventInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Created      int64  `json:"created"`
	InvoicePDF   string `json:"invoice_pdf"`
}

// ParseEvent decodes a verified webhook envelope, decoding the object payload
// for the event family the type belongs to. Unknown families come back with
// both payloads nil; the normalizer treats those as ignorable.
func ParseEvent(payload []byte) (*domain.WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return nil, domain.ErrInvalidEvent
	}

	out := &domain.WebhookEvent{
		ID:         event.ID,
		Type:       strings.TrimSpace(event.Type),
		OccurredAt: unixTime(event.Created),
	}

	switch {
	case strings.HasPrefix(out.Type, "customer.subscription."):
		var sub stripeEventSubscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		eventSub := &domain.EventSubscription{
			ID:                sub.ID,
			CustomerID:        sub.Customer,
			Status:            sub.Status,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			PeriodStart:       unixTime(sub.CurrentPeriodStart),
			PeriodEnd:         unixTime(sub.CurrentPeriodEnd),
			Created:           unixTime(sub.Created),
		}
		if len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			eventSub.PlanID = item.Price.ID
			eventSub.ItemPeriodStart = unixTime(item.CurrentPeriodStart)
			eventSub.ItemPeriodEnd = unixTime(item.CurrentPeriodEnd)
		}
		out.Subscription = eventSub

	case strings.HasPrefix(out.Type, "invoice."):
		var invoice stripeEventInvoice
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		out.Invoice = &domain.EventInvoice{
			ID:             invoice.ID,
			CustomerID:     invoice.Customer,
			SubscriptionID: invoice.Subscription,
			AmountPaid:     invoice.AmountPaid,
			AmountDue:      invoice.AmountDue,
			Created:        unixTime(invoice.Created),
			InvoicePDF:     invoice.InvoicePDF,
		}
	}

	return out, nil
}
