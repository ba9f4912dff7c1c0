package normalizer

import (
	"context"
	"strings"

	processordomain "github.com/subtracklabs/subtrack/internal/processor/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/domain"
	"go.uber.org/zap"
)

// Normalizer maps a verified processor event into the canonical input the
// engine consumes, resolving the owning account from the processor-side
// customer's stored account-identifier metadata. It is read-only and
// cache-free: the customer is always fetched live.
type Normalizer struct {
	gateway processordomain.Gateway
	log     *zap.Logger
}

func New(gateway processordomain.Gateway, log *zap.Logger) *Normalizer {
	return &Normalizer{
		gateway: gateway,
		log:     log.Named("subscription.normalizer"),
	}
}

func (n *Normalizer) Normalize(ctx context.Context, ev *processordomain.WebhookEvent) (domain.Input, string, error) {
	switch ev.Type {
	case "customer.subscription.created":
		sub := ev.Subscription
		accountID, err := n.resolveAccount(ctx, sub.CustomerID)
		if err != nil {
			return nil, "", err
		}
		// Creation events report authoritative period bounds on the first
		// billing item, not on the subscription itself.
		periodStart, periodEnd := sub.ItemPeriodStart, sub.ItemPeriodEnd
		if periodStart.IsZero() && periodEnd.IsZero() {
			periodStart, periodEnd = sub.PeriodStart, sub.PeriodEnd
		}
		return domain.SubscriptionCreated{
			AccountID:         accountID,
			OccurredAt:        ev.OccurredAt,
			SubscriptionID:    sub.ID,
			CustomerID:        sub.CustomerID,
			PlanID:            sub.PlanID,
			Status:            sub.Status,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			PeriodStart:       periodStart,
			PeriodEnd:         periodEnd,
			Created:           sub.Created,
		}, accountID, nil

	case "customer.subscription.updated":
		sub := ev.Subscription
		accountID, err := n.resolveAccount(ctx, sub.CustomerID)
		if err != nil {
			return nil, "", err
		}
		return domain.SubscriptionUpdated{
			AccountID:         accountID,
			OccurredAt:        ev.OccurredAt,
			SubscriptionID:    sub.ID,
			CustomerID:        sub.CustomerID,
			PlanID:            sub.PlanID,
			Status:            sub.Status,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			PeriodStart:       sub.PeriodStart,
			PeriodEnd:         sub.PeriodEnd,
		}, accountID, nil

	case "customer.subscription.deleted":
		sub := ev.Subscription
		accountID, err := n.resolveAccount(ctx, sub.CustomerID)
		if err != nil {
			return nil, "", err
		}
		return domain.SubscriptionDeleted{
			AccountID:      accountID,
			OccurredAt:     ev.OccurredAt,
			SubscriptionID: sub.ID,
			CustomerID:     sub.CustomerID,
			Reason:         "subscription deleted",
		}, accountID, nil

	case "invoice.payment_succeeded":
		invoice := ev.Invoice
		accountID, err := n.resolveAccount(ctx, invoice.CustomerID)
		if err != nil {
			return nil, "", err
		}
		return domain.InvoicePaid{
			AccountID:      accountID,
			OccurredAt:     ev.OccurredAt,
			CustomerID:     invoice.CustomerID,
			SubscriptionID: invoice.SubscriptionID,
			AmountPaid:     invoice.AmountPaid,
			PaidAt:         invoice.Created,
			InvoicePDF:     invoice.InvoicePDF,
		}, accountID, nil

	case "invoice.payment_failed":
		invoice := ev.Invoice
		accountID, err := n.resolveAccount(ctx, invoice.CustomerID)
		if err != nil {
			return nil, "", err
		}
		return domain.InvoicePaymentFailed{
			AccountID:      accountID,
			OccurredAt:     ev.OccurredAt,
			CustomerID:     invoice.CustomerID,
			SubscriptionID: invoice.SubscriptionID,
			FailedAt:       invoice.Created,
		}, accountID, nil

	default:
		return domain.Ignored{EventType: ev.Type}, "", nil
	}
}

// resolveAccount reads the account identifier off the processor customer's
// metadata. A customer without one was provisioned outside the expected path;
// that is surfaced, never silently dropped.
func (n *Normalizer) resolveAccount(ctx context.Context, customerID string) (string, error) {
	customer, err := n.gateway.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return "", &domain.UpstreamError{Op: "retrieve customer", Err: err}
	}

	accountID := strings.TrimSpace(customer.Metadata["uid"])
	if accountID == "" {
		n.log.Warn("customer missing account identifier metadata",
			zap.String("customer_id", customerID))
		return "", domain.ErrAccountUnresolved
	}
	return accountID, nil
}
