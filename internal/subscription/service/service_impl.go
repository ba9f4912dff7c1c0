package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subtracklabs/subtrack/internal/clock"
	"github.com/subtracklabs/subtrack/internal/metrics"
	processordomain "github.com/subtracklabs/subtrack/internal/processor/domain"
	recorddomain "github.com/subtracklabs/subtrack/internal/record/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/engine"
	"github.com/subtracklabs/subtrack/internal/subscription/normalizer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Repo       recorddomain.Repository
	Gateway    processordomain.Gateway
	Verifier   processordomain.Verifier
	Normalizer *normalizer.Normalizer
	Engine     *engine.Engine
	Clock      clock.Clock
	GenID      *snowflake.Node
	Metrics    *metrics.Metrics
}

type Service struct {
	log        *zap.Logger
	repo       recorddomain.Repository
	gateway    processordomain.Gateway
	verifier   processordomain.Verifier
	normalizer *normalizer.Normalizer
	engine     *engine.Engine
	clock      clock.Clock
	genID      *snowflake.Node
	metrics    *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("subscription.service"),
		repo:       p.Repo,
		gateway:    p.Gateway,
		verifier:   p.Verifier,
		normalizer: p.Normalizer,
		engine:     p.Engine,
		clock:      p.Clock,
		genID:      p.GenID,
		metrics:    p.Metrics,
	}
}

// HandleWebhook runs one raw processor delivery through verify, normalize and
// reconcile. Redelivery of the same event is safe: every record write is a
// field-level overwrite with event-sourced values.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := s.verifier.VerifyWebhook(payload, signatureHeader); err != nil {
		return err
	}

	event, err := s.verifier.ParseWebhook(payload)
	if err != nil {
		return err
	}

	s.log.Info("webhook event received", zap.String("type", event.Type), zap.String("event_id", event.ID))

	input, accountID, err := s.normalizer.Normalize(ctx, event)
	if err != nil {
		s.metrics.EventsFailed.Inc()
		return err
	}

	var current *recorddomain.Record
	if accountID != "" {
		current, err = s.repo.Get(ctx, accountID)
		if err != nil {
			s.metrics.EventsFailed.Inc()
			return &domain.UpstreamError{Op: "load record", Err: err}
		}
		if current == nil {
			s.metrics.EventsFailed.Inc()
			return fmt.Errorf("%w: account %s", domain.ErrRecordNotFound, accountID)
		}
	}

	now := s.clock.Now(ctx)
	decision, err := s.engine.Reconcile(current, input, now)
	if err != nil {
		s.metrics.EventsFailed.Inc()
		return err
	}

	switch {
	case decision.Ignored:
		s.log.Info("unhandled event type ignored", zap.String("type", decision.IgnoredType))
		s.metrics.EventsIgnored.Inc()
		s.appendEventLog(ctx, accountID, event, recorddomain.EventOutcomeIgnored, now)
		return nil
	case decision.Stale:
		s.log.Info("stale event dropped",
			zap.String("type", event.Type),
			zap.String("account_id", accountID),
			zap.Time("occurred_at", event.OccurredAt))
		s.metrics.EventsStale.Inc()
		s.appendEventLog(ctx, accountID, event, recorddomain.EventOutcomeStale, now)
		return nil
	}

	if err := s.repo.Update(ctx, accountID, decision.Fields); err != nil {
		s.metrics.EventsFailed.Inc()
		return &domain.UpstreamError{Op: "update record", Err: err}
	}

	s.metrics.EventsProcessed.WithLabelValues(event.Type).Inc()
	s.appendEventLog(ctx, accountID, event, recorddomain.EventOutcomeApplied, now)
	return nil
}

// CreatePaymentSheet provisions the processor-side customer (carrying the
// account identifier in metadata), an ephemeral key and an incomplete
// subscription, then seeds the pending record.
func (s *Service) CreatePaymentSheet(ctx context.Context, req domain.PaymentSheetRequest) (*domain.PaymentSheetResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	priceID := strings.TrimSpace(req.PriceID)
	if accountID == "" || priceID == "" {
		return nil, fmt.Errorf("%w: uid and priceId are required", domain.ErrValidation)
	}

	customer, err := s.gateway.CreateCustomer(ctx, processordomain.CreateCustomerInput{
		Name:     "User-" + accountID,
		Email:    strings.TrimSpace(req.Email),
		Metadata: map[string]string{"uid": accountID},
	})
	if err != nil {
		return nil, &domain.UpstreamError{Op: "create customer", Err: err}
	}

	ephemeralKey, err := s.gateway.CreateEphemeralKey(ctx, customer.ID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "create ephemeral key", Err: err}
	}

	subscription, err := s.gateway.CreateSubscription(ctx, processordomain.CreateSubscriptionInput{
		CustomerID: customer.ID,
		PriceID:    priceID,
	})
	if err != nil {
		return nil, &domain.UpstreamError{Op: "create subscription", Err: err}
	}

	now := s.clock.Now(ctx)
	record := &recorddomain.Record{
		AccountID:      accountID,
		Status:         recorddomain.StatusPending,
		CustomerID:     &customer.ID,
		SubscriptionID: &subscription.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Set(ctx, record); err != nil {
		return nil, &domain.UpstreamError{Op: "seed record", Err: err}
	}

	resp := &domain.PaymentSheetResponse{
		EphemeralKeySecret: ephemeralKey.Secret,
		CustomerID:         customer.ID,
		SubscriptionID:     subscription.ID,
	}
	if subscription.LatestInvoice != nil {
		resp.PaymentIntentClientSecret = subscription.LatestInvoice.PaymentIntentClientSecret
	}
	return resp, nil
}

// Cancel schedules cancellation at period end with the processor and moves
// the record to cancelling.
func (s *Service) Cancel(ctx context.Context, accountID string) (*domain.CancelResponse, error) {
	record, err := s.loadRecord(ctx, accountID)
	if err != nil {
		s.metrics.Actions.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}

	now := s.clock.Now(ctx)
	decision, err := s.engine.Reconcile(record, domain.CancelAction{AccountID: accountID}, now)
	if err != nil {
		s.metrics.Actions.WithLabelValues("cancel", "rejected").Inc()
		return nil, err
	}

	if _, err := s.executeEffects(ctx, decision); err != nil {
		s.metrics.Actions.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}

	if err := s.repo.Update(ctx, accountID, decision.Fields); err != nil {
		s.metrics.Actions.WithLabelValues("cancel", "error").Inc()
		return nil, &domain.UpstreamError{Op: "update record", Err: err}
	}

	s.log.Info("subscription cancellation scheduled",
		zap.String("account_id", accountID),
		zap.Stringp("subscription_id", record.SubscriptionID))
	s.metrics.Actions.WithLabelValues("cancel", "ok").Inc()

	return &domain.CancelResponse{
		Status:           string(recorddomain.StatusCancelling),
		CurrentPeriodEnd: fieldTime(decision.Fields, recorddomain.ColCurrentPeriodEnd),
	}, nil
}

// Reactivate clears a scheduled cancellation and adopts the status the
// processor reports back.
func (s *Service) Reactivate(ctx context.Context, accountID string) (*domain.ReactivateResponse, error) {
	record, err := s.loadRecord(ctx, accountID)
	if err != nil {
		s.metrics.Actions.WithLabelValues("reactivate", "error").Inc()
		return nil, err
	}

	now := s.clock.Now(ctx)
	decision, err := s.engine.Reconcile(record, domain.ReactivateAction{AccountID: accountID}, now)
	if err != nil {
		s.metrics.Actions.WithLabelValues("reactivate", "rejected").Inc()
		return nil, err
	}

	if _, err := s.executeEffects(ctx, decision); err != nil {
		s.metrics.Actions.WithLabelValues("reactivate", "error").Inc()
		return nil, err
	}

	if err := s.repo.Update(ctx, accountID, decision.Fields); err != nil {
		s.metrics.Actions.WithLabelValues("reactivate", "error").Inc()
		return nil, &domain.UpstreamError{Op: "update record", Err: err}
	}

	status := ""
	if v, ok := decision.Fields[recorddomain.ColStatus].(recorddomain.Status); ok {
		status = string(v)
	}
	s.log.Info("subscription reactivated",
		zap.String("account_id", accountID),
		zap.Stringp("subscription_id", record.SubscriptionID))
	s.metrics.Actions.WithLabelValues("reactivate", "ok").Inc()

	return &domain.ReactivateResponse{
		Status:           status,
		CurrentPeriodEnd: fieldTime(decision.Fields, recorddomain.ColCurrentPeriodEnd),
	}, nil
}

// CreateSetupIntent starts the payment-method update flow by minting a setup
// intent for the record's customer.
func (s *Service) CreateSetupIntent(ctx context.Context, accountID string) (*domain.SetupIntentResponse, error) {
	record, err := s.loadRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if record.CustomerID == nil || *record.CustomerID == "" {
		return nil, domain.ErrMissingCustomerID
	}

	intent, err := s.gateway.CreateSetupIntent(ctx, *record.CustomerID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "create setup intent", Err: err}
	}

	return &domain.SetupIntentResponse{
		ClientSecret: intent.ClientSecret,
		CustomerID:   *record.CustomerID,
	}, nil
}

// ApplyPaymentMethod sets the new default on the customer and subscription,
// then best-effort pays the most recent open invoice. The invoice outcome is
// reported but never fails the request, and the payment method is persisted
// regardless.
func (s *Service) ApplyPaymentMethod(ctx context.Context, req domain.ApplyPaymentMethodRequest) (*domain.ApplyPaymentMethodResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	paymentMethodID := strings.TrimSpace(req.PaymentMethodID)
	if accountID == "" || paymentMethodID == "" {
		return nil, fmt.Errorf("%w: uid and paymentMethodId are required", domain.ErrValidation)
	}

	record, err := s.loadRecord(ctx, accountID)
	if err != nil {
		s.metrics.Actions.WithLabelValues("apply_payment_method", "error").Inc()
		return nil, err
	}

	now := s.clock.Now(ctx)
	decision, err := s.engine.Reconcile(record, domain.ApplyPaymentMethodAction{
		AccountID:       accountID,
		PaymentMethodID: paymentMethodID,
	}, now)
	if err != nil {
		s.metrics.Actions.WithLabelValues("apply_payment_method", "rejected").Inc()
		return nil, err
	}

	result, err := s.executeEffects(ctx, decision)
	if err != nil {
		s.metrics.Actions.WithLabelValues("apply_payment_method", "error").Inc()
		return nil, err
	}

	if err := s.repo.Update(ctx, accountID, decision.Fields); err != nil {
		s.metrics.Actions.WithLabelValues("apply_payment_method", "error").Inc()
		return nil, &domain.UpstreamError{Op: "update record", Err: err}
	}

	s.metrics.Actions.WithLabelValues("apply_payment_method", "ok").Inc()

	resp := &domain.ApplyPaymentMethodResponse{
		PaymentMethodID: paymentMethodID,
		InvoicePaid:     result.invoicePaid,
	}
	if result.subscriptionAck != nil {
		resp.Status = result.subscriptionAck.Status
	}
	if result.invoicePayErr != nil {
		resp.InvoicePayError = result.invoicePayErr.Error()
	}
	return resp, nil
}

// UpdateEmail changes the processor customer's billing email. The record is
// untouched: email lives processor-side only.
func (s *Service) UpdateEmail(ctx context.Context, req domain.UpdateEmailRequest) (*domain.UpdateEmailResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	email := strings.TrimSpace(req.Email)
	if accountID == "" || email == "" {
		return nil, fmt.Errorf("%w: uid and newEmail are required", domain.ErrValidation)
	}

	record, err := s.loadRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if record.CustomerID == nil || *record.CustomerID == "" {
		return nil, domain.ErrMissingCustomerID
	}

	customer, err := s.gateway.UpdateCustomer(ctx, *record.CustomerID, processordomain.UpdateCustomerInput{
		Email: email,
	})
	if err != nil {
		return nil, &domain.UpstreamError{Op: "update customer email", Err: err}
	}

	return &domain.UpdateEmailResponse{Email: customer.Email}, nil
}

type effectResult struct {
	subscriptionAck *processordomain.Subscription
	invoicePaid     bool
	invoicePayErr   error
}

// executeEffects runs the decision's processor calls in order, feeding
// acknowledgements back into the pending fields. A best-effort effect failing
// is recorded in the result, not returned.
func (s *Service) executeEffects(ctx context.Context, decision *engine.Decision) (*effectResult, error) {
	result := &effectResult{}

	for _, effect := range decision.Effects {
		switch effect.Kind {
		case engine.EffectScheduleCancel:
			cancel := true
			ack, err := s.gateway.UpdateSubscription(ctx, effect.SubscriptionID, processordomain.UpdateSubscriptionInput{
				CancelAtPeriodEnd: &cancel,
			})
			if err != nil {
				return nil, &domain.UpstreamError{Op: "schedule cancellation", Err: err}
			}
			decision.Absorb(effect, ack)
			result.subscriptionAck = ack

		case engine.EffectClearScheduledCancel:
			cancel := false
			ack, err := s.gateway.UpdateSubscription(ctx, effect.SubscriptionID, processordomain.UpdateSubscriptionInput{
				CancelAtPeriodEnd: &cancel,
			})
			if err != nil {
				return nil, &domain.UpstreamError{Op: "clear scheduled cancellation", Err: err}
			}
			decision.Absorb(effect, ack)
			result.subscriptionAck = ack

		case engine.EffectSetCustomerDefaultPaymentMethod:
			_, err := s.gateway.UpdateCustomer(ctx, effect.CustomerID, processordomain.UpdateCustomerInput{
				DefaultPaymentMethod: effect.PaymentMethodID,
			})
			if err != nil {
				return nil, &domain.UpstreamError{Op: "set customer default payment method", Err: err}
			}

		case engine.EffectSetSubscriptionDefaultPaymentMethod:
			ack, err := s.gateway.UpdateSubscription(ctx, effect.SubscriptionID, processordomain.UpdateSubscriptionInput{
				DefaultPaymentMethod: effect.PaymentMethodID,
			})
			if err != nil {
				return nil, &domain.UpstreamError{Op: "set subscription default payment method", Err: err}
			}
			decision.Absorb(effect, ack)
			result.subscriptionAck = ack

		case engine.EffectPayLatestOpenInvoice:
			paid, err := s.payLatestOpenInvoice(ctx, effect.CustomerID)
			if err != nil {
				if !effect.BestEffort {
					return nil, err
				}
				s.log.Warn("best-effort invoice payment failed",
					zap.String("customer_id", effect.CustomerID),
					zap.Error(err))
				result.invoicePayErr = err
				continue
			}
			result.invoicePaid = paid
		}
	}

	return result, nil
}

func (s *Service) payLatestOpenInvoice(ctx context.Context, customerID string) (bool, error) {
	invoices, err := s.gateway.ListInvoices(ctx, customerID, 1)
	if err != nil {
		return false, &domain.UpstreamError{Op: "list invoices", Err: err}
	}
	if len(invoices) == 0 || invoices[0].Status != processordomain.InvoiceStatusOpen {
		return false, nil
	}

	paid, err := s.gateway.PayInvoice(ctx, invoices[0].ID)
	if err != nil {
		return false, &domain.UpstreamError{Op: "pay invoice", Err: err}
	}
	s.log.Info("open invoice paid", zap.String("invoice_id", paid.ID))
	return true, nil
}

func (s *Service) loadRecord(ctx context.Context, accountID string) (*recorddomain.Record, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: uid is required", domain.ErrValidation)
	}

	record, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "load record", Err: err}
	}
	if record == nil {
		return nil, fmt.Errorf("%w: account %s", domain.ErrRecordNotFound, accountID)
	}
	return record, nil
}

func (s *Service) appendEventLog(ctx context.Context, accountID string, event *processordomain.WebhookEvent, outcome string, now time.Time) {
	entry := &recorddomain.EventLog{
		ID:              s.genID.Generate(),
		AccountID:       accountID,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		Outcome:         outcome,
		OccurredAt:      event.OccurredAt,
		ProcessedAt:     now,
	}
	if err := s.repo.AppendEventLog(ctx, entry); err != nil {
		s.log.Warn("failed to append event log", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func fieldTime(fields map[string]any, key string) *time.Time {
	value, ok := fields[key]
	if !ok {
		return nil
	}
	switch cast := value.(type) {
	case time.Time:
		return &cast
	case *time.Time:
		return cast
	}
	return nil
}
