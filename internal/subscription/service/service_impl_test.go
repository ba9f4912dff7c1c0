package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/subtracklabs/subtrack/internal/metrics"
	processordomain "github.com/subtracklabs/subtrack/internal/processor/domain"
	recorddomain "github.com/subtracklabs/subtrack/internal/record/domain"
	recordrepository "github.com/subtracklabs/subtrack/internal/record/repository"
	"github.com/subtracklabs/subtrack/internal/subscription/domain"
	"github.com/subtracklabs/subtrack/internal/subscription/engine"
	"github.com/subtracklabs/subtrack/internal/subscription/normalizer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now(context.Context) time.Time { return c.now }

// fakeGateway is a func-field stub; unset methods fail the test path loudly.
type fakeGateway struct {
	retrieveCustomer   func(ctx context.Context, customerID string) (*processordomain.Customer, error)
	createCustomer     func(ctx context.Context, in processordomain.CreateCustomerInput) (*processordomain.Customer, error)
	updateCustomer     func(ctx context.Context, customerID string, in processordomain.UpdateCustomerInput) (*processordomain.Customer, error)
	createSubscription func(ctx context.Context, in processordomain.CreateSubscriptionInput) (*processordomain.Subscription, error)
	updateSubscription func(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error)
	listInvoices       func(ctx context.Context, customerID string, limit int) ([]processordomain.Invoice, error)
	payInvoice         func(ctx context.Context, invoiceID string) (*processordomain.Invoice, error)
	createSetupIntent  func(ctx context.Context, customerID string) (*processordomain.SetupIntent, error)
	createEphemeralKey func(ctx context.Context, customerID string) (*processordomain.EphemeralKey, error)
}

func (g *fakeGateway) RetrieveCustomer(ctx context.Context, customerID string) (*processordomain.Customer, error) {
	return g.retrieveCustomer(ctx, customerID)
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, in processordomain.CreateCustomerInput) (*processordomain.Customer, error) {
	return g.createCustomer(ctx, in)
}

func (g *fakeGateway) UpdateCustomer(ctx context.Context, customerID string, in processordomain.UpdateCustomerInput) (*processordomain.Customer, error) {
	return g.updateCustomer(ctx, customerID, in)
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, in processordomain.CreateSubscriptionInput) (*processordomain.Subscription, error) {
	return g.createSubscription(ctx, in)
}

func (g *fakeGateway) UpdateSubscription(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error) {
	return g.updateSubscription(ctx, subscriptionID, in)
}

func (g *fakeGateway) ListInvoices(ctx context.Context, customerID string, limit int) ([]processordomain.Invoice, error) {
	return g.listInvoices(ctx, customerID, limit)
}

func (g *fakeGateway) PayInvoice(ctx context.Context, invoiceID string) (*processordomain.Invoice, error) {
	return g.payInvoice(ctx, invoiceID)
}

func (g *fakeGateway) CreateSetupIntent(ctx context.Context, customerID string) (*processordomain.SetupIntent, error) {
	return g.createSetupIntent(ctx, customerID)
}

func (g *fakeGateway) CreateEphemeralKey(ctx context.Context, customerID string) (*processordomain.EphemeralKey, error) {
	return g.createEphemeralKey(ctx, customerID)
}

// fakeVerifier accepts every signature and returns a canned event.
type fakeVerifier struct {
	event *processordomain.WebhookEvent
}

func (v *fakeVerifier) VerifyWebhook(payload []byte, signatureHeader string) error { return nil }

func (v *fakeVerifier) ParseWebhook(payload []byte) (*processordomain.WebhookEvent, error) {
	return v.event, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&recorddomain.Record{}, &recorddomain.EventLog{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, gw *fakeGateway, verifier *fakeVerifier) (*Service, recorddomain.Repository) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := recordrepository.Provide(db)
	svc := NewService(Params{
		Log:        zap.NewNop(),
		Repo:       repo,
		Gateway:    gw,
		Verifier:   verifier,
		Normalizer: normalizer.New(gw, zap.NewNop()),
		Engine:     engine.New(),
		Clock:      fixedClock{now: testTime},
		GenID:      node,
		Metrics:    metrics.New(),
	}).(*Service)
	return svc, repo
}

func seedRecord(t *testing.T, repo recorddomain.Repository, record *recorddomain.Record) {
	t.Helper()
	record.CreatedAt = testTime
	record.UpdatedAt = testTime
	require.NoError(t, repo.Set(context.Background(), record))
}

func strPtr(s string) *string { return &s }

func TestHandleWebhookAppliesSubscriptionUpdate(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		retrieveCustomer: func(ctx context.Context, customerID string) (*processordomain.Customer, error) {
			return &processordomain.Customer{ID: customerID, Metadata: map[string]string{"uid": "acct_1"}}, nil
		},
	}
	verifier := &fakeVerifier{event: &processordomain.WebhookEvent{
		ID:         "evt_1",
		Type:       "customer.subscription.updated",
		OccurredAt: testTime,
		Subscription: &processordomain.EventSubscription{
			ID:          "sub_1",
			CustomerID:  "cus_1",
			Status:      "active",
			PlanID:      "price_basic",
			PeriodStart: testTime,
			PeriodEnd:   testTime.AddDate(0, 1, 0),
		},
	}}

	svc, repo := newTestService(t, db, gw, verifier)
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:      "acct_1",
		Status:         recorddomain.StatusPending,
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
	})

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, recorddomain.StatusActive, record.Status)
	require.Equal(t, "price_basic", record.PlanID)
	require.Equal(t, testTime, record.SubscriptionSyncedAt.UTC())

	var logs []recorddomain.EventLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, recorddomain.EventOutcomeApplied, logs[0].Outcome)
	require.Equal(t, "evt_1", logs[0].ProviderEventID)
}

func TestHandleWebhookRedeliveryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		retrieveCustomer: func(ctx context.Context, customerID string) (*processordomain.Customer, error) {
			return &processordomain.Customer{ID: customerID, Metadata: map[string]string{"uid": "acct_1"}}, nil
		},
	}
	verifier := &fakeVerifier{event: &processordomain.WebhookEvent{
		ID:         "evt_1",
		Type:       "customer.subscription.updated",
		OccurredAt: testTime,
		Subscription: &processordomain.EventSubscription{
			ID:         "sub_1",
			CustomerID: "cus_1",
			Status:     "active",
			PlanID:     "price_basic",
		},
	}}

	svc, repo := newTestService(t, db, gw, verifier)
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:      "acct_1",
		Status:         recorddomain.StatusPending,
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
	})

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	first, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	second, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.PlanID, second.PlanID)
	require.Equal(t, first.SubscriptionSyncedAt.UTC(), second.SubscriptionSyncedAt.UTC())
}

func TestHandleWebhookIgnoresUnhandledType(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	verifier := &fakeVerifier{event: &processordomain.WebhookEvent{
		ID:         "evt_1",
		Type:       "charge.refunded",
		OccurredAt: testTime,
	}}

	svc, repo := newTestService(t, db, gw, verifier)
	seedRecord(t, repo, &recorddomain.Record{
		AccountID: "acct_1",
		Status:    recorddomain.StatusActive,
	})

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, recorddomain.StatusActive, record.Status)
}

func TestHandleWebhookMissingRecord(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		retrieveCustomer: func(ctx context.Context, customerID string) (*processordomain.Customer, error) {
			return &processordomain.Customer{ID: customerID, Metadata: map[string]string{"uid": "acct_missing"}}, nil
		},
	}
	verifier := &fakeVerifier{event: &processordomain.WebhookEvent{
		ID:         "evt_1",
		Type:       "customer.subscription.updated",
		OccurredAt: testTime,
		Subscription: &processordomain.EventSubscription{
			ID:         "sub_1",
			CustomerID: "cus_1",
			Status:     "active",
		},
	}}

	svc, _ := newTestService(t, db, gw, verifier)
	err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestCancelSchedulesAndPersists(t *testing.T) {
	db := newTestDB(t)
	periodEnd := testTime.AddDate(0, 1, 0)
	gw := &fakeGateway{
		updateSubscription: func(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error) {
			require.Equal(t, "sub_1", subscriptionID)
			require.NotNil(t, in.CancelAtPeriodEnd)
			require.True(t, *in.CancelAtPeriodEnd)
			return &processordomain.Subscription{
				ID:               subscriptionID,
				Status:           "active",
				CurrentPeriodEnd: periodEnd,
			}, nil
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:      "acct_1",
		Status:         recorddomain.StatusActive,
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
	})

	resp, err := svc.Cancel(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, "cancelling", resp.Status)
	require.Equal(t, periodEnd, resp.CurrentPeriodEnd.UTC())

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, recorddomain.StatusCancelling, record.Status)
	require.True(t, record.CancelAtPeriodEnd)
	require.Equal(t, periodEnd, record.CurrentPeriodEnd.UTC())
}

func TestCancelWithoutSubscriptionIDIsInvalidTransition(t *testing.T) {
	db := newTestDB(t)
	svc, repo := newTestService(t, db, &fakeGateway{}, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID: "acct_1",
		Status:    recorddomain.StatusPending,
	})

	_, err := svc.Cancel(context.Background(), "acct_1")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReactivateAdoptsProcessorStatus(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		updateSubscription: func(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error) {
			require.NotNil(t, in.CancelAtPeriodEnd)
			require.False(t, *in.CancelAtPeriodEnd)
			return &processordomain.Subscription{ID: subscriptionID, Status: "active"}, nil
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:         "acct_1",
		Status:            recorddomain.StatusCancelling,
		SubscriptionID:    strPtr("sub_1"),
		CustomerID:        strPtr("cus_1"),
		CancelAtPeriodEnd: true,
	})

	resp, err := svc.Reactivate(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, "active", resp.Status)

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, recorddomain.StatusActive, record.Status)
	require.False(t, record.CancelAtPeriodEnd)
	require.Nil(t, record.CancelledAt)
}

func TestApplyPaymentMethodBestEffortInvoiceFailure(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		updateCustomer: func(ctx context.Context, customerID string, in processordomain.UpdateCustomerInput) (*processordomain.Customer, error) {
			return &processordomain.Customer{ID: customerID}, nil
		},
		updateSubscription: func(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error) {
			return &processordomain.Subscription{ID: subscriptionID, Status: "past_due"}, nil
		},
		listInvoices: func(ctx context.Context, customerID string, limit int) ([]processordomain.Invoice, error) {
			return []processordomain.Invoice{{ID: "in_1", Status: processordomain.InvoiceStatusOpen}}, nil
		},
		payInvoice: func(ctx context.Context, invoiceID string) (*processordomain.Invoice, error) {
			return nil, errors.New("card declined")
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:      "acct_1",
		Status:         recorddomain.StatusPastDue,
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
	})

	resp, err := svc.ApplyPaymentMethod(context.Background(), domain.ApplyPaymentMethodRequest{
		AccountID:       "acct_1",
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)
	require.False(t, resp.InvoicePaid)
	require.Contains(t, resp.InvoicePayError, "card declined")

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, "pm_1", *record.PaymentMethodID)
}

func TestApplyPaymentMethodPaysOpenInvoice(t *testing.T) {
	db := newTestDB(t)
	paid := false
	gw := &fakeGateway{
		updateCustomer: func(ctx context.Context, customerID string, in processordomain.UpdateCustomerInput) (*processordomain.Customer, error) {
			return &processordomain.Customer{ID: customerID}, nil
		},
		updateSubscription: func(ctx context.Context, subscriptionID string, in processordomain.UpdateSubscriptionInput) (*processordomain.Subscription, error) {
			require.Equal(t, "pm_1", in.DefaultPaymentMethod)
			return &processordomain.Subscription{ID: subscriptionID, Status: "active"}, nil
		},
		listInvoices: func(ctx context.Context, customerID string, limit int) ([]processordomain.Invoice, error) {
			require.Equal(t, 1, limit)
			return []processordomain.Invoice{{ID: "in_1", Status: processordomain.InvoiceStatusOpen}}, nil
		},
		payInvoice: func(ctx context.Context, invoiceID string) (*processordomain.Invoice, error) {
			paid = true
			return &processordomain.Invoice{ID: invoiceID, Status: "paid"}, nil
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:      "acct_1",
		Status:         recorddomain.StatusPastDue,
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
	})

	resp, err := svc.ApplyPaymentMethod(context.Background(), domain.ApplyPaymentMethodRequest{
		AccountID:       "acct_1",
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)
	require.True(t, paid)
	require.True(t, resp.InvoicePaid)
	require.Empty(t, resp.InvoicePayError)
}

func TestCreatePaymentSheetSeedsPendingRecord(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		createCustomer: func(ctx context.Context, in processordomain.CreateCustomerInput) (*processordomain.Customer, error) {
			require.Equal(t, "acct_1", in.Metadata["uid"])
			return &processordomain.Customer{ID: "cus_1"}, nil
		},
		createEphemeralKey: func(ctx context.Context, customerID string) (*processordomain.EphemeralKey, error) {
			return &processordomain.EphemeralKey{Secret: "ek_secret"}, nil
		},
		createSubscription: func(ctx context.Context, in processordomain.CreateSubscriptionInput) (*processordomain.Subscription, error) {
			require.Equal(t, "price_basic", in.PriceID)
			return &processordomain.Subscription{
				ID:     "sub_1",
				Status: "incomplete",
				LatestInvoice: &processordomain.Invoice{
					PaymentIntentClientSecret: "pi_secret",
				},
			}, nil
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})

	resp, err := svc.CreatePaymentSheet(context.Background(), domain.PaymentSheetRequest{
		AccountID: "acct_1",
		PriceID:   "price_basic",
	})
	require.NoError(t, err)
	require.Equal(t, "pi_secret", resp.PaymentIntentClientSecret)
	require.Equal(t, "ek_secret", resp.EphemeralKeySecret)
	require.Equal(t, "cus_1", resp.CustomerID)
	require.Equal(t, "sub_1", resp.SubscriptionID)

	record, err := repo.Get(context.Background(), "acct_1")
	require.NoError(t, err)
	require.Equal(t, recorddomain.StatusPending, record.Status)
	require.Equal(t, "sub_1", *record.SubscriptionID)
	require.Equal(t, "cus_1", *record.CustomerID)
}

func TestUpdateEmailForwardsToProcessor(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{
		updateCustomer: func(ctx context.Context, customerID string, in processordomain.UpdateCustomerInput) (*processordomain.Customer, error) {
			require.Equal(t, "cus_1", customerID)
			require.Equal(t, "new@example.com", in.Email)
			return &processordomain.Customer{ID: customerID, Email: in.Email}, nil
		},
	}

	svc, repo := newTestService(t, db, gw, &fakeVerifier{})
	seedRecord(t, repo, &recorddomain.Record{
		AccountID:  "acct_1",
		Status:     recorddomain.StatusActive,
		CustomerID: strPtr("cus_1"),
	})

	resp, err := svc.UpdateEmail(context.Background(), domain.UpdateEmailRequest{
		AccountID: "acct_1",
		Email:     "new@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", resp.Email)
}
