package engine

type EffectKind string

const (
	EffectScheduleCancel                      EffectKind = "schedule_cancel"
	EffectClearScheduledCancel                EffectKind = "clear_scheduled_cancel"
	EffectSetCustomerDefaultPaymentMethod     EffectKind = "set_customer_default_payment_method"
	EffectSetSubscriptionDefaultPaymentMethod EffectKind = "set_subscription_default_payment_method"
	EffectPayLatestOpenInvoice                EffectKind = "pay_latest_open_invoice"
)

// Effect is a required outbound processor call, distinct from the record
// mutation it may feed. Effects marked BestEffort have their failures logged
// and reported but never fail the primary operation.
type Effect struct {
	Kind            EffectKind
	SubscriptionID  string
	CustomerID      string
	PaymentMethodID string
	BestEffort      bool
}

// Decision is the outcome of reconciling one input: the partial-field update
// to persist and the ordered processor calls to execute first. Stale and
// Ignored decisions leave the record untouched.
type Decision struct {
	Fields  map[string]any
	Effects []Effect

	Stale       bool
	Ignored     bool
	IgnoredType string
}
