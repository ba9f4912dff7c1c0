package domain

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusCancelling Status = "cancelling"
	StatusCancelled  Status = "cancelled"
	StatusPastDue    Status = "past_due"
)

// Record is the per-account subscription state document. Exactly one record
// exists per account; records are never deleted, only status-transitioned.
type Record struct {
	AccountID string `json:"account_id" gorm:"primaryKey;column:account_id"`

	Status Status `json:"status" gorm:"type:text;not null"`
	PlanID string `json:"plan_id" gorm:"column:plan_id"`

	SubscriptionID  *string `json:"subscription_id" gorm:"column:subscription_id;uniqueIndex"`
	CustomerID      *string `json:"customer_id" gorm:"column:customer_id;index"`
	PaymentMethodID *string `json:"payment_method_id" gorm:"column:payment_method_id"`

	CurrentPeriodStart *time.Time `json:"current_period_start" gorm:"column:current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end" gorm:"column:current_period_end"`

	CancelAtPeriodEnd bool       `json:"cancel_at_period_end" gorm:"column:cancel_at_period_end;not null;default:false"`
	CancelReason      *string    `json:"cancel_reason" gorm:"column:cancel_reason"`
	CancelledAt       *time.Time `json:"cancelled_at" gorm:"column:cancelled_at"`

	LastPaymentDate       *time.Time `json:"last_payment_date" gorm:"column:last_payment_date"`
	LastPaymentAmount     *int64     `json:"last_payment_amount" gorm:"column:last_payment_amount"`
	LastFailedPaymentDate *time.Time `json:"last_failed_payment_date" gorm:"column:last_failed_payment_date"`
	InvoicePDF            *string    `json:"invoice_pdf" gorm:"column:invoice_pdf"`

	PaymentMethodUpdatedAt *time.Time `json:"payment_method_updated_at" gorm:"column:payment_method_updated_at"`

	// Source timestamps of the newest processor event applied to each field
	// group. An inbound event older than the stored value for its group is
	// dropped instead of clobbering newer state.
	SubscriptionSyncedAt *time.Time `json:"subscription_synced_at" gorm:"column:subscription_synced_at"`
	PaymentSyncedAt      *time.Time `json:"payment_synced_at" gorm:"column:payment_synced_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (Record) TableName() string { return "subscription_records" }

// Column names used for targeted partial updates. Every write to the store
// goes through Updates with a subset of these; concurrent writers touching
// disjoint groups do not clobber each other.
const (
	ColStatus                 = "status"
	ColPlanID                 = "plan_id"
	ColSubscriptionID         = "subscription_id"
	ColCustomerID             = "customer_id"
	ColPaymentMethodID        = "payment_method_id"
	ColCurrentPeriodStart     = "current_period_start"
	ColCurrentPeriodEnd       = "current_period_end"
	ColCancelAtPeriodEnd      = "cancel_at_period_end"
	ColCancelReason           = "cancel_reason"
	ColCancelledAt            = "cancelled_at"
	ColLastPaymentDate        = "last_payment_date"
	ColLastPaymentAmount      = "last_payment_amount"
	ColLastFailedPaymentDate  = "last_failed_payment_date"
	ColInvoicePDF             = "invoice_pdf"
	ColPaymentMethodUpdatedAt = "payment_method_updated_at"
	ColSubscriptionSyncedAt   = "subscription_synced_at"
	ColPaymentSyncedAt        = "payment_synced_at"
	ColUpdatedAt              = "updated_at"
)
