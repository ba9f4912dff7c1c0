package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EventLog is an audit row appended for every processor event that reached a
// terminal outcome (applied, ignored, or dropped as stale).
type EventLog struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID       string       `json:"account_id" gorm:"column:account_id;index"`
	ProviderEventID string       `json:"provider_event_id" gorm:"column:provider_event_id;type:text"`
	EventType       string       `json:"event_type" gorm:"column:event_type;type:text;not null"`
	Outcome         string       `json:"outcome" gorm:"column:outcome;type:text;not null"`
	OccurredAt      time.Time    `json:"occurred_at" gorm:"column:occurred_at"`
	ProcessedAt     time.Time    `json:"processed_at" gorm:"column:processed_at;not null"`
}

func (EventLog) TableName() string { return "subscription_event_log" }

const (
	EventOutcomeApplied = "applied"
	EventOutcomeIgnored = "ignored"
	EventOutcomeStale   = "stale"
)
