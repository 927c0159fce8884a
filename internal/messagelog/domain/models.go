package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Related row types.
const (
	RelatedInvoice  = "invoice"
	RelatedReminder = "reminder"
	RelatedTask     = "task"
)

// Outcomes.
const (
	OutcomeSent      = "sent"
	OutcomeSkipped   = "skipped"
	OutcomeRecorded  = "recorded"
	OutcomeScheduled = "scheduled"
	OutcomeFailed    = "failed"
)

// MessageLog is an append-only record of an outbound message or a lifecycle
// event worth showing in an invoice's history.
type MessageLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID    snowflake.ID      `gorm:"not null;index" json:"account_id"`
	RelatedType  string            `gorm:"not null;size:32;index:idx_message_logs_related" json:"related_type"`
	RelatedID    snowflake.ID      `gorm:"not null;index:idx_message_logs_related" json:"related_id"`
	Channel      string            `gorm:"not null;size:16" json:"channel"`
	TemplateUsed string            `gorm:"not null;size:64" json:"template_used"`
	Outcome      string            `gorm:"not null;size:16" json:"outcome"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	SentAt       time.Time         `gorm:"not null" json:"sent_at"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
}

func (MessageLog) TableName() string { return "message_logs" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	AccountID   snowflake.ID
	RelatedType string
	RelatedID   snowflake.ID
	Channel     string
	Cursor      *Cursor
	Limit       int
}
