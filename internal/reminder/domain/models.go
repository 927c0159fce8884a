package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
)

// Channel is how a reminder reaches the client.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func ParseChannel(value string) (Channel, error) {
	channel := Channel(strings.ToLower(strings.TrimSpace(value)))
	switch channel {
	case ChannelWhatsApp, ChannelEmail:
		return channel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChannel, value)
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
)

// CanTransitionTo allows pending -> sent and pending -> skipped only.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusSkipped
	case StatusSent, StatusSkipped:
		return false
	}
	return false
}

// Reminder is a due-time marker for contacting a client about an invoice.
// Nothing sends it automatically.
type Reminder struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID `gorm:"not null;index" json:"account_id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Channel     Channel      `gorm:"type:text;not null" json:"channel"`
	ScheduledAt time.Time    `gorm:"not null;index" json:"scheduled_at"`
	Status      Status       `gorm:"type:text;not null;default:'pending';index" json:"status"`
	SentAt      *time.Time   `json:"sent_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`

	Invoice *invoicedomain.Invoice `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Reminder) TableName() string { return "reminders" }
