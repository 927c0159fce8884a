package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reminder *Reminder) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Reminder, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, accountID, invoiceID snowflake.ID) ([]*Reminder, error)
	// ListDue returns pending reminders scheduled at or before now. A zero
	// accountID spans every account.
	ListDue(ctx context.Context, db *gorm.DB, accountID snowflake.ID, now time.Time, limit int) ([]*Reminder, error)
	// Reschedule moves a pending reminder and reports rows changed.
	Reschedule(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, at, now time.Time) (int64, error)
	// Transition moves a reminder out of from; zero rows means it was no
	// longer in from.
	Transition(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, from, to Status, sentAt *time.Time, now time.Time) (int64, error)
	SkipPendingForInvoice(ctx context.Context, db *gorm.DB, accountID, invoiceID snowflake.ID, now time.Time) (int64, error)
}

type ScheduleReminderRequest struct {
	InvoiceID string
	// Channel defaults to the client's preferred channel.
	Channel string
	// TimeOfDay is "HH:MM"; empty schedules after the policy's default delay.
	TimeOfDay string
}

// RescheduleReminderRequest carries either ScheduledAt or Date plus Time
// (YYYY-MM-DD and HH:MM, in the app timezone).
type RescheduleReminderRequest struct {
	ID          string
	ScheduledAt *time.Time
	Date        string
	Time        string
}

type SendNowResult struct {
	Reminder Reminder `json:"reminder"`
	// URL is the wa.me or mailto link to open.
	URL          string `json:"url"`
	Message      string `json:"message"`
	TemplateUsed string `json:"template_used"`
}

type Service interface {
	Schedule(ctx context.Context, req ScheduleReminderRequest) (Reminder, error)
	Reschedule(ctx context.Context, req RescheduleReminderRequest) (Reminder, error)
	SendNow(ctx context.Context, id string) (SendNowResult, error)
	Skip(ctx context.Context, id string) (Reminder, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]Reminder, error)
	ListDue(ctx context.Context, limit int) ([]Reminder, error)
	// ListDueAll spans every account, oldest first.
	ListDueAll(ctx context.Context, limit int) ([]Reminder, error)
}

var (
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("reminder_not_found")
	ErrInvalidChannel      = errors.New("invalid_channel")
	ErrInvalidTime         = errors.New("invalid_reminder_time")
	ErrReminderNotInFuture = errors.New("reminder_time_not_in_future")
	ErrReminderNotPending  = errors.New("reminder_not_pending")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvoiceNotSent      = errors.New("invoice_not_sent")
	ErrInvoicePaid         = errors.New("invoice_already_paid")
	ErrNoChannel           = errors.New("client_has_no_channel")
)
