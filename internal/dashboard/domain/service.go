package domain

import (
	"context"
	"errors"
)

// Summary is the account's money at a glance. Amounts are paise, with the
// *Display fields pre-formatted for the UI.
type Summary struct {
	InvoiceCount      int64 `json:"invoice_count"`
	DraftCount        int64 `json:"draft_count"`
	OutstandingAmount int64 `json:"outstanding_amount"`
	OverdueCount      int64 `json:"overdue_count"`
	OverdueAmount     int64 `json:"overdue_amount"`
	PaidThisMonth     int64 `json:"paid_this_month"`
	ClientCount       int64 `json:"client_count"`
	RemindersDue      int64 `json:"reminders_due"`
	SavingsSaved      int64 `json:"savings_saved"`
	SavingsTarget     int64 `json:"savings_target"`

	OutstandingDisplay   string `json:"outstanding_display"`
	OverdueDisplay       string `json:"overdue_display"`
	PaidThisMonthDisplay string `json:"paid_this_month_display"`
	SavingsDisplay       string `json:"savings_display"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}

var ErrInvalidAccount = errors.New("invalid_account")
