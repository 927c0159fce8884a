package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/hisaab/internal/composer"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
)

// Candidate is an overdue invoice with the tone a follow-up would take.
type Candidate struct {
	Invoice     invoicedomain.Invoice `json:"invoice"`
	ClientName  string                `json:"client_name"`
	DaysOverdue int                   `json:"days_overdue"`
	Tone        composer.Tone         `json:"tone"`
	HasWhatsApp bool                  `json:"has_whatsapp"`
	HasEmail    bool                  `json:"has_email"`
}

type ComposeRequest struct {
	InvoiceID string
	Channel   string
	// Flow picks the tone thresholds: "reminder" or "follow_up" (default).
	Flow string
}

type Service interface {
	// Candidates lists overdue invoices, most overdue first.
	Candidates(ctx context.Context, flow string) ([]Candidate, error)
	Compose(ctx context.Context, req ComposeRequest) (composer.Message, error)
	// Record composes like Compose and appends the message log row for a
	// follow-up the operator has sent.
	Record(ctx context.Context, req ComposeRequest) (composer.Message, error)
	// Reminder composes the standard reminder for a sent or overdue invoice.
	Reminder(ctx context.Context, req ComposeRequest) (composer.Message, error)
	// PaymentQR renders the invoice's UPI intent as a PNG.
	PaymentQR(ctx context.Context, invoiceID string, size int) ([]byte, error)
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("invoice_not_found")
	ErrNotOverdue     = errors.New("invoice_not_overdue")
	ErrNotSent        = errors.New("invoice_not_sent")
	ErrNothingToPay   = errors.New("invoice_already_paid")
	ErrNoPayeeVPA     = errors.New("no_payee_vpa")
)
