package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// NextSequence bumps and returns the sequence for (account, prefix,
	// year). The row stays locked until db commits.
	NextSequence(ctx context.Context, db *gorm.DB, accountID snowflake.ID, prefix string, year int, now time.Time) (int64, error)
	// Insert writes the invoice and all of its items.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// MarkOverdue persists the overdue status for sent invoices due before
	// today, across all accounts.
	MarkOverdue(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error)
}

// ListFilter.Status matches the derived status, so Today must be set when a
// status is given.
type ListFilter struct {
	AccountID snowflake.ID
	Status    *Status
	ClientID  *snowflake.ID
	Today     time.Time
}

type CreateInvoiceRequest struct {
	ClientID  string
	ProjectID string
	// Prefix overrides the account's invoice prefix.
	Prefix string
	// IssueDate and DueDate are YYYY-MM-DD. IssueDate defaults to today.
	IssueDate string
	DueDate   string
	// Status is draft or sent; empty means draft.
	Status Status
	Items  []ItemInput
	// GSTPercent overrides the account default when totals are computed.
	GSTPercent *float64
	// Totals supplied by the caller are verified, never recomputed.
	Subtotal    *int64
	GSTAmount   *int64
	TotalAmount *int64
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	ClientID  string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type SendResult struct {
	Invoice          Invoice  `json:"invoice"`
	RemindersCreated int      `json:"reminders_created"`
	Warnings         []string `json:"warnings,omitempty"`
}

type MarkPaidRequest struct {
	ID string
	// PaidDate is YYYY-MM-DD; empty means today.
	PaidDate     string
	UTRReference string
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Send(ctx context.Context, id string) (SendResult, error)
	MarkPaid(ctx context.Context, req MarkPaidRequest) (Invoice, error)
	MarkOverdue(ctx context.Context) (int64, error)
}

var (
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("invoice_not_found")
	ErrInvalidClient     = errors.New("invalid_client")
	ErrInvalidProject    = errors.New("invalid_project")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInvalidDates      = errors.New("invalid_dates")
	ErrNoItems           = errors.New("invoice_has_no_items")
	ErrTotalsMismatch    = errors.New("invoice_totals_mismatch")
	// ErrNumberingBusy means the number could not be allocated safely; the
	// whole creation should be retried.
	ErrNumberingBusy     = errors.New("invoice_numbering_busy")
	ErrSequenceExhausted = errors.New("invoice_sequence_exhausted")
	ErrInvalidPrefix     = errors.New("invalid_invoice_prefix")
)
