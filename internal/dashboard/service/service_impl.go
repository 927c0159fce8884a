package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/dashboard/domain"
	"github.com/smallbiznis/hisaab/internal/format"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	loc   *time.Location
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
		loc:   p.Cfg.Location(),
	}
}

type invoiceAggregate struct {
	InvoiceCount      int64
	DraftCount        int64
	OutstandingAmount int64
	OverdueCount      int64
	OverdueAmount     int64
	PaidThisMonth     int64
}

type savingsAggregate struct {
	Saved  int64
	Target int64
}

// Summary derives overdue from due dates against today, the same rule reads
// use, so stored overdue flags never skew it.
func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Summary{}, domain.ErrInvalidAccount
	}

	now := s.clock.Now().UTC()
	today := format.DateOf(now, s.loc)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	invoices, err := s.aggregateInvoices(ctx, accountID, today, monthStart, nextMonth)
	if err != nil {
		return domain.Summary{}, err
	}

	var clientCount int64
	if err := s.db.WithContext(ctx).
		Table("clients").
		Where("account_id = ?", accountID).
		Count(&clientCount).Error; err != nil {
		return domain.Summary{}, err
	}

	var remindersDue int64
	if err := s.db.WithContext(ctx).
		Model(&reminderdomain.Reminder{}).
		Where("account_id = ? AND status = ? AND scheduled_at <= ?", accountID, reminderdomain.StatusPending, now).
		Count(&remindersDue).Error; err != nil {
		return domain.Summary{}, err
	}

	var savings savingsAggregate
	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(saved_amount), 0) AS saved, COALESCE(SUM(target_amount), 0) AS target
		 FROM savings_goals WHERE account_id = ?`,
		accountID,
	).Scan(&savings).Error; err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		InvoiceCount:      invoices.InvoiceCount,
		DraftCount:        invoices.DraftCount,
		OutstandingAmount: invoices.OutstandingAmount,
		OverdueCount:      invoices.OverdueCount,
		OverdueAmount:     invoices.OverdueAmount,
		PaidThisMonth:     invoices.PaidThisMonth,
		ClientCount:       clientCount,
		RemindersDue:      remindersDue,
		SavingsSaved:      savings.Saved,
		SavingsTarget:     savings.Target,

		OutstandingDisplay:   format.FormatINR(invoices.OutstandingAmount),
		OverdueDisplay:       format.FormatINR(invoices.OverdueAmount),
		PaidThisMonthDisplay: format.FormatINR(invoices.PaidThisMonth),
		SavingsDisplay:       format.FormatINR(savings.Saved),
	}, nil
}

func (s *Service) aggregateInvoices(ctx context.Context, accountID snowflake.ID, today, monthStart, nextMonth time.Time) (invoiceAggregate, error) {
	var agg invoiceAggregate
	outstanding := []invoicedomain.Status{invoicedomain.StatusSent, invoicedomain.StatusOverdue}
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS invoice_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS draft_count,
			COALESCE(SUM(CASE WHEN status IN ? THEN total_amount ELSE 0 END), 0) AS outstanding_amount,
			COALESCE(SUM(CASE WHEN status IN ? AND due_date < ? THEN 1 ELSE 0 END), 0) AS overdue_count,
			COALESCE(SUM(CASE WHEN status IN ? AND due_date < ? THEN total_amount ELSE 0 END), 0) AS overdue_amount,
			COALESCE(SUM(CASE WHEN status = ? AND paid_date >= ? AND paid_date < ? THEN total_amount ELSE 0 END), 0) AS paid_this_month
		 FROM invoices
		 WHERE account_id = ?`,
		invoicedomain.StatusDraft,
		outstanding,
		outstanding, today,
		outstanding, today,
		invoicedomain.StatusPaid, monthStart, nextMonth,
		accountID,
	).Scan(&agg).Error
	if err != nil {
		return invoiceAggregate{}, err
	}
	return agg, nil
}
