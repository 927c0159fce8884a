package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	clientrepository "github.com/smallbiznis/hisaab/internal/client/repository"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/hisaab/internal/invoice/repository"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	reminderrepository "github.com/smallbiznis/hisaab/internal/reminder/repository"
	savingsdomain "github.com/smallbiznis/hisaab/internal/savings/domain"
	"github.com/smallbiznis/hisaab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func insertInvoice(t *testing.T, conn *gorm.DB, id snowflake.ID, status invoicedomain.Status, due time.Time, total int64, paid *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)
	require.NoError(t, invoicerepository.Provide().Insert(testutil.Ctx(), conn, &invoicedomain.Invoice{
		ID:            id,
		AccountID:     testutil.AccountID,
		InvoiceNumber: "INV-2025-" + id.String(),
		ClientID:      10,
		IssueDate:     due.AddDate(0, 0, -15),
		DueDate:       due,
		Subtotal:      total,
		TotalAmount:   total,
		Status:        status,
		PaidDate:      paid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
}

func TestSummaryDerivesOverdueFromDueDates(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := testutil.Ctx()
	clk := testutil.Clock(2025, time.March, 10, 11, 0)

	now := clk.Now().UTC()
	require.NoError(t, clientrepository.Provide().Insert(ctx, conn, &clientdomain.Client{
		ID: 10, AccountID: testutil.AccountID, Name: "Acme", CreatedAt: now, UpdatedAt: now,
	}))

	paidMarch := day(time.March, 5)
	paidFeb := day(time.February, 20)
	insertInvoice(t, conn, 1001, invoicedomain.StatusDraft, day(time.March, 20), 100000, nil)
	// stored as sent but past due
	insertInvoice(t, conn, 1002, invoicedomain.StatusSent, day(time.March, 9), 200000, nil)
	insertInvoice(t, conn, 1003, invoicedomain.StatusSent, day(time.March, 10), 300000, nil)
	insertInvoice(t, conn, 1004, invoicedomain.StatusOverdue, day(time.March, 1), 400000, nil)
	insertInvoice(t, conn, 1005, invoicedomain.StatusPaid, day(time.March, 1), 500000, &paidMarch)
	insertInvoice(t, conn, 1006, invoicedomain.StatusPaid, day(time.February, 1), 600000, &paidFeb)

	reminders := reminderrepository.Provide()
	for i, at := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		require.NoError(t, reminders.Insert(ctx, conn, &reminderdomain.Reminder{
			ID: snowflake.ID(70 + i), AccountID: testutil.AccountID, InvoiceID: 1002,
			Channel: reminderdomain.ChannelWhatsApp, ScheduledAt: at, Status: reminderdomain.StatusPending,
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, conn.Create(&savingsdomain.SavingsGoal{
		ID: 90, AccountID: testutil.AccountID, Name: "Tax", TargetAmount: 1000000, SavedAmount: 250000,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	svc := NewService(Params{DB: conn, Log: testutil.Logger(), Clock: clk, Cfg: testutil.Config()})
	got, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(6), got.InvoiceCount)
	assert.Equal(t, int64(1), got.DraftCount)
	assert.Equal(t, int64(900000), got.OutstandingAmount)
	assert.Equal(t, int64(2), got.OverdueCount)
	assert.Equal(t, int64(600000), got.OverdueAmount)
	assert.Equal(t, int64(500000), got.PaidThisMonth)
	assert.Equal(t, int64(1), got.ClientCount)
	assert.Equal(t, int64(1), got.RemindersDue)
	assert.Equal(t, int64(250000), got.SavingsSaved)
	assert.Equal(t, "₹9,000.00", got.OutstandingDisplay)
	assert.Equal(t, "₹2,500.00", got.SavingsDisplay)

	empty, err := svc.Summary(testutil.CtxFor(2002))
	require.NoError(t, err)
	assert.Zero(t, empty.InvoiceCount)
	assert.Equal(t, "₹0.00", empty.OverdueDisplay)
}
