package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	clientrepository "github.com/smallbiznis/hisaab/internal/client/repository"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/internal/invoice/repository"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	messagelogrepository "github.com/smallbiznis/hisaab/internal/messagelog/repository"
	messagelogservice "github.com/smallbiznis/hisaab/internal/messagelog/service"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	projectrepository "github.com/smallbiznis/hisaab/internal/project/repository"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	reminderrepository "github.com/smallbiznis/hisaab/internal/reminder/repository"
	settingsrepository "github.com/smallbiznis/hisaab/internal/settings/repository"
	settingsservice "github.com/smallbiznis/hisaab/internal/settings/service"
	"github.com/smallbiznis/hisaab/internal/testutil"
	"github.com/smallbiznis/hisaab/internal/validation"
	"github.com/smallbiznis/hisaab/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var invoiceNumberRe = regexp.MustCompile(`^[A-Z]+-[0-9]{4}-[0-9]{4}$`)

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration, time.Duration) (func(), error) {
	return nil, errors.New("lock held elsewhere")
}

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	reachable clientdomain.Client
	silent    clientdomain.Client
}

func newFixture(t *testing.T, locker lock.Locker) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	node := testutil.NewNode(t)
	// 11:00 IST on 10 March 2025
	clk := testutil.Clock(2025, time.March, 10, 11, 0)
	cfg := testutil.Config()
	clientRepo := clientrepository.Provide()

	now := clk.Now().UTC()
	reachable := clientdomain.Client{ID: 11, AccountID: testutil.AccountID, Name: "Acme", WhatsApp: "919876543210", CreatedAt: now, UpdatedAt: now}
	silent := clientdomain.Client{ID: 12, AccountID: testutil.AccountID, Name: "Quiet Co", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, clientRepo.Insert(testutil.Ctx(), conn, &reachable))
	require.NoError(t, clientRepo.Insert(testutil.Ctx(), conn, &silent))

	svc := NewService(Params{
		DB:      conn,
		Log:     testutil.Logger(),
		GenID:   node,
		Clock:   clk,
		Cfg:     cfg,
		Policy:  config.NewStaticReminderPolicy(config.DefaultReminderPolicy()),
		Locker:  locker,
		Metrics: metrics.NewNoop(),
		Repo:    repository.Provide(),

		ClientRepo:   clientRepo,
		ProjectRepo:  projectrepository.Provide(),
		ReminderRepo: reminderrepository.Provide(),
		SettingsSvc: settingsservice.New(settingsservice.Params{
			DB:    conn,
			Log:   testutil.Logger(),
			Cfg:   cfg,
			Clock: clk,
			Repo:  settingsrepository.Provide(),
		}),
		MessageLog: messagelogservice.NewService(messagelogservice.Params{
			DB:    conn,
			Log:   testutil.Logger(),
			GenID: node,
			Clock: clk,
			Repo:  messagelogrepository.Provide(),
		}),
	})
	return fixture{svc: svc, db: conn, clock: clk, reachable: reachable, silent: silent}
}

func designWork() []domain.ItemInput {
	return []domain.ItemInput{{Title: "Logo design", Qty: 1, Rate: 1000000}}
}

func (f fixture) create(t *testing.T, client clientdomain.Client, status domain.Status, issue, due string) domain.Invoice {
	t.Helper()
	inv, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID:  client.ID.String(),
		IssueDate: issue,
		DueDate:   due,
		Status:    status,
		Items:     designWork(),
	})
	require.NoError(t, err)
	return inv
}

func (f fixture) reminders(t *testing.T, invoiceID snowflake.ID) []reminderdomain.Reminder {
	t.Helper()
	var rows []reminderdomain.Reminder
	require.NoError(t, f.db.Where("invoice_id = ?", invoiceID).Order("scheduled_at asc").Find(&rows).Error)
	return rows
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateComputesTotalsWithDefaultGST(t *testing.T) {
	f := newFixture(t, nil)

	inv := f.create(t, f.reachable, "", "", "2025-03-25")
	assert.Equal(t, int64(1000000), inv.Subtotal)
	assert.Equal(t, int64(180000), inv.GSTAmount)
	assert.Equal(t, int64(1180000), inv.TotalAmount)
	assert.Equal(t, domain.StatusDraft, inv.Status)
	assert.Equal(t, "2025-03-10", inv.IssueDate.Format("2006-01-02"))

	got, err := f.svc.GetByID(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1000000), got.Items[0].Amount)
	assert.Equal(t, got.Subtotal+got.GSTAmount, got.TotalAmount)
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	f := newFixture(t, nil)

	first := f.create(t, f.reachable, "", "2025-03-10", "2025-03-25")
	second := f.create(t, f.reachable, "", "2025-03-10", "2025-03-25")

	assert.Regexp(t, invoiceNumberRe, first.InvoiceNumber)
	assert.Equal(t, "INV-2025-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-2025-0002", second.InvoiceNumber)
}

func TestCreateUsesPrefixOverride(t *testing.T) {
	f := newFixture(t, nil)

	inv, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID: f.reachable.ID.String(),
		Prefix:   "hh",
		DueDate:  "2025-03-25",
		Items:    designWork(),
	})
	require.NoError(t, err)
	assert.Equal(t, "HH-2025-0001", inv.InvoiceNumber)

	// sequences are per prefix
	other := f.create(t, f.reachable, "", "", "2025-03-25")
	assert.Equal(t, "INV-2025-0001", other.InvoiceNumber)

	_, err = f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID: f.reachable.ID.String(),
		Prefix:   "H-1",
		DueDate:  "2025-03-25",
		Items:    designWork(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrefix)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	f := newFixture(t, nil)

	const n = 8
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
				ClientID: f.reachable.ID.String(),
				DueDate:  "2025-03-25",
				Items:    designWork(),
			})
			if assert.NoError(t, err) {
				numbers <- inv.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["INV-2025-0008"])
}

func TestCreateVerifiesSuppliedTotals(t *testing.T) {
	f := newFixture(t, nil)
	sub, gst, total := int64(1000000), int64(180000), int64(1180000)

	inv, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID:    f.reachable.ID.String(),
		DueDate:     "2025-03-25",
		Items:       designWork(),
		Subtotal:    &sub,
		GSTAmount:   &gst,
		TotalAmount: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, total, inv.TotalAmount)

	wrong := int64(1190000)
	_, err = f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID:    f.reachable.ID.String(),
		DueDate:     "2025-03-25",
		Items:       designWork(),
		Subtotal:    &sub,
		GSTAmount:   &gst,
		TotalAmount: &wrong,
	})
	assert.ErrorIs(t, err, domain.ErrTotalsMismatch)
	assert.Equal(t, int64(1), f.count(t, &domain.Invoice{}))
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := testutil.Ctx()

	_, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{ClientID: f.reachable.ID.String(), DueDate: "2025-03-25"})
	assert.ErrorIs(t, err, domain.ErrNoItems)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{ClientID: "999", DueDate: "2025-03-25", Items: designWork()})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{ClientID: f.reachable.ID.String(), Status: domain.StatusPaid, DueDate: "2025-03-25", Items: designWork()})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{ClientID: f.reachable.ID.String(), IssueDate: "2025-03-10", DueDate: "2025-03-01", Items: designWork()})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "due_date", verrs.Fields[0].Field)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{ClientID: f.reachable.ID.String(), Items: designWork()})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "required", verrs.Fields[0].Code)

	assert.Zero(t, f.count(t, &domain.Invoice{}))
	assert.Zero(t, f.count(t, &domain.InvoiceSequence{}))
}

func TestCreateFailsWhenNumberingLockIsBusy(t *testing.T) {
	f := newFixture(t, busyLocker{})

	_, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID: f.reachable.ID.String(),
		DueDate:  "2025-03-25",
		Items:    designWork(),
	})
	assert.ErrorIs(t, err, domain.ErrNumberingBusy)
	assert.Zero(t, f.count(t, &domain.Invoice{}))
	assert.Zero(t, f.count(t, &domain.InvoiceSequence{}))
}

func TestCreateRollsBackEverythingOnConflict(t *testing.T) {
	f := newFixture(t, nil)

	// A row already holding the next number forces the insert to fail after
	// the sequence was bumped.
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Exec(
		`INSERT INTO invoices (id, account_id, invoice_number, client_id, issue_date, due_date, subtotal, gst_amount, total_amount, status, utr_reference, pdf_url, created_at, updated_at)
		 VALUES (1, ?, 'INV-2025-0001', ?, ?, ?, 0, 0, 0, 'draft', '', '', ?, ?)`,
		testutil.AccountID, f.reachable.ID, day, day, day, day,
	).Error)

	_, err := f.svc.Create(testutil.Ctx(), domain.CreateInvoiceRequest{
		ClientID: f.reachable.ID.String(),
		DueDate:  "2025-03-25",
		Items:    designWork(),
	})
	assert.ErrorIs(t, err, domain.ErrNumberingBusy)
	assert.Equal(t, int64(1), f.count(t, &domain.Invoice{}))
	assert.Zero(t, f.count(t, &domain.InvoiceItem{}))
	assert.Zero(t, f.count(t, &domain.InvoiceSequence{}))
}

func TestCreateSentSchedulesStandardReminders(t *testing.T) {
	f := newFixture(t, nil)

	inv := f.create(t, f.reachable, domain.StatusSent, "2025-03-10", "2025-03-25")
	assert.Equal(t, domain.StatusSent, inv.Status)

	rows := f.reminders(t, inv.ID)
	require.Len(t, rows, 3)
	ist := time.FixedZone("IST", 5*60*60+30*60)
	for i, day := range []int{13, 17, 24} {
		assert.True(t, rows[i].ScheduledAt.Equal(time.Date(2025, 3, day, 10, 0, 0, 0, ist)), rows[i].ScheduledAt)
		assert.Equal(t, reminderdomain.ChannelWhatsApp, rows[i].Channel)
		assert.Equal(t, reminderdomain.StatusPending, rows[i].Status)
	}
}

func TestSendWithoutChannelWarnsButSends(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.silent, "", "2025-03-10", "2025-03-25")

	res, err := f.svc.Send(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, res.Invoice.Status)
	assert.Zero(t, res.RemindersCreated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Quiet Co")
	assert.Empty(t, f.reminders(t, inv.ID))

	_, err = f.svc.Send(testutil.Ctx(), inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var logs []messagelogdomain.MessageLog
	require.NoError(t, f.db.Where("related_id = ?", inv.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "invoice_sent", logs[0].TemplateUsed)
}

func TestSendSkipsOffsetsAlreadyPast(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.reachable, "", "2025-03-01", "2025-03-20")

	res, err := f.svc.Send(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	// +3 and +7 fall before 10 March; only +14 remains
	assert.Equal(t, 1, res.RemindersCreated)
	assert.Len(t, res.Warnings, 2)
}

func TestOverdueIsDerivedOnRead(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.reachable, domain.StatusSent, "2025-03-01", "2025-03-09")

	got, err := f.svc.GetByID(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.Status)
	assert.Equal(t, 1, got.DaysOverdue)

	var stored domain.Invoice
	require.NoError(t, f.db.First(&stored, "id = ?", inv.ID).Error)
	assert.Equal(t, domain.StatusSent, stored.Status)

	overdue, err := f.svc.List(testutil.Ctx(), domain.ListInvoiceRequest{Status: "overdue"})
	require.NoError(t, err)
	require.Len(t, overdue.Invoices, 1)

	sent, err := f.svc.List(testutil.Ctx(), domain.ListInvoiceRequest{Status: "sent"})
	require.NoError(t, err)
	assert.Empty(t, sent.Invoices)

	// a day later the count moves without any write
	f.clock.Advance(24 * time.Hour)
	got, err = f.svc.GetByID(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.DaysOverdue)
}

func TestDueTodayIsNotOverdue(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.reachable, domain.StatusSent, "2025-03-01", "2025-03-10")

	got, err := f.svc.GetByID(testutil.Ctx(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)
	assert.Zero(t, got.DaysOverdue)
}

func TestMarkOverduePersistsDerivedStatus(t *testing.T) {
	f := newFixture(t, nil)
	overdue := f.create(t, f.reachable, domain.StatusSent, "2025-03-01", "2025-03-09")
	f.create(t, f.reachable, domain.StatusSent, "2025-03-01", "2025-03-30")
	f.create(t, f.reachable, "", "2025-03-01", "2025-03-02")

	updated, err := f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	var stored domain.Invoice
	require.NoError(t, f.db.First(&stored, "id = ?", overdue.ID).Error)
	assert.Equal(t, domain.StatusOverdue, stored.Status)

	updated, err = f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestMarkPaidSkipsPendingReminders(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.reachable, domain.StatusSent, "2025-03-10", "2025-03-25")
	require.Len(t, f.reminders(t, inv.ID), 3)

	paid, err := f.svc.MarkPaid(testutil.Ctx(), domain.MarkPaidRequest{
		ID:           inv.ID.String(),
		PaidDate:     "2025-03-12",
		UTRReference: " 412345678901 ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, "2025-03-12", paid.PaidDate.Format("2006-01-02"))
	assert.Equal(t, "412345678901", paid.UTRReference)

	for _, r := range f.reminders(t, inv.ID) {
		assert.Equal(t, reminderdomain.StatusSkipped, r.Status)
	}

	_, err = f.svc.MarkPaid(testutil.Ctx(), domain.MarkPaidRequest{ID: inv.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var logs []messagelogdomain.MessageLog
	require.NoError(t, f.db.Where("related_id = ? AND template_used = ?", inv.ID, "invoice_paid").Find(&logs).Error)
	require.Len(t, logs, 1)
	// JSONMap scans numbers as json.Number.
	skipped, ok := logs[0].Metadata["skipped_reminders"].(json.Number)
	require.True(t, ok, "skipped_reminders is %T", logs[0].Metadata["skipped_reminders"])
	count, err := skipped.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMarkPaidFromDraftAndOverdue(t *testing.T) {
	f := newFixture(t, nil)

	draft := f.create(t, f.reachable, "", "2025-03-10", "2025-03-25")
	paid, err := f.svc.MarkPaid(testutil.Ctx(), domain.MarkPaidRequest{ID: draft.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", paid.PaidDate.Format("2006-01-02"))

	overdue := f.create(t, f.reachable, domain.StatusSent, "2025-03-01", "2025-03-05")
	paid, err = f.svc.MarkPaid(testutil.Ctx(), domain.MarkPaidRequest{ID: overdue.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.Zero(t, paid.DaysOverdue)
}

func TestInvoicesAreScopedToAccount(t *testing.T) {
	f := newFixture(t, nil)
	inv := f.create(t, f.reachable, "", "", "2025-03-25")

	_, err := f.svc.GetByID(testutil.CtxFor(2002), inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Send(testutil.CtxFor(2002), inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := f.svc.List(testutil.CtxFor(2002), domain.ListInvoiceRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Invoices)
}
