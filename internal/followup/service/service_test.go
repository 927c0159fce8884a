package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	clientrepository "github.com/smallbiznis/hisaab/internal/client/repository"
	"github.com/smallbiznis/hisaab/internal/composer"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/followup/domain"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/hisaab/internal/invoice/repository"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	messagelogrepository "github.com/smallbiznis/hisaab/internal/messagelog/repository"
	messagelogservice "github.com/smallbiznis/hisaab/internal/messagelog/service"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsrepository "github.com/smallbiznis/hisaab/internal/settings/repository"
	settingsservice "github.com/smallbiznis/hisaab/internal/settings/service"
	"github.com/smallbiznis/hisaab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc domain.Service
	db  *gorm.DB
}

// Today is 10 April 2025 in every fixture.
func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	node := testutil.NewNode(t)
	clk := testutil.Clock(2025, time.April, 10, 11, 0)
	cfg := testutil.Config()
	policy := config.NewStaticReminderPolicy(config.DefaultReminderPolicy())

	svc := NewService(Params{
		DB:          conn,
		Log:         testutil.Logger(),
		Clock:       clk,
		Cfg:         cfg,
		Policy:      policy,
		Composer:    composer.New(policy),
		Metrics:     metrics.NewNoop(),
		InvoiceRepo: invoicerepository.Provide(),
		ClientRepo:  clientrepository.Provide(),
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
	return fixture{svc: svc, db: conn}
}

func (f fixture) client(t *testing.T, id snowflake.ID, c clientdomain.Client) clientdomain.Client {
	t.Helper()
	now := time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)
	c.ID, c.AccountID, c.CreatedAt, c.UpdatedAt = id, testutil.AccountID, now, now
	require.NoError(t, clientrepository.Provide().Insert(testutil.Ctx(), f.db, &c))
	return c
}

func (f fixture) invoice(t *testing.T, id snowflake.ID, client clientdomain.Client, status invoicedomain.Status, due time.Time) invoicedomain.Invoice {
	t.Helper()
	now := time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute)
	inv := invoicedomain.Invoice{
		ID:            id,
		AccountID:     testutil.AccountID,
		InvoiceNumber: "INV-2025-" + id.String(),
		ClientID:      client.ID,
		IssueDate:     due.AddDate(0, 0, -15),
		DueDate:       due,
		Subtotal:      500000,
		GSTAmount:     90000,
		TotalAmount:   590000,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, invoicerepository.Provide().Insert(testutil.Ctx(), f.db, &inv))
	return inv
}

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCandidatesAreMostOverdueFirst(t *testing.T) {
	f := newFixture(t)
	acme := f.client(t, 10, clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"})
	quiet := f.client(t, 20, clientdomain.Client{Name: "Quiet"})

	f.invoice(t, 1001, acme, invoicedomain.StatusSent, day(time.April, 5))
	f.invoice(t, 1002, quiet, invoicedomain.StatusOverdue, day(time.March, 1))
	f.invoice(t, 1003, acme, invoicedomain.StatusSent, day(time.March, 30))
	f.invoice(t, 1004, acme, invoicedomain.StatusSent, day(time.April, 20))
	f.invoice(t, 1005, acme, invoicedomain.StatusPaid, day(time.March, 1))
	f.invoice(t, 1006, acme, invoicedomain.StatusDraft, day(time.March, 1))

	got, err := f.svc.Candidates(testutil.Ctx(), "")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, snowflake.ID(1002), got[0].Invoice.ID)
	assert.Equal(t, 40, got[0].DaysOverdue)
	assert.Equal(t, composer.ToneFirm, got[0].Tone)
	assert.Equal(t, "Quiet", got[0].ClientName)
	assert.False(t, got[0].HasWhatsApp)

	assert.Equal(t, snowflake.ID(1003), got[1].Invoice.ID)
	assert.Equal(t, 11, got[1].DaysOverdue)
	assert.Equal(t, composer.ToneProfessional, got[1].Tone)

	assert.Equal(t, snowflake.ID(1001), got[2].Invoice.ID)
	assert.Equal(t, 5, got[2].DaysOverdue)
	assert.Equal(t, composer.ToneGentle, got[2].Tone)
	assert.True(t, got[2].HasWhatsApp)

	_, err = f.svc.Candidates(testutil.Ctx(), "weekly")
	assert.ErrorIs(t, err, composer.ErrInvalidFlow)
}

func TestComposeRequiresOverdueInvoice(t *testing.T) {
	f := newFixture(t)
	acme := f.client(t, 10, clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"})
	current := f.invoice(t, 1001, acme, invoicedomain.StatusSent, day(time.April, 10))

	_, err := f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: current.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotOverdue)

	_, err = f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: "999"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestComposeChannelRules(t *testing.T) {
	f := newFixture(t)
	quiet := f.client(t, 20, clientdomain.Client{Name: "Quiet"})
	mail := f.client(t, 30, clientdomain.Client{Name: "Mail", Email: "pay@mail.in"})
	silent := f.invoice(t, 1001, quiet, invoicedomain.StatusSent, day(time.April, 1))
	emailOnly := f.invoice(t, 1002, mail, invoicedomain.StatusSent, day(time.April, 1))

	_, err := f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: silent.ID.String()})
	assert.ErrorIs(t, err, reminderdomain.ErrNoChannel)

	_, err = f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: emailOnly.ID.String(), Channel: "whatsapp"})
	assert.ErrorIs(t, err, composer.ErrMissingWhatsApp)

	msg, err := f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: emailOnly.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, reminderdomain.ChannelEmail, msg.Channel)
	assert.Equal(t, composer.ToneProfessional, msg.Tone)
	assert.Contains(t, msg.Body, "9 days overdue")
	assert.Contains(t, msg.Body, "₹5,900.00")
}

func TestComposeDoesNotLogButRecordDoes(t *testing.T) {
	f := newFixture(t)
	acme := f.client(t, 10, clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"})
	inv := f.invoice(t, 1001, acme, invoicedomain.StatusSent, day(time.April, 7))

	_, err := f.svc.Compose(testutil.Ctx(), domain.ComposeRequest{InvoiceID: inv.ID.String()})
	require.NoError(t, err)
	var n int64
	require.NoError(t, f.db.Model(&messagelogdomain.MessageLog{}).Count(&n).Error)
	assert.Zero(t, n)

	msg, err := f.svc.Record(testutil.Ctx(), domain.ComposeRequest{InvoiceID: inv.ID.String(), Flow: "reminder"})
	require.NoError(t, err)
	assert.Equal(t, composer.ToneGentle, msg.Tone)

	var logs []messagelogdomain.MessageLog
	require.NoError(t, f.db.Where("related_id = ?", inv.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "follow_up_gentle_whatsapp", logs[0].TemplateUsed)
	assert.Equal(t, "whatsapp", logs[0].Channel)
	assert.Equal(t, "reminder", logs[0].Metadata["flow"])
	assert.Equal(t, "gentle", logs[0].Metadata["tone"])
}

func TestReminderPreview(t *testing.T) {
	f := newFixture(t)
	acme := f.client(t, 10, clientdomain.Client{Name: "Acme", WhatsApp: "919876543210", UPIVPA: "acme@okhdfc"})
	draft := f.invoice(t, 1001, acme, invoicedomain.StatusDraft, day(time.April, 20))
	sent := f.invoice(t, 1002, acme, invoicedomain.StatusSent, day(time.April, 20))

	_, err := f.svc.Reminder(testutil.Ctx(), domain.ComposeRequest{InvoiceID: draft.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotSent)

	msg, err := f.svc.Reminder(testutil.Ctx(), domain.ComposeRequest{InvoiceID: sent.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, reminderdomain.ChannelWhatsApp, msg.Channel)
	assert.Contains(t, msg.URL, "https://wa.me/919876543210?text=")
	assert.Contains(t, msg.UPIIntent, "pa=acme%40okhdfc")

	_, err = f.svc.Reminder(testutil.Ctx(), domain.ComposeRequest{InvoiceID: sent.ID.String(), Channel: "email"})
	assert.ErrorIs(t, err, composer.ErrMissingEmail)
}

func TestPaymentQR(t *testing.T) {
	f := newFixture(t)
	acme := f.client(t, 10, clientdomain.Client{Name: "Acme", UPIVPA: "acme@okhdfc"})
	quiet := f.client(t, 20, clientdomain.Client{Name: "Quiet"})
	open := f.invoice(t, 1001, acme, invoicedomain.StatusSent, day(time.April, 20))
	paid := f.invoice(t, 1002, acme, invoicedomain.StatusPaid, day(time.April, 1))
	noVPA := f.invoice(t, 1003, quiet, invoicedomain.StatusSent, day(time.April, 20))

	png, err := f.svc.PaymentQR(testutil.Ctx(), open.ID.String(), 128)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	_, err = f.svc.PaymentQR(testutil.Ctx(), paid.ID.String(), 0)
	assert.ErrorIs(t, err, domain.ErrNothingToPay)

	_, err = f.svc.PaymentQR(testutil.Ctx(), noVPA.ID.String(), 0)
	assert.ErrorIs(t, err, domain.ErrNoPayeeVPA)
}
