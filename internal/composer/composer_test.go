package composer

import (
	"net/url"
	"strings"
	"testing"
	"time"

	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/config"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// subject is INV-2025-0007 for ₹11,800.00, due 9 March, derived for today.
func subject(client clientdomain.Client, stored invoicedomain.Status, today time.Time) Subject {
	inv := invoicedomain.Invoice{
		InvoiceNumber: "INV-2025-0007",
		IssueDate:     date(2025, time.March, 1),
		DueDate:       date(2025, time.March, 9),
		Subtotal:      1000000,
		GSTAmount:     180000,
		TotalAmount:   1180000,
		Status:        stored,
	}
	inv.Derive(today)
	return Subject{
		Invoice:  inv,
		Client:   client,
		Settings: settingsdomain.Settings{CreatorDisplayName: "Asha", UPIVPA: "asha@okaxis"},
		Today:    today,
	}
}

func TestReminderWithoutWhatsAppFailsBeforeBuildingLink(t *testing.T) {
	c := New(nil)
	client := clientdomain.Client{Name: "Acme", Email: "pay@acme.in"}
	s := subject(client, invoicedomain.StatusSent, date(2025, time.March, 10))

	_, err := c.Reminder(reminderdomain.ChannelWhatsApp, s)
	assert.ErrorIs(t, err, ErrMissingWhatsApp)
	assert.Contains(t, err.Error(), "no WhatsApp number")

	msg, err := c.Reminder(reminderdomain.ChannelEmail, s)
	require.NoError(t, err)
	assert.Equal(t, "reminder_email", msg.Template)
	assert.Contains(t, msg.Body, "1 day overdue")
	assert.Contains(t, msg.Body, "₹11,800.00")
	assert.Equal(t, "Invoice INV-2025-0007 due on 09 Mar 2025", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.URL, "mailto:pay@acme.in?subject="))
}

func TestReminderEmailWithoutAddress(t *testing.T) {
	s := subject(clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"}, invoicedomain.StatusSent, date(2025, time.March, 5))
	_, err := New(nil).Reminder(reminderdomain.ChannelEmail, s)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestReminderWhatsAppCarriesUPIIntent(t *testing.T) {
	client := clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"}
	s := subject(client, invoicedomain.StatusSent, date(2025, time.March, 5))

	msg, err := New(nil).Reminder(reminderdomain.ChannelWhatsApp, s)
	require.NoError(t, err)
	assert.Equal(t, "reminder_whatsapp", msg.Template)
	assert.Contains(t, msg.Body, "due on 09/03/2025")
	assert.Equal(t, "upi://pay?pa=asha%40okaxis&pn=Asha&am=11800&tn=INVINV-2025-0007", msg.UPIIntent)
	assert.Contains(t, msg.Body, msg.UPIIntent)

	parsed, err := url.Parse(msg.URL)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", parsed.Host)
	assert.Equal(t, "/919876543210", parsed.Path)
	assert.Equal(t, msg.Body, parsed.Query().Get("text"))
}

func TestPaidReminderHasNoPaymentLink(t *testing.T) {
	client := clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"}
	s := subject(client, invoicedomain.StatusPaid, date(2025, time.March, 20))

	msg, err := New(nil).Reminder(reminderdomain.ChannelWhatsApp, s)
	require.NoError(t, err)
	assert.Empty(t, msg.UPIIntent)
	assert.Contains(t, msg.Body, "paid in full")
	assert.NotContains(t, msg.Body, "upi://")
}

func TestPayeeVPAPrefersClient(t *testing.T) {
	settings := settingsdomain.Settings{UPIVPA: "studio@okaxis"}
	assert.Equal(t, "acme@okhdfc", PayeeVPA(clientdomain.Client{UPIVPA: " acme@okhdfc "}, settings))
	assert.Equal(t, "studio@okaxis", PayeeVPA(clientdomain.Client{}, settings))
	assert.Empty(t, PayeeVPA(clientdomain.Client{}, settingsdomain.Settings{}))
}

func TestNoVPAMeansNoIntent(t *testing.T) {
	client := clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"}
	s := subject(client, invoicedomain.StatusSent, date(2025, time.March, 5))
	s.Settings.UPIVPA = ""

	msg, err := New(nil).Reminder(reminderdomain.ChannelWhatsApp, s)
	require.NoError(t, err)
	assert.Empty(t, msg.UPIIntent)
	assert.NotContains(t, msg.Body, "Pay via UPI")
}

func TestSelectTone(t *testing.T) {
	thresholds := config.ToneThresholds{GentleMaxDays: 7, ProfessionalMaxDays: 14}
	cases := []struct {
		days int
		want Tone
	}{
		{0, ToneGentle},
		{7, ToneGentle},
		{8, ToneProfessional},
		{14, ToneProfessional},
		{15, ToneFirm},
		{90, ToneFirm},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectTone(tc.days, thresholds), "days=%d", tc.days)
	}
}

func TestFollowUpEscalates(t *testing.T) {
	c := New(config.NewStaticReminderPolicy(config.DefaultReminderPolicy()))
	client := clientdomain.Client{Name: "Acme", WhatsApp: "919876543210", Email: "pay@acme.in"}

	cases := []struct {
		today    time.Time
		tone     Tone
		template string
		phrase   string
	}{
		{date(2025, time.March, 12), ToneGentle, "follow_up_gentle_whatsapp", "3 days overdue"},
		{date(2025, time.March, 19), ToneProfessional, "follow_up_professional_whatsapp", "10 days overdue"},
		{date(2025, time.April, 8), ToneFirm, "follow_up_firm_whatsapp", "30 days overdue"},
	}
	for _, tc := range cases {
		msg, err := c.FollowUp(reminderdomain.ChannelWhatsApp, "", subject(client, invoicedomain.StatusSent, tc.today))
		require.NoError(t, err)
		assert.Equal(t, tc.tone, msg.Tone)
		assert.Equal(t, tc.template, msg.Template)
		assert.Contains(t, msg.Body, tc.phrase)
	}

	msg, err := c.FollowUp(reminderdomain.ChannelEmail, "follow_up", subject(client, invoicedomain.StatusSent, date(2025, time.April, 8)))
	require.NoError(t, err)
	assert.Equal(t, "follow_up_firm_email", msg.Template)
	assert.Equal(t, "Final reminder: invoice INV-2025-0007 is 30 days overdue", msg.Subject)
}

func TestFollowUpReminderFlowUsesTighterThresholds(t *testing.T) {
	c := New(config.NewStaticReminderPolicy(config.DefaultReminderPolicy()))
	client := clientdomain.Client{Name: "Acme", WhatsApp: "919876543210"}
	s := subject(client, invoicedomain.StatusSent, date(2025, time.March, 14))

	msg, err := c.FollowUp(reminderdomain.ChannelWhatsApp, "reminder", s)
	require.NoError(t, err)
	assert.Equal(t, ToneProfessional, msg.Tone)

	_, err = c.FollowUp(reminderdomain.ChannelWhatsApp, "nag", s)
	assert.ErrorIs(t, err, ErrInvalidFlow)
}

func TestDuePhrase(t *testing.T) {
	due := date(2025, time.March, 9)
	assert.Equal(t, "due on 09/03/2025", DuePhrase(invoicedomain.StatusSent, due, date(2025, time.March, 9)))
	assert.Equal(t, "1 day overdue", DuePhrase(invoicedomain.StatusOverdue, due, date(2025, time.March, 10)))
	assert.Equal(t, "2 days overdue", DuePhrase(invoicedomain.StatusOverdue, due, date(2025, time.March, 11)))
	assert.Equal(t, "paid in full", DuePhrase(invoicedomain.StatusPaid, due, date(2025, time.March, 11)))
}
