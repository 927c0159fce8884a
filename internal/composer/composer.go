package composer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/deeplink"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
)

var (
	ErrMissingWhatsApp = errors.New("client_missing_whatsapp")
	ErrMissingEmail    = errors.New("client_missing_email")
	ErrInvalidFlow     = errors.New("invalid_flow")
)

// Subject is an invoice with the rows its messages draw on. Invoice.Status
// must already be derived for Today.
type Subject struct {
	Invoice  invoicedomain.Invoice
	Client   clientdomain.Client
	Settings settingsdomain.Settings
	Today    time.Time
}

// Message is a composed message ready to hand off. URL is the wa.me or
// mailto link; Subject is set for email only.
type Message struct {
	Channel   reminderdomain.Channel `json:"channel"`
	Template  string                 `json:"template_used"`
	Tone      Tone                   `json:"tone,omitempty"`
	Subject   string                 `json:"subject,omitempty"`
	Body      string                 `json:"message"`
	UPIIntent string                 `json:"upi_intent,omitempty"`
	URL       string                 `json:"url"`
}

type Composer struct {
	policy *config.ReminderPolicyHolder
}

func New(policy *config.ReminderPolicyHolder) *Composer {
	return &Composer{policy: policy}
}

// PayeeVPA prefers the client's own VPA over the account's.
func PayeeVPA(client clientdomain.Client, settings settingsdomain.Settings) string {
	if vpa := strings.TrimSpace(client.UPIVPA); vpa != "" {
		return vpa
	}
	return strings.TrimSpace(settings.UPIVPA)
}

// CheckChannel reports the missing prerequisite for reaching client on
// channel, if any.
func CheckChannel(channel reminderdomain.Channel, client clientdomain.Client) error {
	switch channel {
	case reminderdomain.ChannelWhatsApp:
		if !client.HasWhatsApp() {
			return ErrMissingWhatsApp
		}
	case reminderdomain.ChannelEmail:
		if !client.HasEmail() {
			return ErrMissingEmail
		}
	default:
		return fmt.Errorf("%w: %q", reminderdomain.ErrInvalidChannel, channel)
	}
	return nil
}

func inputFor(s Subject) ReminderInput {
	return ReminderInput{
		ClientName:    s.Client.Name,
		InvoiceNumber: s.Invoice.InvoiceNumber,
		AmountPaise:   s.Invoice.TotalAmount,
		DueDate:       s.Invoice.DueDate,
		Status:        s.Invoice.Status,
		PayeeVPA:      PayeeVPA(s.Client, s.Settings),
		BusinessName:  s.Settings.BusinessName(),
		Today:         s.Today,
	}
}

// Reminder composes the standard reminder for channel. A missing contact
// fails before any link is built.
func (c *Composer) Reminder(channel reminderdomain.Channel, s Subject) (Message, error) {
	if err := CheckChannel(channel, s.Client); err != nil {
		return Message{}, err
	}
	in := inputFor(s)

	switch channel {
	case reminderdomain.ChannelWhatsApp:
		text, err := BuildReminderText(in)
		if err != nil {
			return Message{}, err
		}
		url, err := deeplink.BuildWhatsAppURL(s.Client.WhatsApp, text.Message)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Channel:   channel,
			Template:  templateReminderText,
			Body:      text.Message,
			UPIIntent: text.UPIIntent,
			URL:       url,
		}, nil
	case reminderdomain.ChannelEmail:
		email, err := BuildReminderEmail(in)
		if err != nil {
			return Message{}, err
		}
		url, err := deeplink.BuildMailtoURL(s.Client.Email, email.Subject, email.Body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Channel:   channel,
			Template:  templateReminderEmail,
			Subject:   email.Subject,
			Body:      email.Body,
			UPIIntent: email.UPIIntent,
			URL:       url,
		}, nil
	}
	return Message{}, fmt.Errorf("%w: %q", reminderdomain.ErrInvalidChannel, channel)
}

// FollowUp composes an escalating message for an overdue invoice, the tone
// chosen by the flow's thresholds.
func (c *Composer) FollowUp(channel reminderdomain.Channel, flow string, s Subject) (Message, error) {
	if err := CheckChannel(channel, s.Client); err != nil {
		return Message{}, err
	}
	flow, err := ParseFlow(flow)
	if err != nil {
		return Message{}, err
	}

	days := invoicedomain.DaysOverdue(s.Invoice.DueDate, s.Today)
	tone := SelectTone(days, c.currentPolicy().Thresholds(flow))
	in := inputFor(s)
	intent, err := UPIIntentFor(in)
	if err != nil {
		return Message{}, err
	}
	data := messageData(in, intent)

	switch channel {
	case reminderdomain.ChannelWhatsApp:
		name := followUpTemplate(tone, false)
		body, err := render(name, data)
		if err != nil {
			return Message{}, err
		}
		url, err := deeplink.BuildWhatsAppURL(s.Client.WhatsApp, body)
		if err != nil {
			return Message{}, err
		}
		return Message{Channel: channel, Template: name, Tone: tone, Body: body, UPIIntent: intent, URL: url}, nil
	case reminderdomain.ChannelEmail:
		name := followUpTemplate(tone, true)
		body, err := render(name, data)
		if err != nil {
			return Message{}, err
		}
		subject := followUpSubject(tone, s.Invoice.InvoiceNumber, data.DuePhrase)
		url, err := deeplink.BuildMailtoURL(s.Client.Email, subject, body)
		if err != nil {
			return Message{}, err
		}
		return Message{Channel: channel, Template: name, Tone: tone, Subject: subject, Body: body, UPIIntent: intent, URL: url}, nil
	}
	return Message{}, fmt.Errorf("%w: %q", reminderdomain.ErrInvalidChannel, channel)
}

func (c *Composer) currentPolicy() config.ReminderPolicy {
	if c == nil || c.policy == nil {
		return config.DefaultReminderPolicy()
	}
	return c.policy.Get()
}

func followUpSubject(tone Tone, invoiceNumber, duePhrase string) string {
	switch tone {
	case ToneGentle:
		return fmt.Sprintf("Friendly reminder: invoice %s", invoiceNumber)
	case ToneProfessional:
		return fmt.Sprintf("Payment reminder: invoice %s is %s", invoiceNumber, duePhrase)
	case ToneFirm:
		return fmt.Sprintf("Final reminder: invoice %s is %s", invoiceNumber, duePhrase)
	}
	return fmt.Sprintf("Invoice %s", invoiceNumber)
}
