// Package composer turns an invoice into client-facing reminder messages
// and the links that deliver them.
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/hisaab/internal/deeplink"
	"github.com/smallbiznis/hisaab/internal/format"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
)

// ReminderInput is everything a reminder message shows. AmountPaise is the
// invoice total; Status is the derived status.
type ReminderInput struct {
	ClientName    string
	InvoiceNumber string
	AmountPaise   int64
	DueDate       time.Time
	Status        invoicedomain.Status
	PayeeVPA      string
	BusinessName  string
	// Today is the current calendar date in the app timezone.
	Today time.Time
}

type Text struct {
	Message   string `json:"message"`
	UPIIntent string `json:"upi_intent,omitempty"`
}

type Email struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	UPIIntent string `json:"upi_intent,omitempty"`
}

// DuePhrase describes where the invoice stands: paid, "N days overdue", or
// "due on DD/MM/YYYY".
func DuePhrase(status invoicedomain.Status, dueDate, today time.Time) string {
	switch status {
	case invoicedomain.StatusPaid:
		return "paid in full"
	case invoicedomain.StatusOverdue:
		if days := invoicedomain.DaysOverdue(dueDate, today); days > 0 {
			return OverdueDays(days)
		}
	case invoicedomain.StatusDraft, invoicedomain.StatusSent:
	}
	return "due on " + format.DateNumeric(dueDate)
}

// OverdueDays pluralizes "1 day overdue" / "N days overdue".
func OverdueDays(days int) string {
	if days == 1 {
		return "1 day overdue"
	}
	return fmt.Sprintf("%d days overdue", days)
}

// UPIIntentFor builds the payment link for in, or "" when there is no payee
// VPA or nothing left to pay.
func UPIIntentFor(in ReminderInput) (string, error) {
	if in.Status == invoicedomain.StatusPaid || strings.TrimSpace(in.PayeeVPA) == "" {
		return "", nil
	}
	return deeplink.BuildUPIIntent(deeplink.UPIIntent{
		PayeeVPA:    in.PayeeVPA,
		PayeeName:   in.BusinessName,
		AmountPaise: in.AmountPaise,
		Note:        format.TransactionNote(in.InvoiceNumber),
	})
}

// BuildReminderText renders the WhatsApp reminder body.
func BuildReminderText(in ReminderInput) (Text, error) {
	intent, err := UPIIntentFor(in)
	if err != nil {
		return Text{}, err
	}
	message, err := render(templateReminderText, messageData(in, intent))
	if err != nil {
		return Text{}, err
	}
	return Text{Message: message, UPIIntent: intent}, nil
}

// BuildReminderEmail renders the email subject and plain-text body.
func BuildReminderEmail(in ReminderInput) (Email, error) {
	intent, err := UPIIntentFor(in)
	if err != nil {
		return Email{}, err
	}
	body, err := render(templateReminderEmail, messageData(in, intent))
	if err != nil {
		return Email{}, err
	}

	subject := fmt.Sprintf("Invoice %s due on %s", in.InvoiceNumber, format.DateLong(in.DueDate))
	if in.Status == invoicedomain.StatusPaid {
		subject = fmt.Sprintf("Payment received for invoice %s", in.InvoiceNumber)
	}
	return Email{Subject: subject, Body: body, UPIIntent: intent}, nil
}

type templateData struct {
	ClientName    string
	InvoiceNumber string
	Amount        string
	DuePhrase     string
	DueDate       string
	UPIIntent     string
	BusinessName  string
	Paid          bool
}

func messageData(in ReminderInput, intent string) templateData {
	return templateData{
		ClientName:    strings.TrimSpace(in.ClientName),
		InvoiceNumber: in.InvoiceNumber,
		Amount:        format.FormatINR(in.AmountPaise),
		DuePhrase:     DuePhrase(in.Status, in.DueDate, in.Today),
		DueDate:       format.DateLong(in.DueDate),
		UPIIntent:     intent,
		BusinessName:  strings.TrimSpace(in.BusinessName),
		Paid:          in.Status == invoicedomain.StatusPaid,
	}
}
