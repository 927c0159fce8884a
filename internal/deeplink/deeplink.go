// Package deeplink builds the external links a reminder hands off to: UPI
// payment intents, wa.me chats and mailto drafts.
package deeplink

import (
	"errors"
	"net/url"
	"strings"

	"github.com/smallbiznis/hisaab/internal/format"
	"github.com/smallbiznis/hisaab/internal/validation"
)

var (
	ErrInvalidWhatsAppNumber = errors.New("invalid_whatsapp_number")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrMissingPayee          = errors.New("missing_payee_vpa")
)

// UPIIntent carries the fields of a upi://pay link.
type UPIIntent struct {
	PayeeVPA    string
	PayeeName   string
	AmountPaise int64
	// Note is optional and sent as tn.
	Note string
}

// BuildUPIIntent renders upi://pay?pa=..&pn=..&am=..[&tn=..]. Parameter order
// is fixed since some payment apps parse positionally.
func BuildUPIIntent(in UPIIntent) (string, error) {
	pa := strings.TrimSpace(in.PayeeVPA)
	if pa == "" {
		return "", ErrMissingPayee
	}

	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(EncodeComponent(pa))
	b.WriteString("&pn=")
	b.WriteString(EncodeComponent(strings.TrimSpace(in.PayeeName)))
	b.WriteString("&am=")
	b.WriteString(format.UPIAmount(in.AmountPaise))
	if note := strings.TrimSpace(in.Note); note != "" {
		b.WriteString("&tn=")
		b.WriteString(EncodeComponent(note))
	}
	return b.String(), nil
}

// BuildWhatsAppURL sanitizes phone and renders https://wa.me/<91..>?text=...
func BuildWhatsAppURL(phone, text string) (string, error) {
	digits := validation.SanitizePhoneForWhatsApp(phone)
	if digits == "" {
		return "", ErrInvalidWhatsAppNumber
	}
	return "https://wa.me/" + digits + "?text=" + EncodeComponent(text), nil
}

// BuildMailtoURL renders mailto:<email>?subject=..&body=..
func BuildMailtoURL(email, subject, body string) (string, error) {
	email = strings.TrimSpace(email)
	if !validation.ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	return "mailto:" + email + "?subject=" + EncodeComponent(subject) + "&body=" + EncodeComponent(body), nil
}

// EncodeComponent percent-encodes a query value with spaces as %20, which
// both mail clients and UPI apps expect.
func EncodeComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
