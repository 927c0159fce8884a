// Package validation holds the field rules shared by services and HTTP
// binding: Indian mobile numbers, GSTIN, UPI VPAs, emails and contact hours.
package validation

import "strings"

// Result is the outcome of a single field check. Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason string
}

func ok() Result { return Result{Valid: true} }

func fail(reason string) Result { return Result{Reason: reason} }

// SanitizePhoneForWhatsApp strips every non-digit and returns the 12-digit
// "91XXXXXXXXXX" form accepted by wa.me, or "" when the number cannot be
// messaged.
//
// Accepted shapes: 10 digits starting 6-9, 12 digits "91" + 6-9 subscriber
// digit, 13 digits "091" + 6-9 subscriber digit.
func SanitizePhoneForWhatsApp(phone string) string {
	digits := digitsOnly(phone)

	switch len(digits) {
	case 10:
		if isSubscriberLead(digits[0]) {
			return "91" + digits
		}
	case 12:
		if strings.HasPrefix(digits, "91") && isSubscriberLead(digits[2]) {
			return digits
		}
	case 13:
		if strings.HasPrefix(digits, "091") && isSubscriberLead(digits[3]) {
			return digits[1:]
		}
	}
	return ""
}

// ValidateIndianMobile accepts an empty value (the field is optional) and
// otherwise anything SanitizePhoneForWhatsApp can normalize.
func ValidateIndianMobile(phone string) Result {
	if strings.TrimSpace(phone) == "" {
		return ok()
	}
	if SanitizePhoneForWhatsApp(phone) == "" {
		return fail("Enter a valid 10-digit Indian mobile number")
	}
	return ok()
}

func digitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if c := value[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSubscriberLead(c byte) bool {
	return c >= '6' && c <= '9'
}
