// Package format renders amounts, dates and invoice numbers the way they are
// shown to clients in India.
package format

import (
	"strconv"
	"strings"
)

const rupeeSign = "₹"

// FormatINR renders an amount in paise with lakh/crore digit grouping and
// exactly two decimals, e.g. 123456750 -> "₹12,34,567.50".
func FormatINR(paise int64) string {
	negative := paise < 0
	if negative {
		paise = -paise
	}

	rupees := paise / 100
	fraction := paise % 100

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(rupeeSign)
	b.WriteString(groupIndian(strconv.FormatInt(rupees, 10)))
	b.WriteByte('.')
	if fraction < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(fraction, 10))
	return b.String()
}

// groupIndian groups the last three digits, then every two digits before them.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	parts := make([]string, 0, len(head)/2+2)
	if len(head)%2 == 1 {
		parts = append(parts, head[:1])
		head = head[1:]
	}
	for len(head) > 0 {
		parts = append(parts, head[:2])
		head = head[2:]
	}
	parts = append(parts, tail)
	return strings.Join(parts, ",")
}

// UPIAmount renders paise as the `am` value of a UPI intent: an integer when
// there is no fractional part, otherwise a two-decimal string.
func UPIAmount(paise int64) string {
	if paise < 0 {
		paise = 0
	}
	rupees := strconv.FormatInt(paise/100, 10)
	fraction := paise % 100
	if fraction == 0 {
		return rupees
	}
	if fraction < 10 {
		return rupees + ".0" + strconv.FormatInt(fraction, 10)
	}
	return rupees + "." + strconv.FormatInt(fraction, 10)
}
