package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	invoiceNumberRe = regexp.MustCompile(`^([A-Z]+)-([0-9]{4})-([0-9]{4})$`)
	prefixRe        = regexp.MustCompile(`^[A-Z]+$`)
)

// MaxInvoiceSequence is the largest sequence a 4-digit invoice number holds.
const MaxInvoiceSequence = 9999

// InvoiceNumber is the parsed form of <PREFIX>-<YEAR>-<SEQ>.
type InvoiceNumber struct {
	Prefix   string
	Year     int
	Sequence int64
}

// FormatInvoiceNumber renders <prefix>-<year>-<4-digit seq>.
//
// Pure: no side effects, no DB access.
func FormatInvoiceNumber(prefix string, year int, seq int64) (string, error) {
	prefix = NormalizePrefix(prefix)
	if !ValidPrefix(prefix) {
		return "", fmt.Errorf("invalid invoice prefix %q", prefix)
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("invalid invoice year: %d", year)
	}
	if seq <= 0 || seq > MaxInvoiceSequence {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, seq), nil
}

// ParseInvoiceNumber splits a formatted invoice number.
func ParseInvoiceNumber(value string) (InvoiceNumber, error) {
	match := invoiceNumberRe.FindStringSubmatch(strings.TrimSpace(value))
	if len(match) != 4 {
		return InvoiceNumber{}, fmt.Errorf("malformed invoice number %q", value)
	}
	year, _ := strconv.Atoi(match[2])
	seq, _ := strconv.ParseInt(match[3], 10, 64)
	return InvoiceNumber{Prefix: match[1], Year: year, Sequence: seq}, nil
}

// NormalizePrefix trims and upper-cases a prefix.
func NormalizePrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}

// ValidPrefix reports whether prefix is one or more A-Z letters.
func ValidPrefix(prefix string) bool {
	return prefixRe.MatchString(prefix)
}

// TransactionNote is the compact UPI `tn` for an invoice: "INV" followed by
// the invoice number with all whitespace removed.
func TransactionNote(invoiceNumber string) string {
	return "INV" + strings.Join(strings.Fields(invoiceNumber), "")
}
