package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatINR(t *testing.T) {
	cases := map[int64]string{
		0:            "₹0.00",
		5:            "₹0.05",
		10000:        "₹100.00",
		100000:       "₹1,000.00",
		123456750:    "₹12,34,567.50",
		10000000:     "₹1,00,000.00",
		1000000000:   "₹1,00,00,000.00",
		123456789012: "₹1,23,45,67,890.12",
		-250050:      "-₹2,500.50",
	}
	for paise, want := range cases {
		assert.Equal(t, want, FormatINR(paise), "paise=%d", paise)
	}
}

func TestUPIAmount(t *testing.T) {
	assert.Equal(t, "100", UPIAmount(10000))
	assert.Equal(t, "100.50", UPIAmount(10050))
	assert.Equal(t, "100.05", UPIAmount(10005))
	assert.Equal(t, "0", UPIAmount(-1))
}

func TestFormatInvoiceNumber(t *testing.T) {
	got, err := FormatInvoiceNumber("hh", 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "HH-2025-0001", got)

	_, err = FormatInvoiceNumber("H1", 2025, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("HH", 2025, 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("HH", 2025, 10000)
	assert.Error(t, err)
}

func TestParseInvoiceNumber(t *testing.T) {
	n, err := ParseInvoiceNumber("HH-2025-0042")
	require.NoError(t, err)
	assert.Equal(t, InvoiceNumber{Prefix: "HH", Year: 2025, Sequence: 42}, n)

	_, err = ParseInvoiceNumber("HH-25-0042")
	assert.Error(t, err)
}

func TestTransactionNote(t *testing.T) {
	assert.Equal(t, "INVHH-2025-0001", TransactionNote("HH-2025-0001"))
	assert.Equal(t, "INVHH-2025-0001", TransactionNote(" HH - 2025-0001 "))
}

func TestDates(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	due := time.Date(2025, time.March, 5, 0, 0, 0, 0, loc)
	assert.Equal(t, "05/03/2025", DateNumeric(due))
	assert.Equal(t, "05 Mar 2025", DateLong(due))

	now := time.Date(2025, time.March, 6, 18, 30, 0, 0, loc)
	assert.Equal(t, 1, DaysBetween(due, now, loc))
	assert.Equal(t, -1, DaysBetween(now, due, loc))
	assert.Equal(t, 0, DaysBetween(due, due.Add(23*time.Hour), loc))

	parsed, err := ParseISODate("2025-03-05", loc)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(due))
}

func TestCivilDates(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on 4 March is already 5 March in India.
	now := time.Date(2025, time.March, 4, 20, 0, 0, 0, time.UTC)
	today := DateOf(now, loc)
	assert.Equal(t, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), today)

	due := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysBetweenDates(due, today))
	assert.Equal(t, -5, DaysBetweenDates(today, due))

	at := At(today, 10, 30, loc)
	assert.Equal(t, time.Date(2025, time.March, 5, 5, 0, 0, 0, time.UTC), at.UTC())
}
