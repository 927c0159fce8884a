package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/hisaab/internal/format"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return status, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is allowed:
// draft -> sent, sent -> overdue, and any unpaid state -> paid.
// Paid is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusSent || next == StatusPaid
	case StatusSent:
		return next == StatusOverdue || next == StatusPaid
	case StatusOverdue:
		return next == StatusPaid
	case StatusPaid:
		return false
	}
	return false
}

// Outstanding reports whether money is still expected for the invoice.
func (s Status) Outstanding() bool {
	switch s {
	case StatusSent, StatusOverdue:
		return true
	case StatusDraft, StatusPaid:
		return false
	}
	return false
}

// DeriveStatus recomputes the read-time status. A stored overdue is only a
// cache: the due date against today decides.
func DeriveStatus(stored Status, dueDate, today time.Time) Status {
	switch stored {
	case StatusPaid, StatusDraft:
		return stored
	case StatusSent, StatusOverdue:
		if format.DaysBetweenDates(dueDate, today) > 0 {
			return StatusOverdue
		}
		return StatusSent
	}
	return stored
}

// DaysOverdue is the number of whole days today is past the due date, or 0.
func DaysOverdue(dueDate, today time.Time) int {
	days := format.DaysBetweenDates(dueDate, today)
	if days < 0 {
		return 0
	}
	return days
}
