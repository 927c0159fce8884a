package domain

import (
	"fmt"
	"time"

	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/format"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
)

const fallbackHour = "10:00"

// PreferredChannel picks WhatsApp, then email. ok is false when the client
// can be reached on neither.
func PreferredChannel(client clientdomain.Client) (Channel, bool) {
	switch {
	case client.HasWhatsApp():
		return ChannelWhatsApp, true
	case client.HasEmail():
		return ChannelEmail, true
	}
	return "", false
}

// NextScheduledAt resolves when a new reminder should fire. Without a time of
// day it is now + delay. With one it is today at that time in loc, or
// tomorrow if that moment is not after now.
func NextScheduledAt(now time.Time, timeOfDay *validation.HourOfDay, delay time.Duration, loc *time.Location) time.Time {
	if timeOfDay == nil {
		return now.Add(delay).UTC()
	}
	today := format.DateOf(now, loc)
	at := format.At(today, timeOfDay.Hour, timeOfDay.Minute, loc)
	if !at.After(now) {
		at = format.At(today.AddDate(0, 0, 1), timeOfDay.Hour, timeOfDay.Minute, loc)
	}
	return at.UTC()
}

// ContactHour is the client's suggested hour, falling back to the policy
// default and then 10:00.
func ContactHour(client clientdomain.Client, policy config.ReminderPolicy) validation.HourOfDay {
	for _, candidate := range []string{client.SuggestedHour, policy.DefaultHour, fallbackHour} {
		if candidate == "" {
			continue
		}
		if hour, err := validation.ParseHourOfDay(candidate); err == nil {
			return hour
		}
	}
	return validation.HourOfDay{Hour: 10}
}

type PlannedReminder struct {
	OffsetDays  int
	Channel     Channel
	ScheduledAt time.Time
}

type Plan struct {
	Reminders []PlannedReminder
	Warnings  []string
}

// PlanStandardReminders lays out the policy's reminders at issue date + each
// offset, at the client's contact hour. Offsets whose moment is not after now
// are dropped with a warning, as is the whole plan when the client has no
// channel.
func PlanStandardReminders(invoice invoicedomain.Invoice, client clientdomain.Client, policy config.ReminderPolicy, now time.Time, loc *time.Location) Plan {
	var plan Plan
	channel, ok := PreferredChannel(client)
	if !ok {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("%s has no WhatsApp number or email; no reminders were scheduled", client.Name))
		return plan
	}

	hour := ContactHour(client, policy)
	for _, offset := range policy.OffsetsDays {
		day := invoice.IssueDate.AddDate(0, 0, offset)
		at := format.At(day, hour.Hour, hour.Minute, loc)
		if !at.After(now) {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("Skipped the +%d day reminder: %s %s is already past", offset, format.DateNumeric(day), hour))
			continue
		}
		plan.Reminders = append(plan.Reminders, PlannedReminder{
			OffsetDays:  offset,
			Channel:     channel,
			ScheduledAt: at.UTC(),
		})
	}
	return plan
}
