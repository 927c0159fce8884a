package format

import (
	"math"
	"time"
)

const (
	dateLayoutNumeric = "02/01/2006"
	dateLayoutLong    = "02 Jan 2006"
	dateLayoutISO     = "2006-01-02"
)

// DateNumeric renders DD/MM/YYYY.
func DateNumeric(t time.Time) string {
	return t.Format(dateLayoutNumeric)
}

// DateLong renders "DD Mon YYYY", e.g. "05 Mar 2025".
func DateLong(t time.Time) string {
	return t.Format(dateLayoutLong)
}

// ParseISODate parses YYYY-MM-DD as midnight in loc.
func ParseISODate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateLayoutISO, value, loc)
}

// DateISO renders YYYY-MM-DD.
func DateISO(t time.Time) string {
	return t.Format(dateLayoutISO)
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from `from` to `to` in loc. It is negative
// when `to` falls on an earlier day.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	start := StartOfDay(from, loc)
	end := StartOfDay(to, loc)
	// Rounded so DST shifts in loc do not lose a day.
	return int(math.Round(end.Sub(start).Hours() / 24))
}

// DateOf returns the calendar date of t as seen in loc, stored as midnight
// UTC. Invoice issue and due dates use this representation.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetweenDates counts days between two calendar dates, reading each
// date's own year, month and day.
func DaysBetweenDates(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// At places a calendar date at hour:minute in loc.
func At(date time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
}
