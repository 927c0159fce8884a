package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	vpaRe  = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,256}@[a-zA-Z][a-zA-Z0-9]{1,64}$`)
	hhmmRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

	varValidator     *validator.Validate
	varValidatorOnce sync.Once
)

func vars() *validator.Validate {
	varValidatorOnce.Do(func() {
		varValidator = validator.New()
	})
	return varValidator
}

// ValidVPA reports whether value looks like a UPI address, e.g. "name@bank".
func ValidVPA(value string) bool {
	return vpaRe.MatchString(strings.TrimSpace(value))
}

// ValidEmail uses the validator package's RFC 5322 rule.
func ValidEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return vars().Var(value, "email") == nil
}

// HourOfDay is a wall-clock contact time.
type HourOfDay struct {
	Hour   int
	Minute int
}

func (h HourOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", h.Hour, h.Minute)
}

// ParseHourOfDay parses "HH:MM" on a 24 hour clock.
func ParseHourOfDay(value string) (HourOfDay, error) {
	match := hhmmRe.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return HourOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", value)
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	return HourOfDay{Hour: hour, Minute: minute}, nil
}
