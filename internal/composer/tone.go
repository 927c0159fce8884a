package composer

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/hisaab/internal/config"
)

// Tone is how firmly an overdue invoice is chased.
type Tone string

const (
	ToneGentle       Tone = "gentle"
	ToneProfessional Tone = "professional"
	ToneFirm         Tone = "firm"
)

// SelectTone maps days overdue onto a tone: gentle up to GentleMaxDays,
// professional up to ProfessionalMaxDays, firm after that.
func SelectTone(daysOverdue int, thresholds config.ToneThresholds) Tone {
	switch {
	case daysOverdue <= thresholds.GentleMaxDays:
		return ToneGentle
	case daysOverdue <= thresholds.ProfessionalMaxDays:
		return ToneProfessional
	default:
		return ToneFirm
	}
}

// ParseFlow accepts "reminder" and "follow_up"; empty means follow_up.
func ParseFlow(value string) (string, error) {
	switch flow := strings.ToLower(strings.TrimSpace(value)); flow {
	case "":
		return config.FlowFollowUp, nil
	case config.FlowReminder, config.FlowFollowUp:
		return flow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFlow, value)
	}
}
