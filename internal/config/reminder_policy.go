package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/hisaab/internal/validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Follow-up flows with their own escalation thresholds.
const (
	FlowReminder = "reminder"
	FlowFollowUp = "follow_up"
)

type ToneThresholds struct {
	GentleMaxDays       int `mapstructure:"gentle_max_days"`
	ProfessionalMaxDays int `mapstructure:"professional_max_days"`
}

type ReminderPolicy struct {
	OffsetsDays  []int                     `mapstructure:"offsets_days"`
	DefaultDelay time.Duration             `mapstructure:"default_delay"`
	DefaultHour  string                    `mapstructure:"default_hour"`
	Tones        map[string]ToneThresholds `mapstructure:"tones"`
}

func DefaultReminderPolicy() ReminderPolicy {
	return ReminderPolicy{
		OffsetsDays:  []int{3, 7, 14},
		DefaultDelay: 2 * time.Hour,
		DefaultHour:  "10:00",
		Tones: map[string]ToneThresholds{
			FlowReminder: {GentleMaxDays: 3, ProfessionalMaxDays: 14},
			FlowFollowUp: {GentleMaxDays: 7, ProfessionalMaxDays: 14},
		},
	}
}

// Thresholds returns the thresholds for flow, or the reminder flow's when the
// flow is unknown.
func (p ReminderPolicy) Thresholds(flow string) ToneThresholds {
	if t, ok := p.Tones[strings.ToLower(strings.TrimSpace(flow))]; ok {
		return t
	}
	if t, ok := p.Tones[FlowReminder]; ok {
		return t
	}
	return DefaultReminderPolicy().Tones[FlowReminder]
}

type ReminderPolicyHolder struct {
	current atomic.Value // holds ReminderPolicy
}

// NewStaticReminderPolicy wraps a fixed policy, mostly for tests.
func NewStaticReminderPolicy(p ReminderPolicy) *ReminderPolicyHolder {
	holder := &ReminderPolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewReminderPolicyHolder(cfg Config, log *zap.Logger) (*ReminderPolicyHolder, error) {
	log = log.Named("config.reminders")
	v := viper.New()

	if cfg.ReminderPolicyFile != "" {
		v.SetConfigFile(cfg.ReminderPolicyFile)
	} else {
		v.SetConfigName("reminders")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/hisaab")
		v.AddConfigPath(".")
	}

	defaults := DefaultReminderPolicy()
	v.SetDefault("reminders.offsets_days", defaults.OffsetsDays)
	v.SetDefault("reminders.default_delay", defaults.DefaultDelay)
	v.SetDefault("reminders.default_hour", defaults.DefaultHour)
	v.SetDefault("reminders.tones", map[string]any{
		FlowReminder: map[string]any{"gentle_max_days": 3, "professional_max_days": 14},
		FlowFollowUp: map[string]any{"gentle_max_days": 7, "professional_max_days": 14},
	})

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
		log.Info("reminders.yml not found, using defaults")
	}

	policy, err := decodeReminderPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReminderPolicy(policy)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeReminderPolicy(v)
			if err != nil {
				log.Warn("invalid reminder policy ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reminder policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *ReminderPolicyHolder) Get() ReminderPolicy {
	return h.current.Load().(ReminderPolicy)
}

func decodeReminderPolicy(v *viper.Viper) (ReminderPolicy, error) {
	// Unmarshal (not UnmarshalKey) so defaults fill keys the file leaves out.
	var file struct {
		Reminders ReminderPolicy `mapstructure:"reminders"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return ReminderPolicy{}, err
	}
	p := file.Reminders
	if err := ValidateReminderPolicy(p); err != nil {
		return ReminderPolicy{}, err
	}
	sort.Ints(p.OffsetsDays)
	return p, nil
}

func ValidateReminderPolicy(p ReminderPolicy) error {
	if len(p.OffsetsDays) == 0 {
		return errors.New("reminders.offsets_days cannot be empty")
	}
	for _, d := range p.OffsetsDays {
		if d < 0 {
			return fmt.Errorf("reminders.offsets_days contains negative offset %d", d)
		}
	}
	if p.DefaultDelay <= 0 {
		return errors.New("reminders.default_delay must be positive")
	}
	if _, err := validation.ParseHourOfDay(p.DefaultHour); err != nil {
		return fmt.Errorf("reminders.default_hour: %w", err)
	}
	for flow, t := range p.Tones {
		if t.GentleMaxDays < 0 || t.ProfessionalMaxDays < t.GentleMaxDays {
			return fmt.Errorf("reminders.tones.%s: thresholds must satisfy 0 <= gentle <= professional", flow)
		}
	}
	return nil
}
