package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/composer"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/format"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	"github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Policy      *config.ReminderPolicyHolder
	Composer    *composer.Composer
	Metrics     *metrics.Metrics
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	ClientRepo  clientdomain.Repository
	SettingsSvc settingsdomain.Service
	MessageLog  messagelogdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location

	policy      *config.ReminderPolicyHolder
	composer    *composer.Composer
	metrics     *metrics.Metrics
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	clientRepo  clientdomain.Repository
	settingsSvc settingsdomain.Service
	messageLog  messagelogdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reminder.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Cfg.Location(),

		policy:      p.Policy,
		composer:    p.Composer,
		metrics:     p.Metrics,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		clientRepo:  p.ClientRepo,
		settingsSvc: p.SettingsSvc,
		messageLog:  p.MessageLog,
	}
}

// Schedule creates one pending reminder whose time is strictly after now.
func (s *Service) Schedule(ctx context.Context, req domain.ScheduleReminderRequest) (domain.Reminder, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Reminder{}, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.Reminder{}, err
	}

	var timeOfDay *validation.HourOfDay
	if raw := strings.TrimSpace(req.TimeOfDay); raw != "" {
		parsed, err := validation.ParseHourOfDay(raw)
		if err != nil {
			return domain.Reminder{}, fmt.Errorf("%w: %v", domain.ErrInvalidTime, err)
		}
		timeOfDay = &parsed
	}

	invoice, client, err := s.loadInvoiceAndClient(ctx, s.db, accountID, invoiceID)
	if err != nil {
		return domain.Reminder{}, err
	}
	if err := remindable(invoice.Status); err != nil {
		return domain.Reminder{}, err
	}

	var channel domain.Channel
	if strings.TrimSpace(req.Channel) == "" {
		preferred, ok := domain.PreferredChannel(*client)
		if !ok {
			return domain.Reminder{}, domain.ErrNoChannel
		}
		channel = preferred
	} else {
		channel, err = domain.ParseChannel(req.Channel)
		if err != nil {
			return domain.Reminder{}, err
		}
	}
	if err := composer.CheckChannel(channel, *client); err != nil {
		return domain.Reminder{}, err
	}

	now := s.clock.Now().UTC()
	reminder := domain.Reminder{
		ID:          s.genID.Generate(),
		AccountID:   accountID,
		InvoiceID:   invoice.ID,
		Channel:     channel,
		ScheduledAt: domain.NextScheduledAt(now, timeOfDay, s.currentPolicy().DefaultDelay, s.loc),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &reminder); err != nil {
		return domain.Reminder{}, err
	}

	s.metrics.RecordReminder(ctx, string(channel), "scheduled")
	s.log.Debug("reminder scheduled",
		zap.String("reminder_id", reminder.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Time("scheduled_at", reminder.ScheduledAt),
	)
	return reminder, nil
}

// Reschedule moves a pending reminder. A moment at or before now is
// rejected and nothing changes.
func (s *Service) Reschedule(ctx context.Context, req domain.RescheduleReminderRequest) (domain.Reminder, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Reminder{}, domain.ErrInvalidAccount
	}
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Reminder{}, err
	}
	at, err := s.resolveMoment(req)
	if err != nil {
		return domain.Reminder{}, err
	}

	now := s.clock.Now().UTC()
	if !at.After(now) {
		return domain.Reminder{}, domain.ErrReminderNotInFuture
	}

	current, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return domain.Reminder{}, err
	}
	if current == nil {
		return domain.Reminder{}, domain.ErrNotFound
	}
	if current.Status != domain.StatusPending {
		return domain.Reminder{}, domain.ErrReminderNotPending
	}

	updated, err := s.repo.Reschedule(ctx, s.db, accountID, id, at, now)
	if err != nil {
		return domain.Reminder{}, err
	}
	if updated == 0 {
		return domain.Reminder{}, domain.ErrReminderNotPending
	}

	current.ScheduledAt = at
	current.UpdatedAt = now
	return *current, nil
}

// SendNow composes the message, marks the reminder sent and returns the link
// to open. If composing fails the reminder is left pending.
func (s *Service) SendNow(ctx context.Context, rawID string) (domain.SendNowResult, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.SendNowResult{}, domain.ErrInvalidAccount
	}
	id, err := parseID(rawID)
	if err != nil {
		return domain.SendNowResult{}, err
	}

	reminder, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return domain.SendNowResult{}, err
	}
	if reminder == nil {
		return domain.SendNowResult{}, domain.ErrNotFound
	}
	if !reminder.Status.CanTransitionTo(domain.StatusSent) {
		return domain.SendNowResult{}, domain.ErrReminderNotPending
	}

	invoice, client, err := s.loadInvoiceAndClient(ctx, s.db, accountID, reminder.InvoiceID)
	if err != nil {
		return domain.SendNowResult{}, err
	}
	settings, err := s.settingsSvc.ForAccount(ctx, s.db, accountID)
	if err != nil {
		return domain.SendNowResult{}, err
	}

	now := s.clock.Now().UTC()
	today := format.DateOf(now, s.loc)
	invoice.Derive(today)
	message, err := s.composer.Reminder(reminder.Channel, composer.Subject{
		Invoice:  *invoice,
		Client:   *client,
		Settings: settings,
		Today:    today,
	})
	if err != nil {
		s.metrics.RecordReminder(ctx, string(reminder.Channel), "blocked")
		return domain.SendNowResult{}, err
	}

	updated, err := s.repo.Transition(ctx, s.db, accountID, id, domain.StatusPending, domain.StatusSent, &now, now)
	if err != nil {
		return domain.SendNowResult{}, err
	}
	if updated == 0 {
		return domain.SendNowResult{}, domain.ErrReminderNotPending
	}
	reminder.Status = domain.StatusSent
	reminder.SentAt = &now
	reminder.UpdatedAt = now

	s.metrics.RecordReminder(ctx, string(reminder.Channel), "sent")
	if s.messageLog != nil {
		_ = s.messageLog.Append(ctx, messagelogdomain.Entry{
			AccountID:    accountID,
			RelatedType:  messagelogdomain.RelatedReminder,
			RelatedID:    reminder.ID,
			Channel:      string(reminder.Channel),
			TemplateUsed: message.Template,
			Outcome:      messagelogdomain.OutcomeSent,
			Metadata: map[string]any{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
				"invoice_status": string(invoice.Status),
			},
		})
	}

	return domain.SendNowResult{
		Reminder:     *reminder,
		URL:          message.URL,
		Message:      message.Body,
		TemplateUsed: message.Template,
	}, nil
}

func (s *Service) Skip(ctx context.Context, rawID string) (domain.Reminder, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Reminder{}, domain.ErrInvalidAccount
	}
	id, err := parseID(rawID)
	if err != nil {
		return domain.Reminder{}, err
	}

	reminder, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return domain.Reminder{}, err
	}
	if reminder == nil {
		return domain.Reminder{}, domain.ErrNotFound
	}
	if !reminder.Status.CanTransitionTo(domain.StatusSkipped) {
		return domain.Reminder{}, domain.ErrReminderNotPending
	}

	now := s.clock.Now().UTC()
	updated, err := s.repo.Transition(ctx, s.db, accountID, id, domain.StatusPending, domain.StatusSkipped, nil, now)
	if err != nil {
		return domain.Reminder{}, err
	}
	if updated == 0 {
		return domain.Reminder{}, domain.ErrReminderNotPending
	}
	reminder.Status = domain.StatusSkipped
	reminder.UpdatedAt = now

	s.metrics.RecordReminder(ctx, string(reminder.Channel), "skipped")
	if s.messageLog != nil {
		_ = s.messageLog.Append(ctx, messagelogdomain.Entry{
			AccountID:    accountID,
			RelatedType:  messagelogdomain.RelatedReminder,
			RelatedID:    reminder.ID,
			Channel:      string(reminder.Channel),
			TemplateUsed: "reminder_skipped",
			Outcome:      messagelogdomain.OutcomeSkipped,
			Metadata:     map[string]any{"invoice_id": reminder.InvoiceID.String()},
		})
	}
	return *reminder, nil
}

func (s *Service) ListByInvoice(ctx context.Context, rawInvoiceID string) ([]domain.Reminder, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByInvoice(ctx, s.db, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListDue(ctx context.Context, limit int) ([]domain.Reminder, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	items, err := s.repo.ListDue(ctx, s.db, accountID, s.clock.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListDueAll(ctx context.Context, limit int) ([]domain.Reminder, error) {
	items, err := s.repo.ListDue(ctx, s.db, 0, s.clock.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) resolveMoment(req domain.RescheduleReminderRequest) (time.Time, error) {
	if req.ScheduledAt != nil {
		return req.ScheduledAt.UTC(), nil
	}
	date, err := format.ParseISODate(strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidTime)
	}
	hour, err := validation.ParseHourOfDay(req.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidTime, err)
	}
	return format.At(date, hour.Hour, hour.Minute, s.loc).UTC(), nil
}

func (s *Service) loadInvoiceAndClient(ctx context.Context, db *gorm.DB, accountID, invoiceID snowflake.ID) (*invoicedomain.Invoice, *clientdomain.Client, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, db, accountID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if invoice == nil {
		return nil, nil, domain.ErrInvoiceNotFound
	}
	client, err := s.clientRepo.FindByID(ctx, db, accountID, invoice.ClientID)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, domain.ErrInvoiceNotFound
	}
	return invoice, client, nil
}

func (s *Service) currentPolicy() config.ReminderPolicy {
	if s.policy == nil {
		return config.DefaultReminderPolicy()
	}
	return s.policy.Get()
}

func remindable(status invoicedomain.Status) error {
	switch status {
	case invoicedomain.StatusSent, invoicedomain.StatusOverdue:
		return nil
	case invoicedomain.StatusPaid:
		return domain.ErrInvoicePaid
	case invoicedomain.StatusDraft:
		return domain.ErrInvoiceNotSent
	}
	return domain.ErrInvoiceNotSent
}

func deref(items []*domain.Reminder) []domain.Reminder {
	out := make([]domain.Reminder, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
