package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/composer"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/deeplink"
	"github.com/smallbiznis/hisaab/internal/followup/domain"
	"github.com/smallbiznis/hisaab/internal/format"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// candidateScanLimit bounds one Candidates call.
const candidateScanLimit = 500

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Cfg         config.Config
	Policy      *config.ReminderPolicyHolder
	Composer    *composer.Composer
	Metrics     *metrics.Metrics
	InvoiceRepo invoicedomain.Repository
	ClientRepo  clientdomain.Repository
	SettingsSvc settingsdomain.Service
	MessageLog  messagelogdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	loc         *time.Location
	policy      *config.ReminderPolicyHolder
	composer    *composer.Composer
	metrics     *metrics.Metrics
	invoiceRepo invoicedomain.Repository
	clientRepo  clientdomain.Repository
	settingsSvc settingsdomain.Service
	messageLog  messagelogdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("followup.service"),
		clock:       p.Clock,
		loc:         p.Cfg.Location(),
		policy:      p.Policy,
		composer:    p.Composer,
		metrics:     p.Metrics,
		invoiceRepo: p.InvoiceRepo,
		clientRepo:  p.ClientRepo,
		settingsSvc: p.SettingsSvc,
		messageLog:  p.MessageLog,
	}
}

func (s *Service) Candidates(ctx context.Context, flow string) ([]domain.Candidate, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	flow, err := composer.ParseFlow(flow)
	if err != nil {
		return nil, err
	}
	thresholds := s.currentPolicy().Thresholds(flow)

	today := s.today()
	overdue := invoicedomain.StatusOverdue
	invoices, err := s.invoiceRepo.List(ctx, s.db, invoicedomain.ListFilter{
		AccountID: accountID,
		Status:    &overdue,
		Today:     today,
	}, pagination.Pagination{PageSize: candidateScanLimit})
	if err != nil {
		return nil, err
	}
	if len(invoices) > candidateScanLimit {
		invoices = invoices[:candidateScanLimit]
	}

	clients := map[snowflake.ID]*clientdomain.Client{}
	candidates := make([]domain.Candidate, 0, len(invoices))
	for _, invoice := range invoices {
		if invoice == nil {
			continue
		}
		client, seen := clients[invoice.ClientID]
		if !seen {
			client, err = s.clientRepo.FindByID(ctx, s.db, accountID, invoice.ClientID)
			if err != nil {
				return nil, err
			}
			clients[invoice.ClientID] = client
		}
		invoice.Derive(today)

		candidate := domain.Candidate{
			Invoice:     *invoice,
			DaysOverdue: invoice.DaysOverdue,
			Tone:        composer.SelectTone(invoice.DaysOverdue, thresholds),
		}
		if client != nil {
			candidate.ClientName = client.Name
			candidate.HasWhatsApp = client.HasWhatsApp()
			candidate.HasEmail = client.HasEmail()
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DaysOverdue > candidates[j].DaysOverdue
	})
	return candidates, nil
}

func (s *Service) Compose(ctx context.Context, req domain.ComposeRequest) (composer.Message, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return composer.Message{}, domain.ErrInvalidAccount
	}
	return s.compose(ctx, accountID, req)
}

func (s *Service) Record(ctx context.Context, req domain.ComposeRequest) (composer.Message, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return composer.Message{}, domain.ErrInvalidAccount
	}
	message, err := s.compose(ctx, accountID, req)
	if err != nil {
		return composer.Message{}, err
	}

	invoiceID, _ := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	flow, _ := composer.ParseFlow(req.Flow)
	s.metrics.RecordReminder(ctx, string(message.Channel), "follow_up")
	if s.messageLog != nil {
		_ = s.messageLog.Append(ctx, messagelogdomain.Entry{
			AccountID:    accountID,
			RelatedType:  messagelogdomain.RelatedInvoice,
			RelatedID:    invoiceID,
			Channel:      string(message.Channel),
			TemplateUsed: message.Template,
			Outcome:      messagelogdomain.OutcomeSent,
			Metadata: map[string]any{
				"flow": flow,
				"tone": string(message.Tone),
			},
		})
	}
	s.log.Info("follow-up recorded",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("flow", flow),
		zap.String("tone", string(message.Tone)),
		zap.String("channel", string(message.Channel)),
	)
	return message, nil
}

func (s *Service) Reminder(ctx context.Context, req domain.ComposeRequest) (composer.Message, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return composer.Message{}, domain.ErrInvalidAccount
	}
	subject, err := s.loadSubject(ctx, accountID, req.InvoiceID)
	if err != nil {
		return composer.Message{}, err
	}
	if subject.Invoice.Status == invoicedomain.StatusDraft {
		return composer.Message{}, domain.ErrNotSent
	}
	channel, err := resolveChannel(req.Channel, subject.Client)
	if err != nil {
		return composer.Message{}, err
	}
	return s.composer.Reminder(channel, subject)
}

func (s *Service) PaymentQR(ctx context.Context, invoiceID string, size int) ([]byte, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	subject, err := s.loadSubject(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	if subject.Invoice.Status == invoicedomain.StatusPaid {
		return nil, domain.ErrNothingToPay
	}
	vpa := composer.PayeeVPA(subject.Client, subject.Settings)
	if vpa == "" {
		return nil, domain.ErrNoPayeeVPA
	}
	intent, err := deeplink.BuildUPIIntent(deeplink.UPIIntent{
		PayeeVPA:    vpa,
		PayeeName:   subject.Settings.BusinessName(),
		AmountPaise: subject.Invoice.TotalAmount,
		Note:        format.TransactionNote(subject.Invoice.InvoiceNumber),
	})
	if err != nil {
		return nil, err
	}
	return deeplink.RenderQRPNG(intent, size)
}

func (s *Service) compose(ctx context.Context, accountID snowflake.ID, req domain.ComposeRequest) (composer.Message, error) {
	subject, err := s.loadSubject(ctx, accountID, req.InvoiceID)
	if err != nil {
		return composer.Message{}, err
	}
	if subject.Invoice.Status != invoicedomain.StatusOverdue {
		return composer.Message{}, domain.ErrNotOverdue
	}
	channel, err := resolveChannel(req.Channel, subject.Client)
	if err != nil {
		return composer.Message{}, err
	}
	return s.composer.FollowUp(channel, req.Flow, subject)
}

// loadSubject reads the invoice, derived for today, with its client and the
// account settings.
func (s *Service) loadSubject(ctx context.Context, accountID snowflake.ID, rawID string) (composer.Subject, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || invoiceID == 0 {
		return composer.Subject{}, domain.ErrInvalidID
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, accountID, invoiceID)
	if err != nil {
		return composer.Subject{}, err
	}
	if invoice == nil {
		return composer.Subject{}, domain.ErrNotFound
	}
	today := s.today()
	invoice.Derive(today)

	client, err := s.clientRepo.FindByID(ctx, s.db, accountID, invoice.ClientID)
	if err != nil {
		return composer.Subject{}, err
	}
	if client == nil {
		return composer.Subject{}, domain.ErrNotFound
	}
	settings, err := s.settingsSvc.ForAccount(ctx, s.db, accountID)
	if err != nil {
		return composer.Subject{}, err
	}
	return composer.Subject{
		Invoice:  *invoice,
		Client:   *client,
		Settings: settings,
		Today:    today,
	}, nil
}

// resolveChannel falls back to the client's preferred channel.
func resolveChannel(raw string, client clientdomain.Client) (reminderdomain.Channel, error) {
	if strings.TrimSpace(raw) == "" {
		preferred, ok := reminderdomain.PreferredChannel(client)
		if !ok {
			return "", reminderdomain.ErrNoChannel
		}
		return preferred, nil
	}
	return reminderdomain.ParseChannel(raw)
}

func (s *Service) currentPolicy() config.ReminderPolicy {
	if s.policy == nil {
		return config.DefaultReminderPolicy()
	}
	return s.policy.Get()
}

func (s *Service) today() time.Time {
	return format.DateOf(s.clock.Now(), s.loc)
}
