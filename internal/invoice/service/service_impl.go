package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/format"
	"github.com/smallbiznis/hisaab/internal/invoice/domain"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	projectdomain "github.com/smallbiznis/hisaab/internal/project/domain"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
	"github.com/smallbiznis/hisaab/pkg/db"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"github.com/smallbiznis/hisaab/pkg/lock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	numberingLockTTL  = 15 * time.Second
	numberingLockWait = 3 * time.Second
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config
	Policy       *config.ReminderPolicyHolder
	Locker       lock.Locker
	Metrics      *metrics.Metrics
	Repo         domain.Repository
	ClientRepo   clientdomain.Repository
	ProjectRepo  projectdomain.Repository
	ReminderRepo reminderdomain.Repository
	SettingsSvc  settingsdomain.Service
	MessageLog   messagelogdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location

	policy       *config.ReminderPolicyHolder
	locker       lock.Locker
	metrics      *metrics.Metrics
	repo         domain.Repository
	clientRepo   clientdomain.Repository
	projectRepo  projectdomain.Repository
	reminderRepo reminderdomain.Repository
	settingsSvc  settingsdomain.Service
	messageLog   messagelogdomain.Service
}

func NewService(p Params) domain.Service {
	locker := p.Locker
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Cfg.Location(),

		policy:       p.Policy,
		locker:       locker,
		metrics:      p.Metrics,
		repo:         p.Repo,
		clientRepo:   p.ClientRepo,
		projectRepo:  p.ProjectRepo,
		reminderRepo: p.ReminderRepo,
		settingsSvc:  p.SettingsSvc,
		messageLog:   p.MessageLog,
	}
}

// Create allocates the next number and writes the invoice with its items in
// one transaction. Any failure leaves nothing behind.
func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidAccount
	}

	client, err := s.loadClient(ctx, accountID, req.ClientID)
	if err != nil {
		return domain.Invoice{}, err
	}
	projectID, err := s.resolveProject(ctx, accountID, req.ProjectID)
	if err != nil {
		return domain.Invoice{}, err
	}

	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if status != domain.StatusDraft && status != domain.StatusSent {
		return domain.Invoice{}, domain.ErrInvalidStatus
	}

	settings, err := s.settingsSvc.ForAccount(ctx, s.db, accountID)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	today := format.DateOf(now, s.loc)
	issueDate, dueDate, err := s.parseDates(req.IssueDate, req.DueDate, today)
	if err != nil {
		return domain.Invoice{}, err
	}

	gstPercent := settings.DefaultGSTPercent
	if req.GSTPercent != nil {
		gstPercent = *req.GSTPercent
	}
	totals, err := resolveTotals(req, gstPercent)
	if err != nil {
		return domain.Invoice{}, err
	}

	prefix := settings.InvoicePrefix
	if strings.TrimSpace(req.Prefix) != "" {
		prefix = req.Prefix
	}
	prefix = format.NormalizePrefix(prefix)
	if !format.ValidPrefix(prefix) {
		return domain.Invoice{}, domain.ErrInvalidPrefix
	}
	year := now.In(s.loc).Year()

	release, err := s.locker.Acquire(ctx, lock.Key("invoice-number", accountID.String(), prefix, fmt.Sprint(year)), numberingLockTTL, numberingLockWait)
	if err != nil {
		s.metrics.RecordNumberingFailure(ctx, "lock")
		s.log.Warn("invoice numbering lock not acquired",
			zap.String("account_id", accountID.String()),
			zap.String("prefix", prefix),
			zap.Error(err),
		)
		return domain.Invoice{}, fmt.Errorf("%w: %v", domain.ErrNumberingBusy, err)
	}
	defer release()

	invoiceID := s.genID.Generate()
	invoice := domain.Invoice{
		ID:          invoiceID,
		AccountID:   accountID,
		ClientID:    client.ID,
		ProjectID:   projectID,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Subtotal:    totals.Subtotal,
		GSTAmount:   totals.GSTAmount,
		TotalAmount: totals.Total,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, item := range req.Items {
		invoice.Items = append(invoice.Items, domain.InvoiceItem{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Position:  i + 1,
			Title:     strings.TrimSpace(item.Title),
			Qty:       item.Qty,
			Rate:      item.Rate,
			Amount:    domain.ItemAmount(item.Qty, item.Rate),
			CreatedAt: now,
		})
	}

	var plan reminderdomain.Plan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, accountID, prefix, year, now)
		if err != nil {
			return err
		}
		if seq > format.MaxInvoiceSequence {
			return domain.ErrSequenceExhausted
		}
		number, err := format.FormatInvoiceNumber(prefix, year, seq)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}
		if status == domain.StatusSent {
			plan, err = s.scheduleStandardReminders(ctx, tx, invoice, *client, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, s.numberingError(ctx, err)
	}

	s.metrics.RecordInvoiceCreated(ctx)
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("status", string(invoice.Status)),
	)
	if status == domain.StatusSent {
		s.afterSend(ctx, invoice, domain.StatusDraft, plan)
	}

	invoice.Derive(today)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, accountID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	item.Derive(s.today())
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidAccount
	}

	today := s.today()
	filter := domain.ListFilter{AccountID: accountID, Today: today}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = &clientID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		item.Derive(today)
		invoices = append(invoices, *item)
	}

	resp := domain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Send moves a draft to sent and lays out the standard reminders. A client
// without any channel gets a warning, not a failure.
func (s *Service) Send(ctx context.Context, id string) (domain.SendResult, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.SendResult{}, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.SendResult{}, err
	}

	now := s.clock.Now().UTC()
	var (
		invoice domain.Invoice
		plan    reminderdomain.Plan
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, accountID, invoiceID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !current.Status.CanTransitionTo(domain.StatusSent) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, domain.StatusSent)
		}

		current.Status = domain.StatusSent
		current.UpdatedAt = now
		if err := s.repo.UpdateStatus(ctx, tx, current); err != nil {
			return err
		}

		client, err := s.clientRepo.FindByID(ctx, tx, accountID, current.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrInvalidClient
		}
		plan, err = s.scheduleStandardReminders(ctx, tx, *current, *client, now)
		if err != nil {
			return err
		}
		invoice = *current
		return nil
	})
	if err != nil {
		return domain.SendResult{}, err
	}

	s.afterSend(ctx, invoice, domain.StatusDraft, plan)
	invoice.Derive(s.today())
	return domain.SendResult{
		Invoice:          invoice,
		RemindersCreated: len(plan.Reminders),
		Warnings:         plan.Warnings,
	}, nil
}

// MarkPaid records payment and skips every reminder still pending for the
// invoice. Paid is terminal.
func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (domain.Invoice, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	today := format.DateOf(now, s.loc)
	paidDate := today
	if raw := strings.TrimSpace(req.PaidDate); raw != "" {
		parsed, err := format.ParseISODate(raw, time.UTC)
		if err != nil {
			return domain.Invoice{}, validationError("paid_date", "invalid", "Use YYYY-MM-DD for the paid date")
		}
		paidDate = parsed
	}
	utr := strings.TrimSpace(req.UTRReference)
	if len(utr) > 64 {
		return domain.Invoice{}, validationError("utr_reference", "too_long", "UTR reference must be at most 64 characters")
	}

	var (
		invoice    domain.Invoice
		fromStatus domain.Status
		skipped    int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, accountID, invoiceID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		fromStatus = domain.DeriveStatus(current.Status, current.DueDate, today)
		if !current.Status.CanTransitionTo(domain.StatusPaid) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, domain.StatusPaid)
		}

		current.Status = domain.StatusPaid
		current.PaidDate = &paidDate
		current.UTRReference = utr
		current.UpdatedAt = now
		if err := s.repo.UpdateStatus(ctx, tx, current); err != nil {
			return err
		}

		skipped, err = s.reminderRepo.SkipPendingForInvoice(ctx, tx, accountID, current.ID, now)
		if err != nil {
			return err
		}
		invoice = *current
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceTransition(ctx, string(fromStatus), string(domain.StatusPaid))
	for i := int64(0); i < skipped; i++ {
		s.metrics.RecordReminder(ctx, "any", "skipped")
	}
	s.appendLog(ctx, messagelogdomain.Entry{
		AccountID:    accountID,
		RelatedType:  messagelogdomain.RelatedInvoice,
		RelatedID:    invoice.ID,
		TemplateUsed: "invoice_paid",
		Outcome:      messagelogdomain.OutcomeRecorded,
		Metadata: map[string]any{
			"from":              string(fromStatus),
			"paid_date":         format.DateISO(paidDate),
			"utr_reference":     utr,
			"skipped_reminders": skipped,
		},
	})

	invoice.Derive(today)
	return invoice, nil
}

// MarkOverdue stores the overdue status for sent invoices past their due
// date. Reads derive it regardless; this keeps stored rows queryable.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	updated, err := s.repo.MarkOverdue(ctx, s.db, format.DateOf(now, s.loc), now)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < updated; i++ {
		s.metrics.RecordInvoiceTransition(ctx, string(domain.StatusSent), string(domain.StatusOverdue))
	}
	return updated, nil
}

func (s *Service) scheduleStandardReminders(ctx context.Context, tx *gorm.DB, invoice domain.Invoice, client clientdomain.Client, now time.Time) (reminderdomain.Plan, error) {
	policy := config.DefaultReminderPolicy()
	if s.policy != nil {
		policy = s.policy.Get()
	}

	plan := reminderdomain.PlanStandardReminders(invoice, client, policy, now, s.loc)
	for _, planned := range plan.Reminders {
		row := reminderdomain.Reminder{
			ID:          s.genID.Generate(),
			AccountID:   invoice.AccountID,
			InvoiceID:   invoice.ID,
			Channel:     planned.Channel,
			ScheduledAt: planned.ScheduledAt,
			Status:      reminderdomain.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.reminderRepo.Insert(ctx, tx, &row); err != nil {
			return reminderdomain.Plan{}, err
		}
	}
	return plan, nil
}

func (s *Service) afterSend(ctx context.Context, invoice domain.Invoice, from domain.Status, plan reminderdomain.Plan) {
	s.metrics.RecordInvoiceTransition(ctx, string(from), string(domain.StatusSent))
	for _, planned := range plan.Reminders {
		s.metrics.RecordReminder(ctx, string(planned.Channel), "scheduled")
	}
	if len(plan.Reminders) == 0 && len(plan.Warnings) > 0 {
		s.metrics.RecordReminder(ctx, "none", "no_channel")
	}
	for _, warning := range plan.Warnings {
		s.log.Warn("reminder not scheduled",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reason", warning),
		)
	}

	metadata := map[string]any{
		"invoice_number":    invoice.InvoiceNumber,
		"reminders_created": len(plan.Reminders),
	}
	if len(plan.Warnings) > 0 {
		metadata["warnings"] = plan.Warnings
	}
	s.appendLog(ctx, messagelogdomain.Entry{
		AccountID:    invoice.AccountID,
		RelatedType:  messagelogdomain.RelatedInvoice,
		RelatedID:    invoice.ID,
		TemplateUsed: "invoice_sent",
		Outcome:      messagelogdomain.OutcomeRecorded,
		Metadata:     metadata,
	})
}

// appendLog is best-effort; Append already logs its own failures.
func (s *Service) appendLog(ctx context.Context, entry messagelogdomain.Entry) {
	if s.messageLog == nil {
		return
	}
	_ = s.messageLog.Append(ctx, entry)
}

func (s *Service) numberingError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrSequenceExhausted):
		s.metrics.RecordNumberingFailure(ctx, "exhausted")
		return err
	case db.IsRetryableTxErr(err):
		s.metrics.RecordNumberingFailure(ctx, "contention")
		return fmt.Errorf("%w: %v", domain.ErrNumberingBusy, err)
	case db.IsDuplicateKeyErr(err):
		s.metrics.RecordNumberingFailure(ctx, "duplicate")
		return fmt.Errorf("%w: %v", domain.ErrNumberingBusy, err)
	}
	return err
}

func (s *Service) loadClient(ctx context.Context, accountID snowflake.ID, raw string) (*clientdomain.Client, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || clientID == 0 {
		return nil, domain.ErrInvalidClient
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, accountID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrInvalidClient
	}
	return client, nil
}

func (s *Service) resolveProject(ctx context.Context, accountID snowflake.ID, raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	projectID, err := snowflake.ParseString(raw)
	if err != nil || projectID == 0 {
		return nil, domain.ErrInvalidProject
	}
	project, err := s.projectRepo.FindByID(ctx, s.db, accountID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrInvalidProject
	}
	return &projectID, nil
}

func (s *Service) parseDates(rawIssue, rawDue string, today time.Time) (time.Time, time.Time, error) {
	var errs validation.Errors
	issue := today
	if raw := strings.TrimSpace(rawIssue); raw != "" {
		parsed, err := format.ParseISODate(raw, time.UTC)
		if err != nil {
			errs.Add("issue_date", "invalid", "Use YYYY-MM-DD for the issue date")
		} else {
			issue = parsed
		}
	}

	var due time.Time
	if raw := strings.TrimSpace(rawDue); raw == "" {
		errs.Add("due_date", "required", "Due date is required")
	} else if parsed, err := format.ParseISODate(raw, time.UTC); err != nil {
		errs.Add("due_date", "invalid", "Use YYYY-MM-DD for the due date")
	} else {
		due = parsed
	}
	if err := errs.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if due.Before(issue) {
		return time.Time{}, time.Time{}, validationError("due_date", "before_issue_date", "Due date cannot be before the issue date")
	}
	return issue, due, nil
}

// resolveTotals computes totals from the items, or verifies totals supplied
// by the caller against them.
func resolveTotals(req domain.CreateInvoiceRequest, gstPercent float64) (domain.Totals, error) {
	if len(req.Items) == 0 {
		return domain.Totals{}, domain.ErrNoItems
	}

	var errs validation.Errors
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Title) == "" {
			errs.Add(field+".title", "required", "Item title is required")
		}
		if item.Qty <= 0 {
			errs.Add(field+".qty", "out_of_range", "Quantity must be greater than zero")
		}
		if item.Rate < 0 {
			errs.Add(field+".rate", "out_of_range", "Rate cannot be negative")
		}
	}
	if gstPercent < 0 || gstPercent > 100 {
		errs.Add("gst_percent", "out_of_range", "GST percent must be between 0 and 100")
	}
	if err := errs.Err(); err != nil {
		return domain.Totals{}, err
	}

	computed := domain.ComputeTotals(req.Items, gstPercent)
	if req.Subtotal == nil && req.GSTAmount == nil && req.TotalAmount == nil {
		return computed, nil
	}
	if req.Subtotal == nil || req.GSTAmount == nil || req.TotalAmount == nil {
		return domain.Totals{}, fmt.Errorf("%w: subtotal, gst_amount and total_amount go together", domain.ErrTotalsMismatch)
	}
	if *req.Subtotal != computed.Subtotal {
		return domain.Totals{}, fmt.Errorf("%w: subtotal %d, items sum to %d", domain.ErrTotalsMismatch, *req.Subtotal, computed.Subtotal)
	}
	if *req.GSTAmount < 0 || *req.TotalAmount != *req.Subtotal+*req.GSTAmount {
		return domain.Totals{}, fmt.Errorf("%w: total %d != subtotal %d + gst %d", domain.ErrTotalsMismatch, *req.TotalAmount, *req.Subtotal, *req.GSTAmount)
	}
	return domain.Totals{Subtotal: *req.Subtotal, GSTAmount: *req.GSTAmount, Total: *req.TotalAmount}, nil
}

func (s *Service) today() time.Time {
	return format.DateOf(s.clock.Now(), s.loc)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validationError(field, code, message string) error {
	var errs validation.Errors
	errs.Add(field, code, message)
	return errs.Err()
}
