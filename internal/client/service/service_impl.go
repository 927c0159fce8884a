package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/validation"
	"github.com/smallbiznis/hisaab/pkg/db"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidAccount
	}

	now := s.clock.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyFields(&client, fields{
		Name:          &req.Name,
		WhatsApp:      &req.WhatsApp,
		Email:         &req.Email,
		GSTIN:         &req.GSTIN,
		UPIVPA:        &req.UPIVPA,
		Address:       &req.Address,
		SuggestedHour: &req.SuggestedHour,
	}); err != nil {
		return domain.Client{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateClientRequest) (domain.Client, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidAccount
	}
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if existing == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	client := *existing
	if err := applyFields(&client, fields{
		Name:          req.Name,
		WhatsApp:      req.WhatsApp,
		Email:         req.Email,
		GSTIN:         req.GSTIN,
		UPIVPA:        req.UPIVPA,
		Address:       req.Address,
		SuggestedHour: req.SuggestedHour,
	}); err != nil {
		return domain.Client{}, err
	}
	client.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Client, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidAccount
	}
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidAccount
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, accountID, domain.ListClientFilter{
		Name: strings.ToLower(strings.TrimSpace(req.Name)),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(client *domain.Client) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        client.ID.String(),
			CreatedAt: client.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}

	resp := domain.ListClientResponse{Clients: clients}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Delete refuses while projects or invoices still reference the client. The
// database enforces this; the raw constraint error is never surfaced.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, accountID, id)
	if err != nil {
		if db.IsForeignKeyErr(err) {
			s.log.Info("client delete blocked by references", zap.String("client_id", id.String()))
			return domain.ErrClientInUse
		}
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

type fields struct {
	Name          *string
	WhatsApp      *string
	Email         *string
	GSTIN         *string
	UPIVPA        *string
	Address       *string
	SuggestedHour *string
}

// applyFields validates and normalizes every provided field, collecting all
// failures before touching the client.
func applyFields(client *domain.Client, f fields) error {
	var errs validation.Errors
	next := *client

	if f.Name != nil {
		next.Name = strings.TrimSpace(*f.Name)
		if next.Name == "" {
			errs.Add("name", "required", "Client name is required")
		}
	}
	if f.WhatsApp != nil {
		raw := strings.TrimSpace(*f.WhatsApp)
		if res := validation.ValidateIndianMobile(raw); !res.Valid {
			errs.Add("whatsapp", "invalid", res.Reason)
		}
		next.WhatsApp = validation.SanitizePhoneForWhatsApp(raw)
	}
	if f.Email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*f.Email))
		if next.Email != "" && !validation.ValidEmail(next.Email) {
			errs.Add("email", "invalid", "Enter a valid email address")
		}
	}
	if f.GSTIN != nil {
		next.GSTIN = strings.ToUpper(strings.TrimSpace(*f.GSTIN))
		if next.GSTIN != "" {
			if res := validation.ValidateGSTIN(next.GSTIN); !res.Valid {
				errs.Add("gstin", res.Reason, gstinMessage(res.Reason))
			}
		}
	}
	if f.UPIVPA != nil {
		next.UPIVPA = strings.TrimSpace(*f.UPIVPA)
		if next.UPIVPA != "" && !validation.ValidVPA(next.UPIVPA) {
			errs.Add("upi_vpa", "invalid", "Enter a valid UPI ID, e.g. name@bank")
		}
	}
	if f.Address != nil {
		next.Address = strings.TrimSpace(*f.Address)
	}
	if f.SuggestedHour != nil {
		next.SuggestedHour = strings.TrimSpace(*f.SuggestedHour)
		if next.SuggestedHour != "" {
			hour, err := validation.ParseHourOfDay(next.SuggestedHour)
			if err != nil {
				errs.Add("suggested_hour", "invalid", "Use HH:MM, e.g. 10:30")
			} else {
				next.SuggestedHour = hour.String()
			}
		}
	}

	if err := errs.Err(); err != nil {
		return err
	}
	*client = next
	return nil
}

func gstinMessage(reason string) string {
	switch reason {
	case validation.ReasonLength:
		return "GSTIN must be exactly 15 characters"
	case validation.ReasonCharset:
		return "GSTIN may only contain digits and capital letters"
	default:
		return "GSTIN check digit does not match"
	}
}
