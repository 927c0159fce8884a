package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/format"
	"github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          domain.Repository
	defaultPrefix string
}

func New(p Params) domain.Service {
	prefix := format.NormalizePrefix(p.Cfg.DefaultInvoicePrefix)
	if !format.ValidPrefix(prefix) {
		prefix = "INV"
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("settings.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		defaultPrefix: prefix,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidAccount
	}
	return s.ForAccount(ctx, s.db, accountID)
}

func (s *Service) ForAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (domain.Settings, error) {
	if db == nil {
		db = s.db
	}
	stored, err := s.repo.Find(ctx, db, accountID)
	if err != nil {
		return domain.Settings{}, err
	}
	if stored != nil {
		if stored.InvoicePrefix == "" {
			stored.InvoicePrefix = s.defaultPrefix
		}
		return *stored, nil
	}
	return s.defaults(accountID), nil
}

func (s *Service) Save(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidAccount
	}

	current, err := s.ForAccount(ctx, s.db, accountID)
	if err != nil {
		return domain.Settings{}, err
	}

	next := current
	var errs validation.Errors
	if req.CreatorDisplayName != nil {
		next.CreatorDisplayName = strings.TrimSpace(*req.CreatorDisplayName)
	}
	if req.CompanyName != nil {
		next.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.GSTIN != nil {
		next.GSTIN = strings.ToUpper(strings.TrimSpace(*req.GSTIN))
		if next.GSTIN != "" {
			if res := validation.ValidateGSTIN(next.GSTIN); !res.Valid {
				errs.Add("gstin", res.Reason, "Enter a valid 15-character GSTIN")
			}
		}
	}
	if req.CompanyAddress != nil {
		next.CompanyAddress = strings.TrimSpace(*req.CompanyAddress)
	}
	if req.FooterMessage != nil {
		next.FooterMessage = strings.TrimSpace(*req.FooterMessage)
	}
	if req.InvoicePrefix != nil {
		next.InvoicePrefix = format.NormalizePrefix(*req.InvoicePrefix)
		if !format.ValidPrefix(next.InvoicePrefix) || len(next.InvoicePrefix) > 16 {
			errs.Add("invoice_prefix", "invalid", "Prefix must be 1 to 16 letters, e.g. HH")
		}
	}
	if req.DefaultGSTPercent != nil {
		next.DefaultGSTPercent = *req.DefaultGSTPercent
		if next.DefaultGSTPercent < 0 || next.DefaultGSTPercent > 100 {
			errs.Add("default_gst_percent", "out_of_range", "GST percent must be between 0 and 100")
		}
	}
	if req.UPIVPA != nil {
		next.UPIVPA = strings.TrimSpace(*req.UPIVPA)
		if next.UPIVPA != "" && !validation.ValidVPA(next.UPIVPA) {
			errs.Add("upi_vpa", "invalid", "Enter a valid UPI ID, e.g. name@bank")
		}
	}
	if req.LogoURL != nil {
		next.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if err := errs.Err(); err != nil {
		return domain.Settings{}, err
	}

	now := s.clock.Now().UTC()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	if err := s.repo.Upsert(ctx, s.db, &next); err != nil {
		return domain.Settings{}, err
	}
	s.log.Debug("settings saved", zap.String("account_id", accountID.String()))
	return next, nil
}

func (s *Service) defaults(accountID snowflake.ID) domain.Settings {
	return domain.Settings{
		AccountID:         accountID,
		InvoicePrefix:     s.defaultPrefix,
		DefaultGSTPercent: domain.DefaultGSTPercent,
	}
}
