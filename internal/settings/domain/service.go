package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const DefaultGSTPercent = 18

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
}

// UpdateSettingsRequest patches the non-nil fields.
type UpdateSettingsRequest struct {
	CreatorDisplayName *string
	CompanyName        *string
	GSTIN              *string
	CompanyAddress     *string
	FooterMessage      *string
	InvoicePrefix      *string
	DefaultGSTPercent  *float64
	UPIVPA             *string
	LogoURL            *string
}

type Service interface {
	// Get returns the stored settings, or unsaved defaults when the account
	// has never saved any.
	Get(ctx context.Context) (Settings, error)
	ForAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (Settings, error)
	Save(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
}

var ErrInvalidAccount = errors.New("invalid_account")
