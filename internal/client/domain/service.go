package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Client, error)
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListClientFilter, page pagination.Pagination) ([]*Client, error)
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (int64, error)
}

type ListClientFilter struct {
	Name string
}

type ListClientRequest struct {
	PageToken string
	PageSize  int32
	Name      string
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	Name          string
	WhatsApp      string
	Email         string
	GSTIN         string
	UPIVPA        string
	Address       string
	SuggestedHour string
}

// UpdateClientRequest patches the non-nil fields.
type UpdateClientRequest struct {
	ID            string
	Name          *string
	WhatsApp      *string
	Email         *string
	GSTIN         *string
	UPIVPA        *string
	Address       *string
	SuggestedHour *string
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	Update(ctx context.Context, req UpdateClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("client_not_found")
	ErrClientInUse    = errors.New("client_in_use")
)
