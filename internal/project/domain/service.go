package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Project, error)
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListProjectFilter, page pagination.Pagination) ([]*Project, error)
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (int64, error)
}

type ListProjectFilter struct {
	ClientID *snowflake.ID
}

type CreateProjectRequest struct {
	Name       string
	ClientID   string
	IsBillable *bool
}

type ListProjectRequest struct {
	PageToken string
	PageSize  int32
	ClientID  string
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type Service interface {
	Create(ctx context.Context, req CreateProjectRequest) (Project, error)
	GetByID(ctx context.Context, id string) (Project, error)
	List(ctx context.Context, req ListProjectRequest) (ListProjectResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidClient  = errors.New("invalid_client")
	ErrNotFound       = errors.New("project_not_found")
	ErrProjectInUse   = errors.New("project_in_use")
)
