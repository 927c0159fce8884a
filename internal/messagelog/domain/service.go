package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *MessageLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*MessageLog, error)
}

// Entry is what callers know when they log; ids and timestamps are filled in.
type Entry struct {
	AccountID    snowflake.ID
	RelatedType  string
	RelatedID    snowflake.ID
	Channel      string
	TemplateUsed string
	Outcome      string
	Metadata     map[string]any
}

type ListMessageLogRequest struct {
	pagination.Pagination
	RelatedType string
	RelatedID   string
	Channel     string
}

type ListMessageLogResponse struct {
	pagination.PageInfo
	MessageLogs []MessageLog `json:"message_logs"`
}

type Service interface {
	// Append writes one row. Callers treat failures as non-fatal.
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListMessageLogRequest) (ListMessageLogResponse, error)
}

var (
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidEntry     = errors.New("invalid_message_log_entry")
	ErrInvalidID        = errors.New("invalid_id")
)
