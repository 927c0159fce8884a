package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.MessageLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.MessageLog, error) {
	var logs []*domain.MessageLog
	stmt := db.WithContext(ctx).Model(&domain.MessageLog{}).
		Where("account_id = ?", filter.AccountID)

	if relatedType := strings.TrimSpace(filter.RelatedType); relatedType != "" {
		stmt = stmt.Where("related_type = ?", relatedType)
	}
	if filter.RelatedID != 0 {
		stmt = stmt.Where("related_id = ?", filter.RelatedID)
	}
	if channel := strings.TrimSpace(filter.Channel); channel != "" {
		stmt = stmt.Where("channel = ?", channel)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
