package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/pkg/db/option"
	"gorm.io/gorm"
)

const accountColumn = "account_id"

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	stmt, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	var result []*T
	err = apply(stmt.Where(query), opts).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	stmt, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	var result T
	err = apply(stmt.Where(query), opts).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// Create trusts the row's own account_id; services set it from the context.
func (r *store[T]) Create(ctx context.Context, resource *T) error {
	if _, ok := accountcontext.AccountIDFromContext(ctx); !ok {
		return ErrNoAccount
	}
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) Update(ctx context.Context, resourceID string, resource any) error {
	stmt, err := r.scoped(ctx)
	if err != nil {
		return err
	}
	return stmt.Model(new(T)).Where("id = ?", resourceID).Updates(resource).Error
}

func (r *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	stmt, err := r.scoped(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = stmt.Model(new(T)).Where(query).Count(&count).Error
	return count, err
}

func (r *store[T]) scoped(ctx context.Context) (*gorm.DB, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrNoAccount
	}
	return r.db.WithContext(ctx).Where(accountColumn+" = ?", accountID), nil
}

func apply(db *gorm.DB, opts []option.QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
