package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/hisaab/pkg/db/option"
	"gorm.io/gorm"
)

// ErrNoAccount is returned when the context carries no account.
var ErrNoAccount = errors.New("repository: no account in context")

// Repository is a generic gorm store for simple account-owned rows. Every
// statement is restricted to the account_id of the calling context.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Count(ctx context.Context, query *T) (int64, error)
}
