package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/pkg/db/option"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, account_id, name, whatsapp, email, gstin, upi_vpa, address, suggested_hour, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.AccountID,
		client.Name,
		client.WhatsApp,
		client.Email,
		client.GSTIN,
		client.UPIVPA,
		client.Address,
		client.SuggestedHour,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET name = ?, whatsapp = ?, email = ?, gstin = ?, upi_vpa = ?, address = ?, suggested_hour = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		client.Name,
		client.WhatsApp,
		client.Email,
		client.GSTIN,
		client.UPIVPA,
		client.Address,
		client.SuggestedHour,
		client.UpdatedAt,
		client.AccountID,
		client.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, name, whatsapp, email, gstin, upi_vpa, address, suggested_hour, created_at, updated_at
		 FROM clients WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter domain.ListClientFilter, page pagination.Pagination) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("account_id = ?", accountID)
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM clients WHERE account_id = ? AND id = ?`, accountID, id)
	return res.RowsAffected, res.Error
}
