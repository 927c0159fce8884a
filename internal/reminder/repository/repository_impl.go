package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/reminder/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const reminderColumns = `id, account_id, invoice_id, channel, scheduled_at, status, sent_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reminder *domain.Reminder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reminders (`+reminderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reminder.ID,
		reminder.AccountID,
		reminder.InvoiceID,
		reminder.Channel,
		reminder.ScheduledAt,
		reminder.Status,
		reminder.SentAt,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Reminder, error) {
	var reminder domain.Reminder
	err := db.WithContext(ctx).Raw(
		`SELECT `+reminderColumns+` FROM reminders WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Scan(&reminder).Error
	if err != nil {
		return nil, err
	}
	if reminder.ID == 0 {
		return nil, nil
	}
	return &reminder, nil
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, accountID, invoiceID snowflake.ID) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := db.WithContext(ctx).Raw(
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE account_id = ? AND invoice_id = ?
		 ORDER BY scheduled_at ASC, id ASC`,
		accountID,
		invoiceID,
	).Scan(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, accountID snowflake.ID, now time.Time, limit int) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	stmt := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("status = ? AND scheduled_at <= ?", domain.StatusPending, now)
	if accountID != 0 {
		stmt = stmt.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Order("scheduled_at asc, id asc").Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *repo) Reschedule(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, at, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reminders SET scheduled_at = ?, updated_at = ?
		 WHERE account_id = ? AND id = ? AND status = ?`,
		at,
		now,
		accountID,
		id,
		domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, from, to domain.Status, sentAt *time.Time, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reminders SET status = ?, sent_at = ?, updated_at = ?
		 WHERE account_id = ? AND id = ? AND status = ?`,
		to,
		sentAt,
		now,
		accountID,
		id,
		from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) SkipPendingForInvoice(ctx context.Context, db *gorm.DB, accountID, invoiceID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reminders SET status = ?, updated_at = ?
		 WHERE account_id = ? AND invoice_id = ? AND status = ?`,
		domain.StatusSkipped,
		now,
		accountID,
		invoiceID,
		domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}
