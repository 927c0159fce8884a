package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/pkg/db/option"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const invoiceColumns = `id, account_id, invoice_number, client_id, project_id, issue_date, due_date,
	subtotal, gst_amount, total_amount, status, paid_date, utr_reference, pdf_url, created_at, updated_at`

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, accountID snowflake.ID, prefix string, year int, now time.Time) (int64, error) {
	seq := domain.InvoiceSequence{
		AccountID: accountID,
		Prefix:    prefix,
		Year:      year,
		LastValue: 1,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "prefix"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": gorm.Expr("invoice_sequences.last_value + 1"),
			"updated_at": now,
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current domain.InvoiceSequence
	err = forUpdate(db.WithContext(ctx)).
		Where("account_id = ? AND prefix = ? AND year = ?", accountID, prefix, year).
		Take(&current).Error
	if err != nil {
		return 0, err
	}
	return current.LastValue, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.AccountID,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.ProjectID,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Subtotal,
		invoice.GSTAmount,
		invoice.TotalAmount,
		invoice.Status,
		invoice.PaidDate,
		invoice.UTRReference,
		invoice.PDFURL,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, item := range invoice.Items {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, position, title, qty, rate, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.Position,
			item.Title,
			item.Qty,
			item.Rate,
			item.Amount,
			item.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(ctx, db, accountID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(ctx, db, accountID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, lock bool) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id = ? AND id = ?`
	if lock && db.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}
	if err := db.WithContext(ctx).Raw(query, accountID, id).Scan(&invoice).Error; err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}

	var items []domain.InvoiceItem
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("position asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("account_id = ?", filter.AccountID)
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		outstanding := []domain.Status{domain.StatusSent, domain.StatusOverdue}
		switch *filter.Status {
		case domain.StatusOverdue:
			stmt = stmt.Where("status IN ? AND due_date < ?", outstanding, filter.Today)
		case domain.StatusSent:
			stmt = stmt.Where("status IN ? AND due_date >= ?", outstanding, filter.Today)
		case domain.StatusDraft, domain.StatusPaid:
			stmt = stmt.Where("status = ?", *filter.Status)
		}
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_date = ?, utr_reference = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		invoice.Status,
		invoice.PaidDate,
		invoice.UTRReference,
		invoice.UpdatedAt,
		invoice.AccountID,
		invoice.ID,
	).Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE status = ? AND due_date < ?`,
		domain.StatusOverdue,
		now,
		domain.StatusSent,
		today,
	)
	return res.RowsAffected, res.Error
}

// forUpdate adds a row lock where the dialect has one. SQLite serializes
// writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
