// Package domain contains invoice models, the status machine and totals.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	projectdomain "github.com/smallbiznis/hisaab/internal/project/domain"
)

// Invoice amounts are paise. IssueDate and DueDate are calendar dates stored
// as midnight UTC.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	AccountID     snowflake.ID  `gorm:"not null;uniqueIndex:ux_invoices_account_number,priority:1" json:"account_id"`
	InvoiceNumber string        `gorm:"not null;size:32;uniqueIndex:ux_invoices_account_number,priority:2" json:"invoice_number"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	ProjectID     *snowflake.ID `gorm:"index" json:"project_id,omitempty"`
	IssueDate     time.Time     `gorm:"not null" json:"issue_date"`
	DueDate       time.Time     `gorm:"not null;index" json:"due_date"`
	Subtotal      int64         `gorm:"not null" json:"subtotal"`
	GSTAmount     int64         `gorm:"column:gst_amount;not null" json:"gst_amount"`
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	Status        Status        `gorm:"type:text;not null;default:'draft';index" json:"status"`
	PaidDate      *time.Time    `json:"paid_date,omitempty"`
	UTRReference  string        `gorm:"column:utr_reference;size:64" json:"utr_reference,omitempty"`
	PDFURL        string        `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`

	// DaysOverdue is filled on read alongside the derived status.
	DaysOverdue int `gorm:"-" json:"days_overdue,omitempty"`

	Items   []InvoiceItem          `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Client  *clientdomain.Client   `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`
	Project *projectdomain.Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice. Amount is round(Qty * Rate).
type InvoiceItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Position  int          `gorm:"not null" json:"position"`
	Title     string       `gorm:"not null" json:"title"`
	Qty       float64      `gorm:"not null" json:"qty"`
	Rate      int64        `gorm:"not null" json:"rate"`
	Amount    int64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoiceSequence holds the last number handed out per account, prefix and
// year.
type InvoiceSequence struct {
	AccountID snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Prefix    string       `gorm:"primaryKey;size:16"`
	Year      int          `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64        `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }

// Derive replaces the stored status with the read-time status for today.
func (i *Invoice) Derive(today time.Time) {
	i.Status = DeriveStatus(i.Status, i.DueDate, today)
	i.DaysOverdue = 0
	if i.Status == StatusOverdue {
		i.DaysOverdue = DaysOverdue(i.DueDate, today)
	}
}
