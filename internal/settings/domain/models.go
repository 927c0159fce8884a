package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Settings is the single per-account row of business details used on
// invoices and reminder messages.
type Settings struct {
	AccountID          snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"account_id"`
	CreatorDisplayName string       `gorm:"size:200" json:"creator_display_name"`
	CompanyName        string       `gorm:"size:200" json:"company_name"`
	GSTIN              string       `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	CompanyAddress     string       `json:"company_address,omitempty"`
	FooterMessage      string       `json:"footer_message,omitempty"`
	InvoicePrefix      string       `gorm:"size:16;not null" json:"invoice_prefix"`
	DefaultGSTPercent  float64      `gorm:"column:default_gst_percent;not null" json:"default_gst_percent"`
	UPIVPA             string       `gorm:"column:upi_vpa;size:256" json:"upi_vpa,omitempty"`
	LogoURL            string       `json:"logo_url,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func (Settings) TableName() string { return "settings" }

// BusinessName is the name shown to clients: company name, falling back to
// the creator's display name.
func (s Settings) BusinessName() string {
	if s.CompanyName != "" {
		return s.CompanyName
	}
	return s.CreatorDisplayName
}
