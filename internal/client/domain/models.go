package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	Name      string       `gorm:"not null;size:200" json:"name"`
	// WhatsApp is stored sanitized: empty or "91" followed by 10 digits.
	WhatsApp      string    `gorm:"column:whatsapp;size:12" json:"whatsapp,omitempty"`
	Email         string    `gorm:"size:320" json:"email,omitempty"`
	GSTIN         string    `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	UPIVPA        string    `gorm:"column:upi_vpa;size:256" json:"upi_vpa,omitempty"`
	Address       string    `json:"address,omitempty"`
	SuggestedHour string    `gorm:"size:5" json:"suggested_hour,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// HasWhatsApp reports whether the client can be messaged on WhatsApp.
func (c Client) HasWhatsApp() bool { return c.WhatsApp != "" }

func (c Client) HasEmail() bool { return c.Email != "" }
