package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
)

type Project struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	AccountID  snowflake.ID  `gorm:"not null;index" json:"account_id"`
	ClientID   *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	Name       string        `gorm:"not null;size:200" json:"name"`
	IsBillable bool          `gorm:"not null" json:"is_billable"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null" json:"updated_at"`

	Client *clientdomain.Client `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Project) TableName() string { return "projects" }
