package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SavingsGoal tracks money set aside towards a target. SavedAmount is the sum
// of its entries, maintained in the same transaction that adds one.
type SavingsGoal struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID    snowflake.ID `gorm:"not null;index" json:"account_id"`
	Name         string       `gorm:"not null;size:200" json:"name"`
	TargetAmount int64        `gorm:"not null" json:"target_amount"`
	SavedAmount  int64        `gorm:"not null;default:0" json:"saved_amount"`
	TargetDate   *time.Time   `json:"target_date,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`

	Entries []SavingsEntry `gorm:"foreignKey:GoalID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SavingsGoal) TableName() string { return "savings_goals" }

// SavingsEntry is a deposit (positive) or withdrawal (negative).
type SavingsEntry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	GoalID    snowflake.ID `gorm:"not null;index" json:"goal_id"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Note      string       `json:"note,omitempty"`
	EntryDate time.Time    `gorm:"not null" json:"entry_date"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (SavingsEntry) TableName() string { return "savings_entries" }

// Progress is a goal as shown to the user.
type Progress struct {
	SavingsGoal
	Saved     string  `json:"saved"`
	Target    string  `json:"target"`
	Remaining string  `json:"remaining"`
	Percent   float64 `json:"percent"`
}
