package domain

import (
	"context"
	"errors"
)

type CreateGoalRequest struct {
	Name         string
	TargetAmount int64
	// TargetDate is YYYY-MM-DD, optional.
	TargetDate string
}

type AddEntryRequest struct {
	GoalID string
	Amount int64
	Note   string
	// EntryDate is YYYY-MM-DD; empty means today.
	EntryDate string
}

type Service interface {
	CreateGoal(ctx context.Context, req CreateGoalRequest) (Progress, error)
	GetGoal(ctx context.Context, id string) (Progress, error)
	ListGoals(ctx context.Context) ([]Progress, error)
	AddEntry(ctx context.Context, req AddEntryRequest) (SavingsEntry, Progress, error)
	ListEntries(ctx context.Context, goalID string) ([]SavingsEntry, error)
}

var (
	ErrInvalidAccount     = errors.New("invalid_account")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrNotFound           = errors.New("savings_goal_not_found")
	ErrInsufficientSaving = errors.New("withdrawal_exceeds_saved_amount")
)
