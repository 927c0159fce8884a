package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/format"
	"github.com/smallbiznis/hisaab/internal/savings/domain"
	"github.com/smallbiznis/hisaab/pkg/db/option"
	"github.com/smallbiznis/hisaab/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location

	goalrepo  repository.Repository[domain.SavingsGoal]
	entryrepo repository.Repository[domain.SavingsEntry]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("savings.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Cfg.Location(),

		goalrepo:  repository.ProvideStore[domain.SavingsGoal](p.DB),
		entryrepo: repository.ProvideStore[domain.SavingsEntry](p.DB),
	}
}

func (s *Service) CreateGoal(ctx context.Context, req domain.CreateGoalRequest) (domain.Progress, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Progress{}, domain.ErrInvalidAccount
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Progress{}, domain.ErrInvalidName
	}
	if req.TargetAmount <= 0 {
		return domain.Progress{}, domain.ErrInvalidAmount
	}

	var targetDate *time.Time
	if raw := strings.TrimSpace(req.TargetDate); raw != "" {
		parsed, err := format.ParseISODate(raw, time.UTC)
		if err != nil {
			return domain.Progress{}, domain.ErrInvalidDate
		}
		targetDate = &parsed
	}

	now := s.clock.Now().UTC()
	goal := domain.SavingsGoal{
		ID:           s.genID.Generate(),
		AccountID:    accountID,
		Name:         name,
		TargetAmount: req.TargetAmount,
		TargetDate:   targetDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.goalrepo.Create(ctx, &goal); err != nil {
		return domain.Progress{}, err
	}
	return progressOf(goal), nil
}

func (s *Service) GetGoal(ctx context.Context, id string) (domain.Progress, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Progress{}, domain.ErrInvalidAccount
	}
	goalID, err := parseID(id)
	if err != nil {
		return domain.Progress{}, err
	}
	goal, err := s.goalrepo.FindOne(ctx, &domain.SavingsGoal{ID: goalID, AccountID: accountID})
	if err != nil {
		return domain.Progress{}, err
	}
	if goal == nil {
		return domain.Progress{}, domain.ErrNotFound
	}
	return progressOf(*goal), nil
}

func (s *Service) ListGoals(ctx context.Context) ([]domain.Progress, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	goals, err := s.goalrepo.Find(ctx, &domain.SavingsGoal{AccountID: accountID},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Progress, 0, len(goals))
	for _, goal := range goals {
		if goal != nil {
			out = append(out, progressOf(*goal))
		}
	}
	return out, nil
}

// AddEntry inserts the entry and moves saved_amount by the same amount in
// one transaction. Withdrawals may not take the goal below zero.
func (s *Service) AddEntry(ctx context.Context, req domain.AddEntryRequest) (domain.SavingsEntry, domain.Progress, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.SavingsEntry{}, domain.Progress{}, domain.ErrInvalidAccount
	}
	goalID, err := parseID(req.GoalID)
	if err != nil {
		return domain.SavingsEntry{}, domain.Progress{}, err
	}
	if req.Amount == 0 {
		return domain.SavingsEntry{}, domain.Progress{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	entryDate := format.DateOf(now, s.loc)
	if raw := strings.TrimSpace(req.EntryDate); raw != "" {
		parsed, err := format.ParseISODate(raw, time.UTC)
		if err != nil {
			return domain.SavingsEntry{}, domain.Progress{}, domain.ErrInvalidDate
		}
		entryDate = parsed
	}

	entry := domain.SavingsEntry{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		GoalID:    goalID,
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		EntryDate: entryDate,
		CreatedAt: now,
	}

	var goal *domain.SavingsGoal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goals := s.goalrepo.WithTrx(tx)
		current, err := goals.FindOne(ctx, &domain.SavingsGoal{ID: goalID, AccountID: accountID})
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.SavedAmount+req.Amount < 0 {
			return domain.ErrInsufficientSaving
		}

		if err := s.entryrepo.WithTrx(tx).Create(ctx, &entry); err != nil {
			return err
		}
		if err := goals.Update(ctx, goalID.String(), map[string]any{
			"saved_amount": gorm.Expr("saved_amount + ?", req.Amount),
			"updated_at":   now,
		}); err != nil {
			return err
		}

		goal, err = goals.FindOne(ctx, &domain.SavingsGoal{ID: goalID, AccountID: accountID})
		return err
	})
	if err != nil {
		return domain.SavingsEntry{}, domain.Progress{}, err
	}
	if goal == nil {
		return domain.SavingsEntry{}, domain.Progress{}, domain.ErrNotFound
	}
	return entry, progressOf(*goal), nil
}

func (s *Service) ListEntries(ctx context.Context, rawGoalID string) ([]domain.SavingsEntry, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	goalID, err := parseID(rawGoalID)
	if err != nil {
		return nil, err
	}
	items, err := s.entryrepo.Find(ctx, &domain.SavingsEntry{AccountID: accountID, GoalID: goalID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc", Allow: map[string]bool{"created_at": true}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SavingsEntry, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func progressOf(goal domain.SavingsGoal) domain.Progress {
	remaining := goal.TargetAmount - goal.SavedAmount
	if remaining < 0 {
		remaining = 0
	}
	var percent float64
	if goal.TargetAmount > 0 {
		percent = math.Round(float64(goal.SavedAmount)*10000/float64(goal.TargetAmount)) / 100
	}
	return domain.Progress{
		SavingsGoal: goal,
		Saved:       format.FormatINR(goal.SavedAmount),
		Target:      format.FormatINR(goal.TargetAmount),
		Remaining:   format.FormatINR(remaining),
		Percent:     percent,
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
