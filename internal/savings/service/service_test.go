package service

import (
	"testing"
	"time"

	"github.com/smallbiznis/hisaab/internal/savings/domain"
	"github.com/smallbiznis/hisaab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn := testutil.NewDB(t)
	return NewService(Params{
		DB:    conn,
		Log:   testutil.Logger(),
		GenID: testutil.NewNode(t),
		Clock: testutil.Clock(2025, time.March, 10, 23, 0),
		Cfg:   testutil.Config(),
	}), conn
}

func TestCreateGoal(t *testing.T) {
	svc, _ := newTestService(t)

	goal, err := svc.CreateGoal(testutil.Ctx(), domain.CreateGoalRequest{
		Name:         " Advance tax ",
		TargetAmount: 5000000,
		TargetDate:   "2025-06-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "Advance tax", goal.Name)
	assert.Equal(t, "₹50,000.00", goal.Target)
	assert.Equal(t, "₹0.00", goal.Saved)
	assert.Zero(t, goal.Percent)
	require.NotNil(t, goal.TargetDate)

	_, err = svc.CreateGoal(testutil.Ctx(), domain.CreateGoalRequest{Name: "", TargetAmount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.CreateGoal(testutil.Ctx(), domain.CreateGoalRequest{Name: "Laptop", TargetAmount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = svc.CreateGoal(testutil.Ctx(), domain.CreateGoalRequest{Name: "Laptop", TargetAmount: 1, TargetDate: "June"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestAddEntryMovesSavedAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.Ctx()

	goal, err := svc.CreateGoal(ctx, domain.CreateGoalRequest{Name: "Laptop", TargetAmount: 12000000})
	require.NoError(t, err)

	entry, progress, err := svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: 3000000, Note: "March"})
	require.NoError(t, err)
	// 23:00 IST is still 10 March
	assert.Equal(t, "2025-03-10", entry.EntryDate.Format("2006-01-02"))
	assert.Equal(t, int64(3000000), progress.SavedAmount)
	assert.Equal(t, 25.0, progress.Percent)
	assert.Equal(t, "₹90,000.00", progress.Remaining)

	_, progress, err = svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: -1000000, EntryDate: "2025-03-12"})
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), progress.SavedAmount)

	got, err := svc.GetGoal(ctx, goal.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), got.SavedAmount)

	entries, err := svc.ListEntries(ctx, goal.ID.String())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWithdrawalCannotGoBelowZero(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := testutil.Ctx()

	goal, err := svc.CreateGoal(ctx, domain.CreateGoalRequest{Name: "Laptop", TargetAmount: 100000})
	require.NoError(t, err)
	_, _, err = svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: 50000})
	require.NoError(t, err)

	_, _, err = svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: -50001})
	assert.ErrorIs(t, err, domain.ErrInsufficientSaving)

	var n int64
	require.NoError(t, conn.Model(&domain.SavingsEntry{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, _, err = svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestOverTargetCapsRemaining(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.Ctx()

	goal, err := svc.CreateGoal(ctx, domain.CreateGoalRequest{Name: "Trip", TargetAmount: 100000})
	require.NoError(t, err)
	_, progress, err := svc.AddEntry(ctx, domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: 150000})
	require.NoError(t, err)
	assert.Equal(t, "₹0.00", progress.Remaining)
	assert.Equal(t, 150.0, progress.Percent)
}

func TestGoalsAreScopedToAccount(t *testing.T) {
	svc, _ := newTestService(t)

	goal, err := svc.CreateGoal(testutil.Ctx(), domain.CreateGoalRequest{Name: "Laptop", TargetAmount: 100000})
	require.NoError(t, err)

	_, err = svc.GetGoal(testutil.CtxFor(2002), goal.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = svc.AddEntry(testutil.CtxFor(2002), domain.AddEntryRequest{GoalID: goal.ID.String(), Amount: 100})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	goals, err := svc.ListGoals(testutil.CtxFor(2002))
	require.NoError(t, err)
	assert.Empty(t, goals)

	goals, err = svc.ListGoals(testutil.Ctx())
	require.NoError(t, err)
	assert.Len(t, goals, 1)
}
