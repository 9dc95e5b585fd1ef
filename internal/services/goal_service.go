package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coppia/internal/core"
)

// GoalStore is the storage surface the goal service needs.
type GoalStore interface {
	SaveGoal(ctx context.Context, g core.SavingsGoal) error
	Goal(ctx context.Context, id string) (core.SavingsGoal, error)
	Goals(ctx context.Context) ([]core.SavingsGoal, error)
	ApplyContribution(ctx context.Context, goal core.SavingsGoal, contribution core.Contribution) error
	Contributions(ctx context.Context, goalID string) ([]core.Contribution, error)
}

// GoalService manages savings goals and their contributions. Every
// contribution, quick-add included, runs through core.ApplyContribution so
// the cap rule has a single enforcement point.
type GoalService struct {
	store      GoalStore
	enforceCap bool
	quickAdd   core.Money
	now        func() time.Time
}

func NewGoalService(store GoalStore, enforceCap bool, quickAdd core.Money) *GoalService {
	return &GoalService{
		store:      store,
		enforceCap: enforceCap,
		quickAdd:   quickAdd,
		now:        time.Now,
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	g.ID = uuid.NewString()
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.store.SaveGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save goal: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal created",
		"id", g.ID,
		"name", g.Name,
		"target_cents", g.Target.Cents)
	return g, nil
}

func (s *GoalService) Goals(ctx context.Context) ([]core.SavingsGoal, error) {
	return s.store.Goals(ctx)
}

func (s *GoalService) Goal(ctx context.Context, id string) (core.SavingsGoal, error) {
	return s.store.Goal(ctx, id)
}

func (s *GoalService) Contributions(ctx context.Context, goalID string) ([]core.Contribution, error) {
	return s.store.Contributions(ctx, goalID)
}

// Contribute applies one contribution to a goal. When capping clips the
// amount to zero (goal already funded) nothing is persisted and the caller
// still gets the capped flag.
func (s *GoalService) Contribute(ctx context.Context, goalID string, amount core.Money, date core.Date, note string) (core.ContributionResult, error) {
	goal, err := s.store.Goal(ctx, goalID)
	if err != nil {
		return core.ContributionResult{}, fmt.Errorf("load goal: %w", err)
	}

	result, err := core.ApplyContribution(goal, amount, date, s.now(), s.enforceCap)
	if err != nil {
		return core.ContributionResult{}, err
	}

	if result.Applied.IsZero() {
		slog.InfoContext(ctx, "Goal already funded, contribution skipped", "goal_id", goalID)
		return result, nil
	}

	contribution := core.Contribution{
		ID:     uuid.NewString(),
		GoalID: goalID,
		Amount: result.Applied,
		Date:   date,
		Note:   note,
	}
	if err := s.store.ApplyContribution(ctx, result.Goal, contribution); err != nil {
		return core.ContributionResult{}, fmt.Errorf("apply contribution: %w", err)
	}
	return result, nil
}

// QuickAdd contributes the configured fixed amount dated today. Same cap
// path as a regular contribution.
func (s *GoalService) QuickAdd(ctx context.Context, goalID string) (core.ContributionResult, error) {
	now := s.now().UTC()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	return s.Contribute(ctx, goalID, s.quickAdd, today, "quick add")
}
