package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"coppia/internal/core"
)

// ExpenseStore is the storage surface the expense service needs.
type ExpenseStore interface {
	CoupleByUser(ctx context.Context, userID core.UserID) (core.Couple, error)
	SaveExpense(ctx context.Context, e core.Expense) error
	Expense(ctx context.Context, id string) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ExpensesByDateRange(ctx context.Context, coupleID string, from, to core.Date) ([]core.Expense, error)
}

// EventPublisher notifies the snapshot worker about expense changes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, eventType, expenseID, coupleID string, year, month int) error
}

const (
	eventExpenseCreated = "expense.created"
	eventExpenseDeleted = "expense.deleted"
)

// ExpenseService orchestrates expense writes across SQLite and AMQP.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// Couple resolves the requester's couple.
func (s *ExpenseService) Couple(ctx context.Context, requester core.UserID) (core.Couple, error) {
	return s.store.CoupleByUser(ctx, requester)
}

// CreateExpense validates and persists an expense for the requester's couple,
// then publishes a change event. The event is best effort: a broker failure
// never fails the request, the expense is already saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, requester core.UserID, e core.Expense) (core.Expense, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve couple: %w", err)
	}
	if !couple.Contains(e.PaidBy) {
		return core.Expense{}, &core.ValidationError{Field: "paid_by", Message: "payer does not belong to couple"}
	}

	e.ID = uuid.NewString()
	e.CoupleID = couple.ID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.SaveExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, eventExpenseCreated, e.ID, couple.ID, e.Date.Year(), e.Date.Month())
	return e, nil
}

// DeleteExpense soft deletes the expense and publishes a change event so the
// affected month's snapshot is recomputed. It returns the deleted expense so
// callers can invalidate derived data for its month.
func (s *ExpenseService) DeleteExpense(ctx context.Context, requester core.UserID, id string) (core.Expense, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve couple: %w", err)
	}

	e, err := s.store.Expense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	if e.CoupleID != couple.ID {
		return core.Expense{}, &core.ValidationError{Field: "id", Message: "expense does not belong to couple"}
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	s.publishEvent(ctx, eventExpenseDeleted, id, couple.ID, e.Date.Year(), e.Date.Month())
	return e, nil
}

// ScopedExpenses lists a period's expenses together with the ours/mine/partner
// totals for the requester, applying the partner-scope fallback.
type ScopedExpenses struct {
	Expenses      []core.Expense
	Totals        core.ScopeTotals
	RequestScope  core.Scope
	ResolvedScope core.Scope
	Total         core.Money
}

func (s *ExpenseService) ListExpenses(ctx context.Context, requester core.UserID, scope core.Scope, from, to core.Date) (ScopedExpenses, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return ScopedExpenses{}, fmt.Errorf("resolve couple: %w", err)
	}

	expenses, err := s.store.ExpensesByDateRange(ctx, couple.ID, from, to)
	if err != nil {
		return ScopedExpenses{}, fmt.Errorf("list expenses: %w", err)
	}

	totals, err := core.AggregateScopes(expenses, couple, requester)
	if err != nil {
		return ScopedExpenses{}, fmt.Errorf("aggregate scopes: %w", err)
	}

	total, resolved, err := core.ScopedTotal(expenses, couple, requester, scope)
	if err != nil {
		return ScopedExpenses{}, fmt.Errorf("scoped total: %w", err)
	}

	return ScopedExpenses{
		Expenses:      expenses,
		Totals:        totals,
		RequestScope:  scope,
		ResolvedScope: resolved,
		Total:         total,
	}, nil
}

func (s *ExpenseService) publishEvent(ctx context.Context, eventType, expenseID, coupleID string, year, month int) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping expense event")
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, eventType, expenseID, coupleID, year, month); err != nil {
		// Don't fail the request, the write already succeeded
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", eventType,
			"expense_id", expenseID,
			"error", err)
	}
}
