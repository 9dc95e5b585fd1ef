// Package worker recomputes persisted settlement snapshots in response to
// expense events and on a periodic sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coppia/internal/amqp"
	"coppia/internal/core"
)

// SnapshotStore is the storage surface the snapshot worker needs.
type SnapshotStore interface {
	Couple(ctx context.Context, id string) (core.Couple, error)
	Couples(ctx context.Context) ([]core.Couple, error)
	ExpensesByDateRange(ctx context.Context, coupleID string, from, to core.Date) ([]core.Expense, error)
	SaveSettlementSnapshot(ctx context.Context, coupleID string, year, month int, s core.Settlement) error
}

// SnapshotWorker keeps one settlement snapshot per (couple, month). A
// snapshot is only rewritten when a source expense changes, so closed months
// stay immutable until an edit touches them.
type SnapshotWorker struct {
	store SnapshotStore
	now   func() time.Time
}

func NewSnapshotWorker(store SnapshotStore) *SnapshotWorker {
	return &SnapshotWorker{
		store: store,
		now:   time.Now,
	}
}

// HandleExpenseEvent recomputes the snapshot for the month an expense was
// created or deleted in.
func (w *SnapshotWorker) HandleExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"type", msg.Type,
		"expense_id", msg.ExpenseID,
		"couple_id", msg.CoupleID,
		"year", msg.Year,
		"month", msg.Month)

	if err := w.RecomputeSnapshot(ctx, msg.CoupleID, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("recompute snapshot for %s %d-%02d: %w", msg.CoupleID, msg.Year, msg.Month, err)
	}
	return nil
}

// RecomputeSnapshot folds the month's expenses into a settlement and
// persists it, replacing any previous snapshot for that month.
func (w *SnapshotWorker) RecomputeSnapshot(ctx context.Context, coupleID string, year, month int) error {
	couple, err := w.store.Couple(ctx, coupleID)
	if err != nil {
		return fmt.Errorf("load couple: %w", err)
	}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month+1, 0)
	expenses, err := w.store.ExpensesByDateRange(ctx, coupleID, from, to)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}

	settlement, err := core.ComputeSettlement(expenses, couple)
	if err != nil {
		return fmt.Errorf("compute settlement: %w", err)
	}

	if err := w.store.SaveSettlementSnapshot(ctx, coupleID, year, month, settlement); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Settlement snapshot updated",
		"couple_id", coupleID,
		"year", year,
		"month", month,
		"settled", settlement.Settled,
		"amount_cents", settlement.Amount.Cents)
	return nil
}

// SweepClosedMonth snapshots the previous calendar month for every couple.
// Run periodically so a month that closed without any event still gets its
// final snapshot.
func (w *SnapshotWorker) SweepClosedMonth(ctx context.Context) error {
	now := w.now().UTC()
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())

	couples, err := w.store.Couples(ctx)
	if err != nil {
		return fmt.Errorf("list couples: %w", err)
	}

	var failed int
	for _, couple := range couples {
		if err := w.RecomputeSnapshot(ctx, couple.ID, year, month); err != nil {
			slog.ErrorContext(ctx, "Failed to snapshot closed month",
				"couple_id", couple.ID,
				"year", year,
				"month", month,
				"error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d couples failed", failed, len(couples))
	}
	return nil
}
