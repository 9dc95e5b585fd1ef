package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"coppia/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	if err := r.queries.CreateUser(ctx, User{ID: string(u.ID), Name: u.Name}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateCouple(ctx context.Context, c core.Couple) error {
	err := r.queries.CreateCouple(ctx, Couple{
		ID:        c.ID,
		UserAID:   string(c.UserA),
		UserBID:   string(c.UserB),
		Connected: c.Connected,
	})
	if err != nil {
		return fmt.Errorf("create couple: %w", err)
	}
	return nil
}

// Couple loads a couple by its ID.
func (r *SQLiteRepository) Couple(ctx context.Context, id string) (core.Couple, error) {
	row, err := r.queries.GetCouple(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Couple{}, ErrNotFound
	}
	if err != nil {
		return core.Couple{}, fmt.Errorf("get couple %s: %w", id, err)
	}
	return coupleFromRow(row), nil
}

// CoupleByUser finds the couple the given user belongs to.
func (r *SQLiteRepository) CoupleByUser(ctx context.Context, userID core.UserID) (core.Couple, error) {
	row, err := r.queries.GetCoupleByUser(ctx, string(userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Couple{}, ErrNotFound
	}
	if err != nil {
		return core.Couple{}, fmt.Errorf("get couple for user %s: %w", userID, err)
	}
	return coupleFromRow(row), nil
}

func (r *SQLiteRepository) Couples(ctx context.Context) ([]core.Couple, error) {
	rows, err := r.queries.ListCouples(ctx)
	if err != nil {
		return nil, fmt.Errorf("list couples: %w", err)
	}
	couples := make([]core.Couple, 0, len(rows))
	for _, row := range rows {
		couples = append(couples, coupleFromRow(row))
	}
	return couples, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if err := r.queries.CreateCategory(ctx, Category{ID: c.ID, Name: c.Name}); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, core.Category{ID: row.ID, Name: row.Name})
	}
	return categories, nil
}

func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) error {
	row := Expense{
		ID:           e.ID,
		CoupleID:     e.CoupleID,
		CategoryID:   e.CategoryID,
		PaidByUserID: string(e.PaidBy),
		AmountCents:  e.Amount.Cents,
		Date:         e.Date.String(),
		SplitType:    string(e.Split.Type()),
		Description:  e.Description,
	}
	if e.Split.Type() == core.SplitCustom {
		ratioA, ratioB := e.Split.Ratios()
		row.RatioA = sql.NullString{String: ratioA.String(), Valid: true}
		row.RatioB = sql.NullString{String: ratioB.String(), Valid: true}
	}
	if err := r.queries.CreateExpense(ctx, row); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"couple_id", e.CoupleID,
		"amount_cents", e.Amount.Cents,
		"split_type", e.Split.Type())
	return nil
}

func (r *SQLiteRepository) Expense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return expenseFromRow(row)
}

// DeleteExpense marks the expense as deleted; the row is kept for history.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	affected, err := r.queries.SoftDeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ExpensesByDateRange(ctx context.Context, coupleID string, from, to core.Date) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByDateRange(ctx, coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) CategorySums(ctx context.Context, coupleID string, from, to core.Date) ([]CategorySumRow, error) {
	rows, err := r.queries.CategorySumsByDateRange(ctx, coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) MonthlyExpenseTotals(ctx context.Context, coupleID string, from, to core.Date) ([]MonthlyTotalRow, error) {
	rows, err := r.queries.MonthlyExpenseTotals(ctx, coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly expense totals: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) MonthlyCategoryTotals(ctx context.Context, coupleID, categoryID string, from, to core.Date) ([]MonthlyTotalRow, error) {
	rows, err := r.queries.MonthlyCategoryTotals(ctx, coupleID, categoryID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly category totals: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) MonthlyIncomeTotals(ctx context.Context, coupleID string, from, to core.Date) ([]MonthlyTotalRow, error) {
	rows, err := r.queries.MonthlyIncomeTotals(ctx, coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly income totals: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) SaveIncome(ctx context.Context, coupleID string, userID core.UserID, id string, amount core.Money, date core.Date, description string) error {
	err := r.queries.CreateIncome(ctx, Income{
		ID:          id,
		CoupleID:    coupleID,
		UserID:      string(userID),
		AmountCents: amount.Cents,
		Date:        date.String(),
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	err := r.queries.UpsertBudget(ctx, Budget{
		CategoryID:  b.CategoryID,
		Month:       int64(b.Month),
		Year:        int64(b.Year),
		AmountCents: b.Amount.Cents,
	})
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// BudgetsByMonthRange returns all budget rows between (fromYear, fromMonth)
// and (toYear, toMonth) inclusive.
func (r *SQLiteRepository) BudgetsByMonthRange(ctx context.Context, fromYear, fromMonth, toYear, toMonth int) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsByMonthRange(ctx, fromYear, fromMonth, toYear, toMonth)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	budgets := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		budgets = append(budgets, core.Budget{
			CategoryID: row.CategoryID,
			Month:      int(row.Month),
			Year:       int(row.Year),
			Amount:     core.Money{Cents: row.AmountCents},
		})
	}
	return budgets, nil
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.SavingsGoal) error {
	row := SavingsGoal{
		ID:           g.ID,
		Name:         g.Name,
		TargetCents:  g.Target.Cents,
		CurrentCents: g.Current.Cents,
		Category:     g.Category,
		ColorIndex:   int64(g.ColorIndex),
	}
	if !g.TargetDate.IsEmpty() {
		row.TargetDate = sql.NullString{String: g.TargetDate.String(), Valid: true}
	}
	if err := r.queries.CreateGoal(ctx, row); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Goal(ctx context.Context, id string) (core.SavingsGoal, error) {
	row, err := r.queries.GetGoal(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	return goalFromRow(row)
}

func (r *SQLiteRepository) Goals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	goals := make([]core.SavingsGoal, 0, len(rows))
	for _, row := range rows {
		g, err := goalFromRow(row)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

// ApplyContribution updates the goal balance and records the contribution in
// one transaction so the two can never drift apart.
func (r *SQLiteRepository) ApplyContribution(ctx context.Context, goal core.SavingsGoal, contribution core.Contribution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.SetGoalCurrent(ctx, goal.ID, goal.Current.Cents); err != nil {
		return fmt.Errorf("update goal balance: %w", err)
	}

	row := Contribution{
		ID:          contribution.ID,
		GoalID:      contribution.GoalID,
		AmountCents: contribution.Amount.Cents,
		Date:        contribution.Date.String(),
	}
	if contribution.Note != "" {
		row.Note = sql.NullString{String: contribution.Note, Valid: true}
	}
	if err := q.CreateContribution(ctx, row); err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution applied",
		"goal_id", goal.ID,
		"amount_cents", contribution.Amount.Cents,
		"current_cents", goal.Current.Cents)
	return nil
}

func (r *SQLiteRepository) Contributions(ctx context.Context, goalID string) ([]core.Contribution, error) {
	rows, err := r.queries.ListContributionsByGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	contributions := make([]core.Contribution, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse contribution date %q: %w", row.Date, err)
		}
		contributions = append(contributions, core.Contribution{
			ID:     row.ID,
			GoalID: row.GoalID,
			Amount: core.Money{Cents: row.AmountCents},
			Date:   date,
			Note:   row.Note.String,
		})
	}
	return contributions, nil
}

func (r *SQLiteRepository) SaveSettlementSnapshot(ctx context.Context, coupleID string, year, month int, s core.Settlement) error {
	row := SettlementSnapshot{
		CoupleID:    coupleID,
		Year:        int64(year),
		Month:       int64(month),
		AmountCents: s.Amount.Cents,
		Settled:     s.Settled,
		ComputedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if !s.Settled {
		row.DebtorID = sql.NullString{String: string(s.Debtor), Valid: true}
		row.CreditorID = sql.NullString{String: string(s.Creditor), Valid: true}
	}
	if err := r.queries.UpsertSettlementSnapshot(ctx, row); err != nil {
		return fmt.Errorf("upsert settlement snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SettlementSnapshot(ctx context.Context, coupleID string, year, month int) (core.Settlement, error) {
	row, err := r.queries.GetSettlementSnapshot(ctx, coupleID, year, month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settlement{}, ErrNotFound
	}
	if err != nil {
		return core.Settlement{}, fmt.Errorf("get settlement snapshot: %w", err)
	}
	return core.Settlement{
		Debtor:   core.UserID(row.DebtorID.String),
		Creditor: core.UserID(row.CreditorID.String),
		Amount:   core.Money{Cents: row.AmountCents},
		Settled:  row.Settled,
	}, nil
}

func coupleFromRow(row Couple) core.Couple {
	return core.Couple{
		ID:        row.ID,
		UserA:     core.UserID(row.UserAID),
		UserB:     core.UserID(row.UserBID),
		Connected: row.Connected,
	}
}

func expenseFromRow(row Expense) (core.Expense, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", row.Date, err)
	}

	var split core.SplitConfig
	switch core.SplitType(row.SplitType) {
	case core.SplitFiftyFifty:
		split = core.FiftyFifty()
	case core.SplitPersonal:
		split = core.Personal()
	case core.SplitCustom:
		ratioA, err := decimal.NewFromString(row.RatioA.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse ratio_a %q: %w", row.RatioA.String, err)
		}
		ratioB, err := decimal.NewFromString(row.RatioB.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse ratio_b %q: %w", row.RatioB.String, err)
		}
		split, err = core.CustomSplit(ratioA, ratioB)
		if err != nil {
			return core.Expense{}, fmt.Errorf("rebuild split for expense %s: %w", row.ID, err)
		}
	default:
		return core.Expense{}, fmt.Errorf("unknown split type %q for expense %s", row.SplitType, row.ID)
	}

	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		// SQLite's datetime('now') default has no timezone suffix
		createdAt, _ = time.Parse("2006-01-02 15:04:05", row.CreatedAt)
	}

	return core.Expense{
		ID:          row.ID,
		CoupleID:    row.CoupleID,
		CategoryID:  row.CategoryID,
		PaidBy:      core.UserID(row.PaidByUserID),
		Amount:      core.Money{Cents: row.AmountCents},
		Date:        date,
		Split:       split,
		Description: row.Description,
		CreatedAt:   createdAt,
	}, nil
}

func goalFromRow(row SavingsGoal) (core.SavingsGoal, error) {
	g := core.SavingsGoal{
		ID:         row.ID,
		Name:       row.Name,
		Target:     core.Money{Cents: row.TargetCents},
		Current:    core.Money{Cents: row.CurrentCents},
		Category:   row.Category,
		ColorIndex: int(row.ColorIndex),
	}
	if row.TargetDate.Valid {
		date, err := core.ParseDate(row.TargetDate.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse goal target date %q: %w", row.TargetDate.String, err)
		}
		g.TargetDate = date
	}
	return g, nil
}
