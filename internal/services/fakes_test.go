package services

import (
	"context"
	"sort"

	"coppia/internal/core"
	"coppia/internal/storage"
)

// fakeStore is an in-memory store shared by the service tests.
type fakeStore struct {
	couple        core.Couple
	expenses      map[string]core.Expense
	categories    []core.Category
	budgets       []core.Budget
	goals         map[string]core.SavingsGoal
	contributions []core.Contribution
	incomes       []fakeIncome

	saveExpenseErr error
}

type fakeIncome struct {
	date  core.Date
	cents int64
}

func newFakeStore(couple core.Couple) *fakeStore {
	return &fakeStore{
		couple:   couple,
		expenses: make(map[string]core.Expense),
		goals:    make(map[string]core.SavingsGoal),
	}
}

func (f *fakeStore) CoupleByUser(_ context.Context, userID core.UserID) (core.Couple, error) {
	if !f.couple.Contains(userID) {
		return core.Couple{}, storage.ErrNotFound
	}
	return f.couple, nil
}

func (f *fakeStore) SaveExpense(_ context.Context, e core.Expense) error {
	if f.saveExpenseErr != nil {
		return f.saveExpenseErr
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) Expense(_ context.Context, id string) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, id string) error {
	if _, ok := f.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) ExpensesByDateRange(_ context.Context, coupleID string, from, to core.Date) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range f.expenses {
		if e.CoupleID != coupleID {
			continue
		}
		if e.Date.Before(from.Time) || e.Date.After(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) Categories(context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) CategorySums(ctx context.Context, coupleID string, from, to core.Date) ([]storage.CategorySumRow, error) {
	expenses, _ := f.ExpensesByDateRange(ctx, coupleID, from, to)
	sums := make(map[string]int64)
	for _, e := range expenses {
		sums[e.CategoryID] += e.Amount.Cents
	}
	var rows []storage.CategorySumRow
	for id, total := range sums {
		rows = append(rows, storage.CategorySumRow{CategoryID: id, CategoryName: id, TotalCents: total})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CategoryID < rows[j].CategoryID })
	return rows, nil
}

func (f *fakeStore) MonthlyExpenseTotals(ctx context.Context, coupleID string, from, to core.Date) ([]storage.MonthlyTotalRow, error) {
	expenses, _ := f.ExpensesByDateRange(ctx, coupleID, from, to)
	totals := make(map[[2]int]int64)
	for _, e := range expenses {
		totals[[2]int{e.Date.Year(), e.Date.Month()}] += e.Amount.Cents
	}
	return monthRows(totals), nil
}

func (f *fakeStore) MonthlyCategoryTotals(ctx context.Context, coupleID, categoryID string, from, to core.Date) ([]storage.MonthlyTotalRow, error) {
	expenses, _ := f.ExpensesByDateRange(ctx, coupleID, from, to)
	totals := make(map[[2]int]int64)
	for _, e := range expenses {
		if e.CategoryID != categoryID {
			continue
		}
		totals[[2]int{e.Date.Year(), e.Date.Month()}] += e.Amount.Cents
	}
	return monthRows(totals), nil
}

func (f *fakeStore) MonthlyIncomeTotals(_ context.Context, _ string, from, to core.Date) ([]storage.MonthlyTotalRow, error) {
	totals := make(map[[2]int]int64)
	for _, in := range f.incomes {
		if in.date.Before(from.Time) || in.date.After(to.Time) {
			continue
		}
		totals[[2]int{in.date.Year(), in.date.Month()}] += in.cents
	}
	return monthRows(totals), nil
}

func (f *fakeStore) BudgetsByMonthRange(_ context.Context, fromYear, fromMonth, toYear, toMonth int) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		idx := b.Year*12 + b.Month
		if idx >= fromYear*12+fromMonth && idx <= toYear*12+toMonth {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveGoal(_ context.Context, g core.SavingsGoal) error {
	f.goals[g.ID] = g
	return nil
}

func (f *fakeStore) Goal(_ context.Context, id string) (core.SavingsGoal, error) {
	g, ok := f.goals[id]
	if !ok {
		return core.SavingsGoal{}, storage.ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) Goals(context.Context) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range f.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ApplyContribution(_ context.Context, goal core.SavingsGoal, contribution core.Contribution) error {
	f.goals[goal.ID] = goal
	f.contributions = append(f.contributions, contribution)
	return nil
}

func (f *fakeStore) Contributions(_ context.Context, goalID string) ([]core.Contribution, error) {
	var out []core.Contribution
	for _, c := range f.contributions {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func monthRows(totals map[[2]int]int64) []storage.MonthlyTotalRow {
	var rows []storage.MonthlyTotalRow
	for ym, total := range totals {
		rows = append(rows, storage.MonthlyTotalRow{Year: int64(ym[0]), Month: int64(ym[1]), TotalCents: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Year*12+rows[i].Month < rows[j].Year*12+rows[j].Month
	})
	return rows
}

// fakePublisher records published events.
type fakePublisher struct {
	events []string
	err    error
}

func (p *fakePublisher) PublishExpenseEvent(_ context.Context, eventType, expenseID, coupleID string, year, month int) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, eventType)
	return nil
}
