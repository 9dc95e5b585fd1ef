package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"coppia/internal/core"
	"coppia/internal/storage"
)

// AnalyticsStore is the read surface the analytics service needs.
type AnalyticsStore interface {
	CoupleByUser(ctx context.Context, userID core.UserID) (core.Couple, error)
	ExpensesByDateRange(ctx context.Context, coupleID string, from, to core.Date) ([]core.Expense, error)
	Categories(ctx context.Context) ([]core.Category, error)
	CategorySums(ctx context.Context, coupleID string, from, to core.Date) ([]storage.CategorySumRow, error)
	MonthlyExpenseTotals(ctx context.Context, coupleID string, from, to core.Date) ([]storage.MonthlyTotalRow, error)
	MonthlyCategoryTotals(ctx context.Context, coupleID, categoryID string, from, to core.Date) ([]storage.MonthlyTotalRow, error)
	MonthlyIncomeTotals(ctx context.Context, coupleID string, from, to core.Date) ([]storage.MonthlyTotalRow, error)
	BudgetsByMonthRange(ctx context.Context, fromYear, fromMonth, toYear, toMonth int) ([]core.Budget, error)
	Goals(ctx context.Context) ([]core.SavingsGoal, error)
}

// budgetCoverageMonths is the trailing window used to judge how complete a
// category's budget history is.
const budgetCoverageMonths = 6

// AnalyticsService derives charts, trends, budget reports and settlements
// from the stored ledger. All derivations are pure; the service only fans
// out the reads.
type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		now:   time.Now,
	}
}

type CategorySpend struct {
	CategoryID   string
	CategoryName string
	Total        core.Money
	Budget       core.Money // zero when the category has no budget this month
}

type MonthPoint struct {
	Year     int
	Month    int
	Expenses core.Money
	Income   core.Money
	Savings  core.Money
}

type ChartsSummary struct {
	Year             int
	Month            int
	CategorySpending []CategorySpend
	MonthlyTotals    []MonthPoint
	Totals           core.ScopeTotals
}

// ChartsSummary builds the month's category breakdown, each with its budget,
// plus a trailing six-month totals series. The reads are independent and
// fetched concurrently.
func (s *AnalyticsService) ChartsSummary(ctx context.Context, requester core.UserID, year, month int) (ChartsSummary, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return ChartsSummary{}, fmt.Errorf("resolve couple: %w", err)
	}

	monthFrom, monthTo := monthBounds(year, month)
	seriesStartYear, seriesStartMonth := addMonths(year, month, -(budgetCoverageMonths - 1))
	seriesFrom, _ := monthBounds(seriesStartYear, seriesStartMonth)

	var (
		sums     []storage.CategorySumRow
		expTot   []storage.MonthlyTotalRow
		incTot   []storage.MonthlyTotalRow
		expenses []core.Expense
		budgets  []core.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sums, err = s.store.CategorySums(gctx, couple.ID, monthFrom, monthTo)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.store.BudgetsByMonthRange(gctx, year, month, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		expTot, err = s.store.MonthlyExpenseTotals(gctx, couple.ID, seriesFrom, monthTo)
		return err
	})
	g.Go(func() error {
		var err error
		incTot, err = s.store.MonthlyIncomeTotals(gctx, couple.ID, seriesFrom, monthTo)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ExpensesByDateRange(gctx, couple.ID, monthFrom, monthTo)
		return err
	})
	if err := g.Wait(); err != nil {
		return ChartsSummary{}, fmt.Errorf("load charts data: %w", err)
	}

	totals, err := core.AggregateScopes(expenses, couple, requester)
	if err != nil {
		return ChartsSummary{}, fmt.Errorf("aggregate scopes: %w", err)
	}

	budgeted := make(map[string]core.Money, len(budgets))
	for _, b := range budgets {
		budgeted[b.CategoryID] = b.Amount
	}

	summary := ChartsSummary{
		Year:          year,
		Month:         month,
		MonthlyTotals: mergeMonthSeries(expTot, incTot, seriesStartYear, seriesStartMonth, year, month),
		Totals:        totals,
	}
	for _, row := range sums {
		summary.CategorySpending = append(summary.CategorySpending, CategorySpend{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			Total:        core.Money{Cents: row.TotalCents},
			Budget:       budgeted[row.CategoryID],
		})
	}
	return summary, nil
}

// BudgetStatus evaluates every budgeted or spending category for one month.
// Coverage counts budget rows over the trailing six months so a category
// with a patchy budget history is flagged low confidence.
func (s *AnalyticsService) BudgetStatus(ctx context.Context, requester core.UserID, year, month int) ([]core.BudgetReport, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("resolve couple: %w", err)
	}

	fromYear, fromMonth := addMonths(year, month, -(budgetCoverageMonths - 1))
	monthFrom, monthTo := monthBounds(year, month)

	var (
		budgets []core.Budget
		sums    []storage.CategorySumRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.BudgetsByMonthRange(gctx, fromYear, fromMonth, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		sums, err = s.store.CategorySums(gctx, couple.ID, monthFrom, monthTo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load budget data: %w", err)
	}

	budgeted := make(map[string]core.Money)
	coverage := make(map[string]int)
	for _, b := range budgets {
		coverage[b.CategoryID]++
		if b.Year == year && b.Month == month {
			budgeted[b.CategoryID] = b.Amount
		}
	}

	spend := make(map[string]core.Money)
	for _, row := range sums {
		spend[row.CategoryID] = core.Money{Cents: row.TotalCents}
	}

	// Report every category that has either a budget or spend this month.
	seen := make(map[string]bool)
	var reports []core.BudgetReport
	for _, b := range budgets {
		if seen[b.CategoryID] {
			continue
		}
		seen[b.CategoryID] = true
		reports = append(reports, core.EvaluateBudget(
			b.CategoryID, spend[b.CategoryID], budgeted[b.CategoryID],
			coverage[b.CategoryID], budgetCoverageMonths))
	}
	for _, row := range sums {
		if seen[row.CategoryID] {
			continue
		}
		seen[row.CategoryID] = true
		reports = append(reports, core.EvaluateBudget(
			row.CategoryID, spend[row.CategoryID], core.Money{},
			0, budgetCoverageMonths))
	}
	return reports, nil
}

type CategoryTrend struct {
	CategoryID   string
	CategoryName string
	Series       []core.MonthlySpend
	Trend        core.Trend
}

// Trends analyzes each category's monthly spending between two months,
// inclusive. Months without expenses count as zero so a vanished spending
// habit reads as decreasing, not missing data.
func (s *AnalyticsService) Trends(ctx context.Context, requester core.UserID, startYear, startMonth, endYear, endMonth int) ([]CategoryTrend, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("resolve couple: %w", err)
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	from, _ := monthBounds(startYear, startMonth)
	_, to := monthBounds(endYear, endMonth)

	trends := make([]CategoryTrend, len(categories))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, cat := range categories {
		g.Go(func() error {
			rows, err := s.store.MonthlyCategoryTotals(gctx, couple.ID, cat.ID, from, to)
			if err != nil {
				return fmt.Errorf("category %s totals: %w", cat.ID, err)
			}
			series := fillMonthSeries(rows, startYear, startMonth, endYear, endMonth)
			mu.Lock()
			trends[i] = CategoryTrend{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Series:       series,
				Trend:        core.AnalyzeTrend(series),
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trends, nil
}

type SavingsMonth struct {
	Year        int
	Month       int
	Income      core.Money
	Expenses    core.Money
	Savings     core.Money
	SavingsRate decimal.Decimal // percent of income kept, zero when no income
}

type GoalProgress struct {
	Goal     core.SavingsGoal
	Progress decimal.Decimal // percent of target reached
}

type SavingsAnalysis struct {
	Months []SavingsMonth
	Goals  []GoalProgress
}

// SavingsAnalysis reports month-by-month savings (income minus expenses) and
// the progress of every savings goal.
func (s *AnalyticsService) SavingsAnalysis(ctx context.Context, requester core.UserID, startYear, startMonth, endYear, endMonth int) (SavingsAnalysis, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return SavingsAnalysis{}, fmt.Errorf("resolve couple: %w", err)
	}

	from, _ := monthBounds(startYear, startMonth)
	_, to := monthBounds(endYear, endMonth)

	var (
		expTot []storage.MonthlyTotalRow
		incTot []storage.MonthlyTotalRow
		goals  []core.SavingsGoal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expTot, err = s.store.MonthlyExpenseTotals(gctx, couple.ID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		incTot, err = s.store.MonthlyIncomeTotals(gctx, couple.ID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = s.store.Goals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SavingsAnalysis{}, fmt.Errorf("load savings data: %w", err)
	}

	analysis := SavingsAnalysis{}
	for _, p := range mergeMonthSeries(expTot, incTot, startYear, startMonth, endYear, endMonth) {
		m := SavingsMonth{
			Year:     p.Year,
			Month:    p.Month,
			Income:   p.Income,
			Expenses: p.Expenses,
			Savings:  p.Savings,
		}
		if p.Income.Cents > 0 {
			m.SavingsRate = p.Savings.Decimal().Div(p.Income.Decimal()).Mul(decimal.NewFromInt(100)).Round(1)
		}
		analysis.Months = append(analysis.Months, m)
	}

	for _, goal := range goals {
		progress := decimal.Zero
		if goal.Target.Cents > 0 {
			progress = goal.Current.Decimal().Div(goal.Target.Decimal()).Mul(decimal.NewFromInt(100)).Round(1)
		}
		analysis.Goals = append(analysis.Goals, GoalProgress{Goal: goal, Progress: progress})
	}
	return analysis, nil
}

// SettlementSummary is couple-level data only, so one cached copy serves
// both partners.
type SettlementSummary struct {
	Year        int
	Month       int
	Settlement  core.Settlement
	TotalShared core.Money
}

// CurrentSettlement computes the running settlement for the current calendar
// month from the live ledger. Closed months are served from snapshots.
func (s *AnalyticsService) CurrentSettlement(ctx context.Context, requester core.UserID) (SettlementSummary, error) {
	couple, err := s.store.CoupleByUser(ctx, requester)
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("resolve couple: %w", err)
	}

	now := s.now().UTC()
	year, month := now.Year(), int(now.Month())
	from, to := monthBounds(year, month)

	expenses, err := s.store.ExpensesByDateRange(ctx, couple.ID, from, to)
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("list expenses: %w", err)
	}

	settlement, err := core.ComputeSettlement(expenses, couple)
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("compute settlement: %w", err)
	}

	return SettlementSummary{
		Year:        year,
		Month:       month,
		Settlement:  settlement,
		TotalShared: core.TotalShared(expenses),
	}, nil
}

// monthBounds returns the first and last day of a month.
func monthBounds(year, month int) (core.Date, core.Date) {
	return core.NewDate(year, month, 1), core.NewDate(year, month+1, 0)
}

// addMonths shifts a (year, month) pair by delta months.
func addMonths(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month+delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month())
}

type yearMonth struct {
	year  int
	month int
}

// mergeMonthSeries joins expense and income totals into one contiguous
// month-by-month series, zero-filling months without rows.
func mergeMonthSeries(expenses, incomes []storage.MonthlyTotalRow, startYear, startMonth, endYear, endMonth int) []MonthPoint {
	exp := make(map[yearMonth]int64, len(expenses))
	for _, row := range expenses {
		exp[yearMonth{int(row.Year), int(row.Month)}] = row.TotalCents
	}
	inc := make(map[yearMonth]int64, len(incomes))
	for _, row := range incomes {
		inc[yearMonth{int(row.Year), int(row.Month)}] = row.TotalCents
	}

	var points []MonthPoint
	year, month := startYear, startMonth
	for core.MonthsInRange(year, month, endYear, endMonth) > 0 {
		key := yearMonth{year, month}
		p := MonthPoint{
			Year:     year,
			Month:    month,
			Expenses: core.Money{Cents: exp[key]},
			Income:   core.Money{Cents: inc[key]},
		}
		p.Savings = p.Income.Sub(p.Expenses)
		points = append(points, p)
		year, month = addMonths(year, month, 1)
	}
	return points
}

// fillMonthSeries turns sparse monthly rows into a contiguous MonthlySpend
// series, zero-filling gaps.
func fillMonthSeries(rows []storage.MonthlyTotalRow, startYear, startMonth, endYear, endMonth int) []core.MonthlySpend {
	totals := make(map[yearMonth]int64, len(rows))
	for _, row := range rows {
		totals[yearMonth{int(row.Year), int(row.Month)}] = row.TotalCents
	}

	var series []core.MonthlySpend
	year, month := startYear, startMonth
	for core.MonthsInRange(year, month, endYear, endMonth) > 0 {
		series = append(series, core.MonthlySpend{
			Year:  year,
			Month: month,
			Total: core.Money{Cents: totals[yearMonth{year, month}]},
		})
		year, month = addMonths(year, month, 1)
	}
	return series
}
