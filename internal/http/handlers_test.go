package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"coppia/internal/core"
	"coppia/internal/metrics"
	"coppia/internal/services"
	"coppia/internal/storage"
)

var testCouple = core.Couple{
	ID:        "couple-1",
	UserA:     "anna",
	UserB:     "ben",
	Connected: true,
}

// memStore backs the handler tests with an in-memory implementation of the
// service storage interfaces.
type memStore struct {
	couple        core.Couple
	expenses      map[string]core.Expense
	categories    []core.Category
	budgets       []core.Budget
	goals         map[string]core.SavingsGoal
	contributions []core.Contribution
}

func newMemStore(couple core.Couple) *memStore {
	return &memStore{
		couple:   couple,
		expenses: make(map[string]core.Expense),
		goals:    make(map[string]core.SavingsGoal),
	}
}

func (m *memStore) CoupleByUser(_ context.Context, userID core.UserID) (core.Couple, error) {
	if !m.couple.Contains(userID) {
		return core.Couple{}, storage.ErrNotFound
	}
	return m.couple, nil
}

func (m *memStore) SaveExpense(_ context.Context, e core.Expense) error {
	m.expenses[e.ID] = e
	return nil
}

func (m *memStore) Expense(_ context.Context, id string) (core.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (m *memStore) DeleteExpense(_ context.Context, id string) error {
	if _, ok := m.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *memStore) ExpensesByDateRange(_ context.Context, coupleID string, from, to core.Date) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range m.expenses {
		if e.CoupleID == coupleID && !e.Date.Before(from.Time) && !e.Date.After(to.Time) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Categories(context.Context) ([]core.Category, error) {
	return m.categories, nil
}

func (m *memStore) CategorySums(ctx context.Context, coupleID string, from, to core.Date) ([]storage.CategorySumRow, error) {
	expenses, _ := m.ExpensesByDateRange(ctx, coupleID, from, to)
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

func (m *memStore) MonthlyExpenseTotals(ctx context.Context, coupleID string, from, to core.Date) ([]storage.MonthlyTotalRow, error) {
	expenses, _ := m.ExpensesByDateRange(ctx, coupleID, from, to)
	totals := make(map[[2]int]int64)
	for _, e := range expenses {
		totals[[2]int{e.Date.Year(), e.Date.Month()}] += e.Amount.Cents
	}
	return monthTotalRows(totals), nil
}

func (m *memStore) MonthlyCategoryTotals(ctx context.Context, coupleID, categoryID string, from, to core.Date) ([]storage.MonthlyTotalRow, error) {
	expenses, _ := m.ExpensesByDateRange(ctx, coupleID, from, to)
	totals := make(map[[2]int]int64)
	for _, e := range expenses {
		if e.CategoryID == categoryID {
			totals[[2]int{e.Date.Year(), e.Date.Month()}] += e.Amount.Cents
		}
	}
	return monthTotalRows(totals), nil
}

func (m *memStore) MonthlyIncomeTotals(context.Context, string, core.Date, core.Date) ([]storage.MonthlyTotalRow, error) {
	return nil, nil
}

func (m *memStore) BudgetsByMonthRange(_ context.Context, fromYear, fromMonth, toYear, toMonth int) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		idx := b.Year*12 + b.Month
		if idx >= fromYear*12+fromMonth && idx <= toYear*12+toMonth {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) SaveBudget(_ context.Context, b core.Budget) error {
	for i, existing := range m.budgets {
		if existing.CategoryID == b.CategoryID && existing.Year == b.Year && existing.Month == b.Month {
			m.budgets[i] = b
			return nil
		}
	}
	m.budgets = append(m.budgets, b)
	return nil
}

func (m *memStore) SaveGoal(_ context.Context, g core.SavingsGoal) error {
	m.goals[g.ID] = g
	return nil
}

func (m *memStore) Goal(_ context.Context, id string) (core.SavingsGoal, error) {
	g, ok := m.goals[id]
	if !ok {
		return core.SavingsGoal{}, storage.ErrNotFound
	}
	return g, nil
}

func (m *memStore) Goals(context.Context) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range m.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ApplyContribution(_ context.Context, goal core.SavingsGoal, contribution core.Contribution) error {
	m.goals[goal.ID] = goal
	m.contributions = append(m.contributions, contribution)
	return nil
}

func (m *memStore) Contributions(_ context.Context, goalID string) ([]core.Contribution, error) {
	var out []core.Contribution
	for _, c := range m.contributions {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func monthTotalRows(totals map[[2]int]int64) []storage.MonthlyTotalRow {
	var rows []storage.MonthlyTotalRow
	for ym, total := range totals {
		rows = append(rows, storage.MonthlyTotalRow{Year: int64(ym[0]), Month: int64(ym[1]), TotalCents: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Year*12+rows[i].Month < rows[j].Year*12+rows[j].Month
	})
	return rows
}

func newTestServer(t *testing.T, store *memStore) *Server {
	t.Helper()
	srv := NewServer(Options{Addr: ":0", CacheTTL: time.Minute},
		services.NewExpenseService(store, nil),
		services.NewAnalyticsService(store),
		services.NewGoalService(store, true, core.Money{Cents: 50000}),
		store,
		metrics.New())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func doRequest(srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateExpense(t *testing.T) {
	store := newMemStore(testCouple)
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodPost, "/api/expenses", "anna",
		`{"amount":"100.00","date":"2026-03-10","category_id":"groceries","paid_by":"anna","description":"weekly shop","split":{"type":"50/50"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Amount.Cents != 10000 {
		t.Errorf("amount = %d, want 10000", resp.Amount.Cents)
	}
	// anna paid and owes her own half
	if resp.MyShare.Cents != 5000 {
		t.Errorf("my_share = %d, want 5000", resp.MyShare.Cents)
	}
	if len(store.expenses) != 1 {
		t.Errorf("stored expenses = %d, want 1", len(store.expenses))
	}
}

func TestHandleCreateExpenseInvalidRatio(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	rec := doRequest(srv, http.MethodPost, "/api/expenses", "anna",
		`{"amount":"60.00","date":"2026-03-10","category_id":"fun","paid_by":"anna","description":"x","split":{"type":"custom","ratio_a":"70","ratio_b":"40"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Field != "split_ratio" {
		t.Errorf("field = %q, want split_ratio", resp.Field)
	}
}

func TestHandleCreateExpenseMissingUser(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	rec := doRequest(srv, http.MethodPost, "/api/expenses", "",
		`{"amount":"10.00","date":"2026-03-10","category_id":"fun","paid_by":"anna","description":"x","split":{"type":"50/50"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListExpensesPartnerFallback(t *testing.T) {
	couple := testCouple
	couple.Connected = false
	store := newMemStore(couple)
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: couple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 10000},
		Date: core.NewDate(2026, 3, 10), Split: core.FiftyFifty(), Description: "shop",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodGet, "/api/expenses?scope=partner&year=2026&month=3", "anna", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp listExpensesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Scope != "ours" {
		t.Errorf("scope = %q, want ours (fallback)", resp.Scope)
	}
	if !resp.PartnerDisabled {
		t.Error("expected partnerDisabled true")
	}
	if resp.Total.Cents != 10000 {
		t.Errorf("total = %d, want 10000", resp.Total.Cents)
	}
}

func TestHandleDeleteExpense(t *testing.T) {
	store := newMemStore(testCouple)
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 5000},
		Date: core.NewDate(2026, 3, 10), Split: core.FiftyFifty(), Description: "x",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodDelete, "/api/expenses/e1", "ben", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, http.MethodDelete, "/api/expenses/e1", "ben", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleUpsertBudgetAndStatus(t *testing.T) {
	store := newMemStore(testCouple)
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 55000},
		Date: core.NewDate(2026, 3, 10), Split: core.FiftyFifty(), Description: "x",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodPost, "/api/budgets", "anna",
		`{"category_id":"groceries","year":2026,"month":3,"amount":"500.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, want 200: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, http.MethodGet, "/api/budgets/status/2026/3", "anna", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200: %s", rec.Code, rec.Body)
	}

	var reports []budgetReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	// 550 spend against a 500 budget is exactly +10%, over budget.
	if reports[0].Status != string(core.BudgetStatusOver) {
		t.Errorf("status = %q, want over-budget", reports[0].Status)
	}
	if !reports[0].LowConfidence {
		t.Error("single budgeted month out of six should be low confidence")
	}
}

func TestHandleChartsSummaryIncludesBudget(t *testing.T) {
	store := newMemStore(testCouple)
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 55000},
		Date: core.NewDate(2026, 3, 10), Split: core.FiftyFifty(), Description: "x",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodPost, "/api/budgets", "anna",
		`{"category_id":"groceries","year":2026,"month":3,"amount":"500.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, want 200: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, http.MethodGet, "/api/summary/charts/2026/3", "anna", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("charts status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp chartsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.CategorySpending) != 1 {
		t.Fatalf("categorySpending = %d entries, want 1", len(resp.CategorySpending))
	}
	entry := resp.CategorySpending[0]
	if entry.Total.Cents != 55000 {
		t.Errorf("total = %d, want 55000", entry.Total.Cents)
	}
	if entry.Budget.Cents != 50000 {
		t.Errorf("budget = %d, want 50000", entry.Budget.Cents)
	}
}

func TestHandleUpsertBudgetZeroAmount(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	// Zero budgets are valid in every spelling.
	for _, amount := range []string{"0", "0.00", ""} {
		rec := doRequest(srv, http.MethodPost, "/api/budgets", "anna",
			`{"category_id":"groceries","year":2026,"month":3,"amount":"`+amount+`"}`)
		if rec.Code != http.StatusOK {
			t.Errorf("amount %q status = %d, want 200: %s", amount, rec.Code, rec.Body)
		}
	}

	rec := doRequest(srv, http.MethodPost, "/api/budgets", "anna",
		`{"category_id":"groceries","year":2026,"month":3,"amount":"-5"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount status = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestHandleContributeCapping(t *testing.T) {
	store := newMemStore(testCouple)
	store.goals["g1"] = core.SavingsGoal{
		ID: "g1", Name: "Holiday",
		Target:  core.Money{Cents: 100000},
		Current: core.Money{Cents: 90000},
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodPost, "/api/savings/goals/g1/contributions", "anna",
		`{"amount":"200.00","date":"2026-03-10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp contributionResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Capped {
		t.Error("expected capped contribution")
	}
	if resp.Applied.Cents != 10000 {
		t.Errorf("applied = %d, want 10000", resp.Applied.Cents)
	}
	if resp.Goal.Current.Cents != 100000 {
		t.Errorf("goal current = %d, want 100000", resp.Goal.Current.Cents)
	}
}

func TestHandleContributeFutureDate(t *testing.T) {
	store := newMemStore(testCouple)
	store.goals["g1"] = core.SavingsGoal{
		ID: "g1", Name: "Holiday", Target: core.Money{Cents: 100000},
	}
	srv := newTestServer(t, store)

	future := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	rec := doRequest(srv, http.MethodPost, "/api/savings/goals/g1/contributions", "anna",
		`{"amount":"10.00","date":"`+future+`"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestHandleCreateAndListGoals(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	rec := doRequest(srv, http.MethodPost, "/api/savings/goals", "anna",
		`{"name":"Emergency fund","target":"5000.00","target_date":"2027-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, http.MethodGet, "/api/savings/goals", "anna", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var goals []goalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &goals); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(goals) != 1 || goals[0].Remaining.Cents != 500000 {
		t.Errorf("goals = %+v, want one with 500000 remaining", goals)
	}
}

func TestHandleCurrentSettlement(t *testing.T) {
	store := newMemStore(testCouple)
	now := time.Now().UTC()
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 10000},
		Date: core.NewDate(now.Year(), int(now.Month()), 1),
		Split: core.FiftyFifty(), Description: "x",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodGet, "/api/analytics/current-settlement", "ben", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp settlementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Settled {
		t.Fatal("expected open settlement")
	}
	if resp.Debtor != "ben" || resp.Amount.Cents != 5000 {
		t.Errorf("settlement = %+v, want ben owing 5000", resp)
	}
	if resp.TotalSharedExpenses.Cents != 10000 {
		t.Errorf("totalSharedExpenses = %d, want 10000", resp.TotalSharedExpenses.Cents)
	}
	if resp.Message != "ben owes anna 50.00" {
		t.Errorf("message = %q, want %q", resp.Message, "ben owes anna 50.00")
	}
}

func TestHandleCurrentSettlementSharedBetweenPartners(t *testing.T) {
	store := newMemStore(testCouple)
	now := time.Now().UTC()
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 10000},
		Date: core.NewDate(now.Year(), int(now.Month()), 1),
		Split: core.FiftyFifty(), Description: "x",
	}
	srv := newTestServer(t, store)

	// The payload carries no requester-specific data, so the second request
	// is served from the couple-keyed cache and must match byte for byte.
	first := doRequest(srv, http.MethodGet, "/api/analytics/current-settlement", "anna", "")
	second := doRequest(srv, http.MethodGet, "/api/analytics/current-settlement", "ben", "")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d/%d, want 200/200", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("partner responses differ:\nanna: %s\nben:  %s", first.Body, second.Body)
	}
}

func TestHandleTrends(t *testing.T) {
	store := newMemStore(testCouple)
	store.categories = []core.Category{{ID: "groceries", Name: "Groceries"}}
	store.expenses["e1"] = core.Expense{
		ID: "e1", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 10000},
		Date: core.NewDate(2026, 1, 5), Split: core.FiftyFifty(), Description: "a",
	}
	store.expenses["e2"] = core.Expense{
		ID: "e2", CoupleID: testCouple.ID, CategoryID: "groceries",
		PaidBy: "anna", Amount: core.Money{Cents: 14000},
		Date: core.NewDate(2026, 3, 5), Split: core.FiftyFifty(), Description: "b",
	}
	srv := newTestServer(t, store)

	rec := doRequest(srv, http.MethodGet, "/api/analytics/trends/2026-01/2026-03", "anna", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp []trendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("trends = %d, want 1", len(resp))
	}
	// 100 -> 140 is +40%, a strong increase.
	if resp[0].Direction != string(core.TrendIncreasing) || resp[0].Strength != string(core.StrengthStrong) {
		t.Errorf("trend = %s/%s, want increasing/strong", resp[0].Direction, resp[0].Strength)
	}
	if resp[0].NormalizedStrength != 40 {
		t.Errorf("normalized = %d, want 40", resp[0].NormalizedStrength)
	}
}

func TestHandleTrendsInvertedRange(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	rec := doRequest(srv, http.MethodGet, "/api/analytics/trends/2026-03/2026-01", "anna", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, newMemStore(testCouple))

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(srv, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
