package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside a
// transaction where needed.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID   string
	Name string
}

type Couple struct {
	ID        string
	UserAID   string
	UserBID   string
	Connected bool
}

type Category struct {
	ID   string
	Name string
}

type Expense struct {
	ID            string
	CoupleID      string
	CategoryID    string
	PaidByUserID  string
	AmountCents   int64
	Date          string
	SplitType     string
	RatioA        sql.NullString
	RatioB        sql.NullString
	Description   string
	Deleted       bool
	CreatedAt     string
}

type Income struct {
	ID          string
	CoupleID    string
	UserID      string
	AmountCents int64
	Date        string
	Description string
}

type Budget struct {
	CategoryID  string
	Month       int64
	Year        int64
	AmountCents int64
}

type SavingsGoal struct {
	ID           string
	Name         string
	TargetCents  int64
	CurrentCents int64
	Category     string
	TargetDate   sql.NullString
	ColorIndex   int64
}

type Contribution struct {
	ID          string
	GoalID      string
	AmountCents int64
	Date        string
	Note        sql.NullString
}

type SettlementSnapshot struct {
	CoupleID    string
	Year        int64
	Month       int64
	AmountCents int64
	DebtorID    sql.NullString
	CreditorID  sql.NullString
	Settled     bool
	ComputedAt  string
}

type CategorySumRow struct {
	CategoryID   string
	CategoryName string
	TotalCents   int64
}

type MonthlyTotalRow struct {
	Year       int64
	Month      int64
	TotalCents int64
}

func (q *Queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, name) VALUES (?, ?)`, u.ID, u.Name)
	return err
}

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Name)
	return u, err
}

func (q *Queries) CreateCouple(ctx context.Context, c Couple) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO couples (id, user_a_id, user_b_id, connected) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserAID, c.UserBID, c.Connected)
	return err
}

func (q *Queries) GetCouple(ctx context.Context, id string) (Couple, error) {
	var c Couple
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_a_id, user_b_id, connected FROM couples WHERE id = ?`,
		id).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.Connected)
	return c, err
}

func (q *Queries) GetCoupleByUser(ctx context.Context, userID string) (Couple, error) {
	var c Couple
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_a_id, user_b_id, connected
		 FROM couples WHERE user_a_id = ? OR user_b_id = ?`,
		userID, userID).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.Connected)
	return c, err
}

func (q *Queries) ListCouples(ctx context.Context) ([]Couple, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_a_id, user_b_id, connected FROM couples`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var couples []Couple
	for rows.Next() {
		var c Couple
		if err := rows.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.Connected); err != nil {
			return nil, err
		}
		couples = append(couples, c)
	}
	return couples, rows.Err()
}

func (q *Queries) CreateCategory(ctx context.Context, c Category) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name)
	return err
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *Queries) CreateExpense(ctx context.Context, e Expense) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO expenses
		 (id, couple_id, category_id, paid_by_user_id, amount_cents, date, split_type, ratio_a, ratio_b, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CoupleID, e.CategoryID, e.PaidByUserID, e.AmountCents,
		e.Date, e.SplitType, e.RatioA, e.RatioB, e.Description)
	return err
}

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	var e Expense
	err := q.db.QueryRowContext(ctx,
		`SELECT id, couple_id, category_id, paid_by_user_id, amount_cents, date,
		        split_type, ratio_a, ratio_b, description, deleted, created_at
		 FROM expenses WHERE id = ? AND deleted = 0`, id).
		Scan(&e.ID, &e.CoupleID, &e.CategoryID, &e.PaidByUserID, &e.AmountCents,
			&e.Date, &e.SplitType, &e.RatioA, &e.RatioB, &e.Description, &e.Deleted, &e.CreatedAt)
	return e, err
}

func (q *Queries) SoftDeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListExpensesByDateRange(ctx context.Context, coupleID, from, to string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, couple_id, category_id, paid_by_user_id, amount_cents, date,
		        split_type, ratio_a, ratio_b, description, deleted, created_at
		 FROM expenses
		 WHERE couple_id = ? AND deleted = 0 AND date >= ? AND date <= ?
		 ORDER BY date, created_at`, coupleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CoupleID, &e.CategoryID, &e.PaidByUserID, &e.AmountCents,
			&e.Date, &e.SplitType, &e.RatioA, &e.RatioB, &e.Description, &e.Deleted, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (q *Queries) CategorySumsByDateRange(ctx context.Context, coupleID, from, to string) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT e.category_id, c.name, SUM(e.amount_cents)
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.couple_id = ? AND e.deleted = 0 AND e.date >= ? AND e.date <= ?
		 GROUP BY e.category_id, c.name
		 ORDER BY SUM(e.amount_cents) DESC`, coupleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []CategorySumRow
	for rows.Next() {
		var r CategorySumRow
		if err := rows.Scan(&r.CategoryID, &r.CategoryName, &r.TotalCents); err != nil {
			return nil, err
		}
		sums = append(sums, r)
	}
	return sums, rows.Err()
}

func (q *Queries) MonthlyExpenseTotals(ctx context.Context, coupleID, from, to string) ([]MonthlyTotalRow, error) {
	return q.monthlyTotals(ctx, "expenses", "deleted = 0 AND", coupleID, from, to)
}

func (q *Queries) MonthlyCategoryTotals(ctx context.Context, coupleID, categoryID, from, to string) ([]MonthlyTotalRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT CAST(substr(date, 1, 4) AS INTEGER), CAST(substr(date, 6, 2) AS INTEGER), SUM(amount_cents)
		 FROM expenses
		 WHERE couple_id = ? AND category_id = ? AND deleted = 0 AND date >= ? AND date <= ?
		 GROUP BY substr(date, 1, 7)
		 ORDER BY substr(date, 1, 7)`, coupleID, categoryID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMonthlyTotals(rows)
}

func (q *Queries) MonthlyIncomeTotals(ctx context.Context, coupleID, from, to string) ([]MonthlyTotalRow, error) {
	return q.monthlyTotals(ctx, "incomes", "", coupleID, from, to)
}

func (q *Queries) monthlyTotals(ctx context.Context, table, extraWhere, coupleID, from, to string) ([]MonthlyTotalRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT CAST(substr(date, 1, 4) AS INTEGER), CAST(substr(date, 6, 2) AS INTEGER), SUM(amount_cents)
		 FROM `+table+`
		 WHERE couple_id = ? AND `+extraWhere+` date >= ? AND date <= ?
		 GROUP BY substr(date, 1, 7)
		 ORDER BY substr(date, 1, 7)`, coupleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMonthlyTotals(rows)
}

func scanMonthlyTotals(rows *sql.Rows) ([]MonthlyTotalRow, error) {
	var totals []MonthlyTotalRow
	for rows.Next() {
		var r MonthlyTotalRow
		if err := rows.Scan(&r.Year, &r.Month, &r.TotalCents); err != nil {
			return nil, err
		}
		totals = append(totals, r)
	}
	return totals, rows.Err()
}

func (q *Queries) CreateIncome(ctx context.Context, i Income) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO incomes (id, couple_id, user_id, amount_cents, date, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.CoupleID, i.UserID, i.AmountCents, i.Date, i.Description)
	return err
}

// UpsertBudget keeps at most one row per (category, month, year);
// a repeated write replaces the amount (last write wins).
func (q *Queries) UpsertBudget(ctx context.Context, b Budget) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, month, year, amount_cents)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (category_id, month, year) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.CategoryID, b.Month, b.Year, b.AmountCents)
	return err
}

func (q *Queries) ListBudgetsByMonthRange(ctx context.Context, fromYear, fromMonth, toYear, toMonth int) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id, month, year, amount_cents
		 FROM budgets
		 WHERE (year * 12 + month) BETWEEN ? AND ?
		 ORDER BY year, month`,
		fromYear*12+fromMonth, toYear*12+toMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.CategoryID, &b.Month, &b.Year, &b.AmountCents); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) CreateGoal(ctx context.Context, g SavingsGoal) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, name, target_cents, current_cents, category, target_date, color_index)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.TargetCents, g.CurrentCents, g.Category, g.TargetDate, g.ColorIndex)
	return err
}

func (q *Queries) GetGoal(ctx context.Context, id string) (SavingsGoal, error) {
	var g SavingsGoal
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, target_cents, current_cents, category, target_date, color_index
		 FROM savings_goals WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.TargetCents, &g.CurrentCents, &g.Category, &g.TargetDate, &g.ColorIndex)
	return g, err
}

func (q *Queries) ListGoals(ctx context.Context) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, target_cents, current_cents, category, target_date, color_index
		 FROM savings_goals ORDER BY color_index, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []SavingsGoal
	for rows.Next() {
		var g SavingsGoal
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetCents, &g.CurrentCents, &g.Category, &g.TargetDate, &g.ColorIndex); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (q *Queries) SetGoalCurrent(ctx context.Context, id string, currentCents int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_cents = ? WHERE id = ?`, currentCents, id)
	return err
}

func (q *Queries) CreateContribution(ctx context.Context, c Contribution) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO contributions (id, goal_id, amount_cents, date, note)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.AmountCents, c.Date, c.Note)
	return err
}

func (q *Queries) ListContributionsByGoal(ctx context.Context, goalID string) ([]Contribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, goal_id, amount_cents, date, note
		 FROM contributions WHERE goal_id = ? ORDER BY date`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []Contribution
	for rows.Next() {
		var c Contribution
		if err := rows.Scan(&c.ID, &c.GoalID, &c.AmountCents, &c.Date, &c.Note); err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// UpsertSettlementSnapshot replaces the snapshot for (couple, year, month);
// snapshots are only recomputed when a source expense changes.
func (q *Queries) UpsertSettlementSnapshot(ctx context.Context, s SettlementSnapshot) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settlement_snapshots
		 (couple_id, year, month, amount_cents, debtor_id, creditor_id, settled, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (couple_id, year, month) DO UPDATE SET
		   amount_cents = excluded.amount_cents,
		   debtor_id = excluded.debtor_id,
		   creditor_id = excluded.creditor_id,
		   settled = excluded.settled,
		   computed_at = excluded.computed_at`,
		s.CoupleID, s.Year, s.Month, s.AmountCents, s.DebtorID, s.CreditorID, s.Settled, s.ComputedAt)
	return err
}

func (q *Queries) GetSettlementSnapshot(ctx context.Context, coupleID string, year, month int) (SettlementSnapshot, error) {
	var s SettlementSnapshot
	err := q.db.QueryRowContext(ctx,
		`SELECT couple_id, year, month, amount_cents, debtor_id, creditor_id, settled, computed_at
		 FROM settlement_snapshots WHERE couple_id = ? AND year = ? AND month = ?`,
		coupleID, year, month).
		Scan(&s.CoupleID, &s.Year, &s.Month, &s.AmountCents, &s.DebtorID, &s.CreditorID, &s.Settled, &s.ComputedAt)
	return s, err
}
