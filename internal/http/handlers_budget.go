package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

type upsertBudgetRequest struct {
	CategoryID string `json:"category_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Amount     string `json:"amount"`
}

type budgetReportResponse struct {
	CategoryID    string    `json:"category_id"`
	Spend         moneyJSON `json:"spend"`
	Budgeted      moneyJSON `json:"budgeted"`
	Variance      string    `json:"variance_percent"`
	Status        string    `json:"status"`
	Coverage      float64   `json:"budget_coverage"`
	LowConfidence bool      `json:"low_confidence"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req upsertBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := parseBudgetAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	budget := core.Budget{
		CategoryID: sanitizeInput(req.CategoryID),
		Year:       req.Year,
		Month:      req.Month,
		Amount:     amount,
	}
	if err := budget.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.budgets.SaveBudget(r.Context(), budget); err != nil {
		writeError(w, r, err)
		return
	}

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err == nil {
		s.invalidateMonth(couple, budget.Year, budget.Month)
	}
	writeJSON(w, http.StatusOK, budget)
}

// parseBudgetAmount accepts any non-negative decimal. Unlike expense amounts
// a zero budget is valid; it reads back as the no-budget status.
func parseBudgetAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return core.Money{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return core.Money{}, &core.ValidationError{Field: "amount", Message: "amount must be a non-negative decimal"}
	}
	return core.MoneyFromDecimal(d), nil
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	year, month, err := parseYearMonthPath(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reports, err := s.analytics.BudgetStatus(r.Context(), requester, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]budgetReportResponse, 0, len(reports))
	for _, report := range reports {
		resp = append(resp, budgetReportResponse{
			CategoryID:    report.CategoryID,
			Spend:         money(report.Spend),
			Budgeted:      money(report.Budgeted),
			Variance:      report.Variance.Round(1).String(),
			Status:        string(report.Status),
			Coverage:      report.Coverage(),
			LowConfidence: report.LowConfidence,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
