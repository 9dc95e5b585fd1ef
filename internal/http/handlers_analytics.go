package http

import (
	"fmt"
	"net/http"

	"coppia/internal/core"
	"coppia/internal/services"
)

type categorySpendResponse struct {
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Total        moneyJSON `json:"total"`
	Budget       moneyJSON `json:"budget"`
}

type monthPointResponse struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Expenses moneyJSON `json:"expenses"`
	Income   moneyJSON `json:"income"`
	Savings  moneyJSON `json:"savings"`
}

type chartsResponse struct {
	Year             int                     `json:"year"`
	Month            int                     `json:"month"`
	CategorySpending []categorySpendResponse `json:"categorySpending"`
	MonthlyTotals    []monthPointResponse    `json:"monthlyTotals"`
	Ours             moneyJSON               `json:"ours"`
	Mine             moneyJSON               `json:"mine"`
	Partner          moneyJSON               `json:"partner"`
	PartnerDisabled  bool                    `json:"partnerDisabled"`
}

func (s *Server) handleChartsSummary(w http.ResponseWriter, r *http.Request) {
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

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Scope totals are requester-specific, so each partner gets an entry.
	key := chartsCacheKey(couple.ID, requester, year, month)
	summary, ok := s.chartsCache.Get(key)
	if !ok {
		summary, err = s.analytics.ChartsSummary(r.Context(), requester, year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.chartsCache.Set(key, summary)
	}

	writeJSON(w, http.StatusOK, chartsToResponse(summary))
}

func chartsToResponse(summary services.ChartsSummary) chartsResponse {
	resp := chartsResponse{
		Year:            summary.Year,
		Month:           summary.Month,
		Ours:            money(summary.Totals.Ours),
		Mine:            money(summary.Totals.Mine),
		Partner:         money(summary.Totals.Partner),
		PartnerDisabled: summary.Totals.PartnerDisabled,
	}
	for _, c := range summary.CategorySpending {
		resp.CategorySpending = append(resp.CategorySpending, categorySpendResponse{
			CategoryID:   c.CategoryID,
			CategoryName: c.CategoryName,
			Total:        money(c.Total),
			Budget:       money(c.Budget),
		})
	}
	for _, p := range summary.MonthlyTotals {
		resp.MonthlyTotals = append(resp.MonthlyTotals, monthPointResponse{
			Year:     p.Year,
			Month:    p.Month,
			Expenses: money(p.Expenses),
			Income:   money(p.Income),
			Savings:  money(p.Savings),
		})
	}
	return resp
}

type trendResponse struct {
	CategoryID         string               `json:"category_id"`
	CategoryName       string               `json:"category_name"`
	Direction          string               `json:"direction"`
	Strength           string               `json:"strength"`
	PercentChange      string               `json:"percent_change"`
	NormalizedStrength int                  `json:"normalized_strength"`
	Series             []monthPointResponse `json:"series"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	startYear, startMonth, endYear, endMonth, err := parseMonthRangePath(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	trends, err := s.analytics.Trends(r.Context(), requester, startYear, startMonth, endYear, endMonth)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]trendResponse, 0, len(trends))
	for _, tr := range trends {
		item := trendResponse{
			CategoryID:         tr.CategoryID,
			CategoryName:       tr.CategoryName,
			Direction:          string(tr.Trend.Direction),
			Strength:           string(tr.Trend.Strength),
			PercentChange:      tr.Trend.PercentChange.Round(1).String(),
			NormalizedStrength: tr.Trend.NormalizedStrength,
		}
		for _, p := range tr.Series {
			item.Series = append(item.Series, monthPointResponse{
				Year:     p.Year,
				Month:    p.Month,
				Expenses: money(p.Total),
			})
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

type savingsMonthResponse struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Income      moneyJSON `json:"income"`
	Expenses    moneyJSON `json:"expenses"`
	Savings     moneyJSON `json:"savings"`
	SavingsRate string    `json:"savings_rate_percent"`
}

type goalProgressResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Target   moneyJSON `json:"target"`
	Current  moneyJSON `json:"current"`
	Progress string    `json:"progress_percent"`
}

type savingsAnalysisResponse struct {
	Months []savingsMonthResponse `json:"months"`
	Goals  []goalProgressResponse `json:"goals"`
}

func (s *Server) handleSavingsAnalysis(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	startYear, startMonth, endYear, endMonth, err := parseMonthRangePath(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	analysis, err := s.analytics.SavingsAnalysis(r.Context(), requester, startYear, startMonth, endYear, endMonth)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := savingsAnalysisResponse{
		Months: make([]savingsMonthResponse, 0, len(analysis.Months)),
		Goals:  make([]goalProgressResponse, 0, len(analysis.Goals)),
	}
	for _, m := range analysis.Months {
		resp.Months = append(resp.Months, savingsMonthResponse{
			Year:        m.Year,
			Month:       m.Month,
			Income:      money(m.Income),
			Expenses:    money(m.Expenses),
			Savings:     money(m.Savings),
			SavingsRate: m.SavingsRate.String(),
		})
	}
	for _, g := range analysis.Goals {
		resp.Goals = append(resp.Goals, goalProgressResponse{
			ID:       g.Goal.ID,
			Name:     g.Goal.Name,
			Target:   money(g.Goal.Target),
			Current:  money(g.Goal.Current),
			Progress: g.Progress.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type settlementResponse struct {
	Year                int       `json:"year"`
	Month               int       `json:"month"`
	Settled             bool      `json:"settled"`
	Debtor              string    `json:"debtor,omitempty"`
	Creditor            string    `json:"creditor,omitempty"`
	Amount              moneyJSON `json:"amount"`
	TotalSharedExpenses moneyJSON `json:"totalSharedExpenses"`
	Message             string    `json:"message"`
}

func settlementMessage(s core.Settlement) string {
	if s.Settled {
		return "All settled for this month"
	}
	return fmt.Sprintf("%s owes %s %.2f", s.Debtor, s.Creditor, s.Amount.Units())
}

func (s *Server) handleCurrentSettlement(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := settlementCacheKey(couple.ID)
	summary, ok := s.settlementCache.Get(key)
	if !ok {
		summary, err = s.analytics.CurrentSettlement(r.Context(), requester)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.settlementCache.Set(key, summary)
	}

	writeJSON(w, http.StatusOK, settlementResponse{
		Year:                summary.Year,
		Month:               summary.Month,
		Settled:             summary.Settlement.Settled,
		Debtor:              string(summary.Settlement.Debtor),
		Creditor:            string(summary.Settlement.Creditor),
		Amount:              money(summary.Settlement.Amount),
		TotalSharedExpenses: money(summary.TotalShared),
		Message:             settlementMessage(summary.Settlement),
	})
}
