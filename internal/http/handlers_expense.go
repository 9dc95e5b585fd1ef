package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
)

type splitRequest struct {
	Type   string `json:"type"`
	RatioA string `json:"ratio_a,omitempty"`
	RatioB string `json:"ratio_b,omitempty"`
}

type createExpenseRequest struct {
	Amount      string       `json:"amount"`
	Date        string       `json:"date"`
	CategoryID  string       `json:"category_id"`
	PaidBy      string       `json:"paid_by"`
	Description string       `json:"description"`
	Split       splitRequest `json:"split"`
}

type expenseResponse struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	PaidBy      string    `json:"paid_by"`
	Amount      moneyJSON `json:"amount"`
	Date        string    `json:"date"`
	SplitType   string    `json:"split_type"`
	Description string    `json:"description"`
	MyShare     moneyJSON `json:"my_share"`
}

type listExpensesResponse struct {
	Expenses        []expenseResponse `json:"expenses"`
	Scope           string            `json:"scope"`
	PartnerDisabled bool              `json:"partnerDisabled"`
	Total           moneyJSON         `json:"total"`
	Ours            moneyJSON         `json:"ours"`
	Mine            moneyJSON         `json:"mine"`
	Partner         moneyJSON         `json:"partner"`
}

func buildSplit(req splitRequest) (core.SplitConfig, error) {
	switch core.SplitType(req.Type) {
	case core.SplitFiftyFifty, "":
		return core.FiftyFifty(), nil
	case core.SplitPersonal:
		return core.Personal(), nil
	case core.SplitCustom:
		ratioA, err := decimal.NewFromString(req.RatioA)
		if err != nil {
			return core.SplitConfig{}, &core.ValidationError{Field: "split_ratio", Message: "invalid ratio_a"}
		}
		ratioB, err := decimal.NewFromString(req.RatioB)
		if err != nil {
			return core.SplitConfig{}, &core.ValidationError{Field: "split_ratio", Message: "invalid ratio_b"}
		}
		return core.CustomSplit(ratioA, ratioB)
	default:
		return core.SplitConfig{}, &core.ValidationError{Field: "split_type", Message: "unknown split type"}
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "amount", Message: "amount must be a positive decimal"})
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
		return
	}
	split, err := buildSplit(req.Split)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense := core.Expense{
		CategoryID:  sanitizeInput(req.CategoryID),
		PaidBy:      core.UserID(sanitizeInput(req.PaidBy)),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Split:       split,
		Description: sanitizeInput(req.Description),
	}

	created, err := s.expenses.CreateExpense(r.Context(), requester, expense)
	if err != nil {
		writeError(w, r, err)
		return
	}

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(couple, created.Date.Year(), created.Date.Month())
	writeJSON(w, http.StatusCreated, expenseToResponse(created, couple, requester))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	deleted, err := s.expenses.DeleteExpense(r.Context(), requester, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if couple, err := s.expenses.Couple(r.Context(), requester); err == nil {
		s.invalidateMonth(couple, deleted.Date.Year(), deleted.Date.Month())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	scope, err := parseScope(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	year, month, err := parseYearMonthQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month+1, 0)
	list, err := s.expenses.ListExpenses(r.Context(), requester, scope, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listExpensesResponse{
		Expenses:        make([]expenseResponse, 0, len(list.Expenses)),
		Scope:           string(list.ResolvedScope),
		PartnerDisabled: list.Totals.PartnerDisabled,
		Total:           money(list.Total),
		Ours:            money(list.Totals.Ours),
		Mine:            money(list.Totals.Mine),
		Partner:         money(list.Totals.Partner),
	}
	for _, e := range list.Expenses {
		resp.Expenses = append(resp.Expenses, expenseToResponse(e, couple, requester))
	}
	writeJSON(w, http.StatusOK, resp)
}

func expenseToResponse(e core.Expense, c core.Couple, requester core.UserID) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		PaidBy:      string(e.PaidBy),
		Amount:      money(e.Amount),
		Date:        e.Date.String(),
		SplitType:   string(e.Split.Type()),
		Description: e.Description,
	}
	if share, err := e.OwedShare(c, requester); err == nil {
		resp.MyShare = money(share)
	}
	return resp
}
