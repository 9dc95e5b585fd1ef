package http

import (
	"net/http"

	"coppia/internal/core"
)

type createGoalRequest struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	Category   string `json:"category,omitempty"`
	TargetDate string `json:"target_date,omitempty"`
	ColorIndex int    `json:"color_index,omitempty"`
}

type contributeRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Note   string `json:"note,omitempty"`
}

type goalResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Target     moneyJSON `json:"target"`
	Current    moneyJSON `json:"current"`
	Remaining  moneyJSON `json:"remaining"`
	Category   string    `json:"category,omitempty"`
	TargetDate string    `json:"target_date,omitempty"`
	ColorIndex int       `json:"color_index"`
}

type contributionResultResponse struct {
	Goal    goalResponse `json:"goal"`
	Applied moneyJSON    `json:"applied"`
	Capped  bool         `json:"capped"`
}

type contributionResponse struct {
	ID     string    `json:"id"`
	Amount moneyJSON `json:"amount"`
	Date   string    `json:"date"`
	Note   string    `json:"note,omitempty"`
}

func goalToResponse(g core.SavingsGoal) goalResponse {
	resp := goalResponse{
		ID:         g.ID,
		Name:       g.Name,
		Target:     money(g.Target),
		Current:    money(g.Current),
		Remaining:  money(g.Remaining()),
		Category:   g.Category,
		ColorIndex: g.ColorIndex,
	}
	if !g.TargetDate.IsEmpty() {
		resp.TargetDate = g.TargetDate.String()
	}
	return resp
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "target_amount", Message: "target must be a positive decimal"})
		return
	}

	goal := core.SavingsGoal{
		Name:       sanitizeInput(req.Name),
		Target:     core.Money{Cents: cents},
		Category:   sanitizeInput(req.Category),
		ColorIndex: req.ColorIndex,
	}
	if req.TargetDate != "" {
		date, err := core.ParseDate(req.TargetDate)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "target_date", Message: "target date must be YYYY-MM-DD"})
			return
		}
		goal.TargetDate = date
	}

	created, err := s.goals.CreateGoal(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goalToResponse(created))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.Goals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		resp = append(resp, goalToResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.goals.Contributions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		resp = append(resp, contributionResponse{
			ID:     c.ID,
			Amount: money(c.Amount),
			Date:   c.Date.String(),
			Note:   c.Note,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "amount", Message: "contribution must be positive"})
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
		return
	}

	result, err := s.goals.Contribute(r.Context(), r.PathValue("id"),
		core.Money{Cents: cents}, date, sanitizeInput(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeContributionResult(w, result)
}

func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	result, err := s.goals.QuickAdd(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeContributionResult(w, result)
}

func writeContributionResult(w http.ResponseWriter, result core.ContributionResult) {
	writeJSON(w, http.StatusOK, contributionResultResponse{
		Goal:    goalToResponse(result.Goal),
		Applied: money(result.Applied),
		Capped:  result.Capped,
	})
}
