package http

import (
	"net/http"

	"coppia/internal/core"
)

type coupleSummaryResponse struct {
	CoupleID        string    `json:"couple_id"`
	UserA           string    `json:"user_a"`
	UserB           string    `json:"user_b"`
	Connected       bool      `json:"connected"`
	Partner         string    `json:"partner,omitempty"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	Ours            moneyJSON `json:"ours"`
	Mine            moneyJSON `json:"mine"`
	PartnerTotal    moneyJSON `json:"partner_total"`
	PartnerDisabled bool      `json:"partnerDisabled"`
}

func (s *Server) handleCoupleSummary(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	year, month, err := parseYearMonthQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	couple, err := s.expenses.Couple(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month+1, 0)
	list, err := s.expenses.ListExpenses(r.Context(), requester, core.ScopeOurs, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := coupleSummaryResponse{
		CoupleID:        couple.ID,
		UserA:           string(couple.UserA),
		UserB:           string(couple.UserB),
		Connected:       couple.Connected,
		Year:            year,
		Month:           month,
		Ours:            money(list.Totals.Ours),
		Mine:            money(list.Totals.Mine),
		PartnerTotal:    money(list.Totals.Partner),
		PartnerDisabled: list.Totals.PartnerDisabled,
	}
	if couple.Connected {
		if partner, err := couple.Partner(requester); err == nil {
			resp.Partner = string(partner)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
