package core

import "fmt"

// Scope selects whose allocated spending a query covers.
type Scope string

const (
	ScopeOurs    Scope = "ours"
	ScopeMine    Scope = "mine"
	ScopePartner Scope = "partner"
)

// ValidScope reports whether s is one of the three known scopes.
func ValidScope(s Scope) bool {
	return s == ScopeOurs || s == ScopeMine || s == ScopePartner
}

// ResolveScope degrades a partner-scoped request to "ours" when the couple is
// not connected. Requests must still succeed for a single user, so this is a
// silent fallback rather than an error.
func ResolveScope(requested Scope, c Couple) Scope {
	if requested == ScopePartner && !c.Connected {
		return ScopeOurs
	}
	return requested
}

// ScopeTotals are the three projections of one period's ledger.
//
// Ours is the sum of all expense amounts, personal ones included. Mine and
// Partner are allocated shares, not paid amounts: a personal expense counts
// 100% toward the payer's scope, so Mine + Partner == Ours whenever the
// couple is connected.
type ScopeTotals struct {
	Ours            Money
	Mine            Money
	Partner         Money
	PartnerDisabled bool
}

// AggregateScopes projects a period's expenses into ours/mine/partner totals
// for the requesting user. Pure and idempotent over the input snapshot.
func AggregateScopes(expenses []Expense, c Couple, me UserID) (ScopeTotals, error) {
	if !c.Contains(me) {
		return ScopeTotals{}, ErrUnknownUser
	}
	partner, err := c.Partner(me)
	if err != nil {
		return ScopeTotals{}, err
	}

	var totals ScopeTotals
	for _, e := range expenses {
		shares, err := e.Shares(c)
		if err != nil {
			return ScopeTotals{}, fmt.Errorf("shares for expense %s: %w", e.ID, err)
		}
		totals.Ours.Cents += e.Amount.Cents
		totals.Mine.Cents += shares[me].Cents
		totals.Partner.Cents += shares[partner].Cents
	}

	if !c.Connected {
		// Partner scope is not exposed for unlinked accounts.
		totals.Partner = Money{}
		totals.PartnerDisabled = true
	}
	return totals, nil
}

// ScopedTotal returns the single total for a requested scope, applying the
// linkage fallback.
func ScopedTotal(expenses []Expense, c Couple, me UserID, requested Scope) (Money, Scope, error) {
	resolved := ResolveScope(requested, c)
	totals, err := AggregateScopes(expenses, c, me)
	if err != nil {
		return Money{}, resolved, err
	}
	switch resolved {
	case ScopeMine:
		return totals.Mine, resolved, nil
	case ScopePartner:
		return totals.Partner, resolved, nil
	default:
		return totals.Ours, resolved, nil
	}
}
