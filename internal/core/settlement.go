package core

import "fmt"

// settledEpsilonCents is the one-cent threshold below which a period counts
// as settled.
const settledEpsilonCents = 1

// Settlement is the net balance between the couple's two users over one
// period, derived from paid versus owed totals.
type Settlement struct {
	Debtor   UserID
	Creditor UserID
	Amount   Money
	Settled  bool
}

// ComputeSettlement folds a period's expenses into a single net balance.
//
// For each user: paid = sum of amounts they paid, owed = sum of their shares.
// Shares always sum to the total spend, so net(A) == -net(B). The fold is
// pure and commutative: the same expense set yields the same settlement
// regardless of order, and re-running it never changes the result.
func ComputeSettlement(expenses []Expense, c Couple) (Settlement, error) {
	var paidA, paidB, owedA, owedB int64

	for _, e := range expenses {
		shares, err := e.Shares(c)
		if err != nil {
			return Settlement{}, fmt.Errorf("shares for expense %s: %w", e.ID, err)
		}
		switch e.PaidBy {
		case c.UserA:
			paidA += e.Amount.Cents
		case c.UserB:
			paidB += e.Amount.Cents
		}
		owedA += shares[c.UserA].Cents
		owedB += shares[c.UserB].Cents
	}

	netA := paidA - owedA

	if abs(netA) < settledEpsilonCents {
		return Settlement{Settled: true}, nil
	}
	if netA < 0 {
		return Settlement{Debtor: c.UserA, Creditor: c.UserB, Amount: Money{Cents: -netA}}, nil
	}
	return Settlement{Debtor: c.UserB, Creditor: c.UserA, Amount: Money{Cents: netA}}, nil
}

// TotalShared sums the amounts of all non-personal expenses.
func TotalShared(expenses []Expense) Money {
	var total int64
	for _, e := range expenses {
		if e.Split.Type() != SplitPersonal {
			total += e.Amount.Cents
		}
	}
	return Money{Cents: total}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
