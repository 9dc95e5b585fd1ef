package core

import "github.com/shopspring/decimal"

// BudgetStatus classifies actual spend against the budgeted amount.
type BudgetStatus string

const (
	BudgetStatusNoBudget BudgetStatus = "no-budget"
	BudgetStatusOver     BudgetStatus = "over-budget"
	BudgetStatusOnTrack  BudgetStatus = "on-track"
	BudgetStatusUnder    BudgetStatus = "under-budget"
)

// varianceThreshold is the fixed ±10% business constant separating on-track
// from over/under budget. It is not configurable per category.
var varianceThreshold = decimal.NewFromInt(10)

// BudgetReport compares one category's spend to its budget over a period.
//
// Variance is (spend − budgeted) / budgeted × 100 and only meaningful when a
// budget exists. MonthsWithBudget over MonthsInPeriod is the budget coverage;
// partial coverage never changes the status formula but is surfaced so the
// caller can flag the report as low confidence.
type BudgetReport struct {
	CategoryID       string
	Spend            Money
	Budgeted         Money
	Variance         decimal.Decimal
	Status           BudgetStatus
	MonthsWithBudget int
	MonthsInPeriod   int
	LowConfidence    bool
}

// Coverage is the fraction of months in the period with an explicit budget row.
func (r BudgetReport) Coverage() float64 {
	if r.MonthsInPeriod == 0 {
		return 0
	}
	return float64(r.MonthsWithBudget) / float64(r.MonthsInPeriod)
}

// EvaluateBudget classifies spend against budget. A zero budget maps to the
// no-budget status, never an error. Variance exactly at a threshold counts as
// over (or under) budget.
func EvaluateBudget(categoryID string, spend, budgeted Money, monthsWithBudget, monthsInPeriod int) BudgetReport {
	report := BudgetReport{
		CategoryID:       categoryID,
		Spend:            spend,
		Budgeted:         budgeted,
		MonthsWithBudget: monthsWithBudget,
		MonthsInPeriod:   monthsInPeriod,
		LowConfidence:    monthsWithBudget < monthsInPeriod,
	}

	if budgeted.Cents == 0 {
		report.Status = BudgetStatusNoBudget
		return report
	}

	report.Variance = spend.Decimal().
		Sub(budgeted.Decimal()).
		Div(budgeted.Decimal()).
		Mul(hundred)

	switch {
	case report.Variance.GreaterThanOrEqual(varianceThreshold):
		report.Status = BudgetStatusOver
	case report.Variance.LessThanOrEqual(varianceThreshold.Neg()):
		report.Status = BudgetStatusUnder
	default:
		report.Status = BudgetStatusOnTrack
	}
	return report
}

// MonthsInRange counts calendar months between two (year, month) points,
// both ends inclusive.
func MonthsInRange(startYear, startMonth, endYear, endMonth int) int {
	n := (endYear-startYear)*12 + (endMonth - startMonth) + 1
	if n < 0 {
		return 0
	}
	return n
}
