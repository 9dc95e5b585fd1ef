package core

import "time"

// ContributionResult is the outcome of applying one contribution: the updated
// goal, the amount actually credited after any capping, and whether capping
// occurred so the caller can inform the user.
type ContributionResult struct {
	Goal    SavingsGoal
	Applied Money
	Capped  bool
}

// ApplyContribution validates and applies one contribution to a goal.
//
// Every contribution path, quick-add shortcuts included, must go through this
// function: it is the single place that clamps the amount to the goal's
// remaining target when enforceCap is on. With the cap active the goal's
// current amount never exceeds its target.
//
// A fully funded goal yields Applied zero with Capped true; the caller skips
// persisting a contribution record in that case.
func ApplyContribution(goal SavingsGoal, amount Money, date Date, now time.Time, enforceCap bool) (ContributionResult, error) {
	if amount.Cents <= 0 {
		return ContributionResult{}, &ValidationError{Field: "amount", Message: "contribution must be positive"}
	}
	if err := date.Validate(); err != nil {
		return ContributionResult{}, &ValidationError{Field: "date", Message: "date is required"}
	}
	today := NewDate(now.UTC().Year(), int(now.UTC().Month()), now.UTC().Day())
	if date.After(today.Time) {
		return ContributionResult{}, &ValidationError{Field: "date", Message: "contribution date cannot be in the future"}
	}

	result := ContributionResult{Applied: amount}
	if enforceCap {
		if remaining := goal.Remaining(); amount.Cents > remaining.Cents {
			result.Applied = remaining
			result.Capped = true
		}
	}

	goal.Current = goal.Current.Add(result.Applied)
	result.Goal = goal
	return result, nil
}
