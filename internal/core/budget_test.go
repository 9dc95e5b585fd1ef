package core

import "testing"

func TestEvaluateBudgetStatus(t *testing.T) {
	cases := []struct {
		name     string
		spend    int64
		budgeted int64
		want     BudgetStatus
	}{
		{"no budget", 5000, 0, BudgetStatusNoBudget},
		{"no budget no spend", 0, 0, BudgetStatusNoBudget},
		{"on track exact", 10000, 10000, BudgetStatusOnTrack},
		{"slightly over", 10500, 10000, BudgetStatusOnTrack},
		{"boundary plus ten", 11000, 10000, BudgetStatusOver},   // variance exactly 10
		{"boundary minus ten", 9000, 10000, BudgetStatusUnder},  // variance exactly -10
		{"well over", 15000, 10000, BudgetStatusOver},
		{"well under", 2000, 10000, BudgetStatusUnder},
		{"zero spend", 0, 10000, BudgetStatusUnder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := EvaluateBudget("cat1", Money{Cents: tc.spend}, Money{Cents: tc.budgeted}, 1, 1)
			if r.Status != tc.want {
				t.Fatalf("spend=%d budgeted=%d: status=%s, want %s (variance=%s)",
					tc.spend, tc.budgeted, r.Status, tc.want, r.Variance)
			}
		})
	}
}

func TestEvaluateBudgetVariance(t *testing.T) {
	r := EvaluateBudget("cat1", Money{Cents: 11000}, Money{Cents: 10000}, 1, 1)
	if !r.Variance.Equal(varianceThreshold) {
		t.Fatalf("variance = %s, want 10", r.Variance)
	}
	r = EvaluateBudget("cat1", Money{Cents: 10000}, Money{Cents: 10000}, 1, 1)
	if !r.Variance.IsZero() {
		t.Fatalf("variance = %s, want 0", r.Variance)
	}
}

func TestEvaluateBudgetCoverage(t *testing.T) {
	// 2 of 6 months budgeted: status formula is unchanged but the report
	// is flagged low confidence.
	r := EvaluateBudget("cat1", Money{Cents: 12000}, Money{Cents: 10000}, 2, 6)
	if r.Status != BudgetStatusOver {
		t.Fatalf("status = %s, want over-budget", r.Status)
	}
	if !r.LowConfidence {
		t.Fatal("partial coverage must be flagged low confidence")
	}
	if got := r.Coverage(); got < 0.333 || got > 0.334 {
		t.Fatalf("coverage = %v, want 1/3", got)
	}

	full := EvaluateBudget("cat1", Money{Cents: 10000}, Money{Cents: 10000}, 6, 6)
	if full.LowConfidence {
		t.Fatal("full coverage must not be low confidence")
	}
}

func TestMonthsInRange(t *testing.T) {
	cases := []struct {
		sy, sm, ey, em, want int
	}{
		{2026, 1, 2026, 1, 1},
		{2026, 1, 2026, 6, 6},
		{2025, 11, 2026, 2, 4},
		{2026, 6, 2026, 1, 0}, // inverted range
	}
	for _, tc := range cases {
		if got := MonthsInRange(tc.sy, tc.sm, tc.ey, tc.em); got != tc.want {
			t.Fatalf("MonthsInRange(%d-%d .. %d-%d) = %d, want %d",
				tc.sy, tc.sm, tc.ey, tc.em, got, tc.want)
		}
	}
}
