package core

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testGoal(targetCents, currentCents int64) SavingsGoal {
	return SavingsGoal{
		ID:      "g1",
		Name:    "Vacation",
		Target:  Money{Cents: targetCents},
		Current: Money{Cents: currentCents},
	}
}

func TestApplyContributionCapped(t *testing.T) {
	// target 1000.00, current 900.00, contribute 200.00 with cap on:
	// applied 100.00, capped, goal lands exactly on target.
	res, err := ApplyContribution(testGoal(100000, 90000), Money{Cents: 20000}, NewDate(2026, 3, 10), testNow, true)
	if err != nil {
		t.Fatalf("ApplyContribution: %v", err)
	}
	if res.Applied.Cents != 10000 {
		t.Fatalf("applied = %d, want 10000", res.Applied.Cents)
	}
	if !res.Capped {
		t.Fatal("expected capped")
	}
	if res.Goal.Current.Cents != 100000 {
		t.Fatalf("current = %d, want 100000", res.Goal.Current.Cents)
	}
}

func TestApplyContributionUncapped(t *testing.T) {
	res, err := ApplyContribution(testGoal(100000, 90000), Money{Cents: 20000}, NewDate(2026, 3, 10), testNow, false)
	if err != nil {
		t.Fatalf("ApplyContribution: %v", err)
	}
	if res.Applied.Cents != 20000 || res.Capped {
		t.Fatalf("got applied=%d capped=%v, want full amount uncapped", res.Applied.Cents, res.Capped)
	}
	if res.Goal.Current.Cents != 110000 {
		t.Fatalf("current = %d, want 110000", res.Goal.Current.Cents)
	}
}

func TestApplyContributionWithinRemaining(t *testing.T) {
	res, err := ApplyContribution(testGoal(100000, 0), Money{Cents: 5000}, NewDate(2026, 3, 10), testNow, true)
	if err != nil {
		t.Fatalf("ApplyContribution: %v", err)
	}
	if res.Capped || res.Applied.Cents != 5000 {
		t.Fatalf("got applied=%d capped=%v, want 5000 uncapped", res.Applied.Cents, res.Capped)
	}
}

func TestApplyContributionFullyFunded(t *testing.T) {
	res, err := ApplyContribution(testGoal(100000, 100000), Money{Cents: 5000}, NewDate(2026, 3, 10), testNow, true)
	if err != nil {
		t.Fatalf("ApplyContribution: %v", err)
	}
	if res.Applied.Cents != 0 || !res.Capped {
		t.Fatalf("got applied=%d capped=%v, want 0 capped", res.Applied.Cents, res.Capped)
	}
	if res.Goal.Current.Cents != 100000 {
		t.Fatalf("current moved past target: %d", res.Goal.Current.Cents)
	}
}

func TestApplyContributionRejections(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		date   Date
	}{
		{"zero amount", 0, NewDate(2026, 3, 10)},
		{"negative amount", -100, NewDate(2026, 3, 10)},
		{"future date", 5000, NewDate(2026, 3, 16)},
		{"zero date", 5000, Date{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyContribution(testGoal(100000, 0), Money{Cents: tc.amount}, tc.date, testNow, true)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestApplyContributionToday(t *testing.T) {
	// A contribution dated today is not future-dated.
	if _, err := ApplyContribution(testGoal(100000, 0), Money{Cents: 100}, NewDate(2026, 3, 15), testNow, true); err != nil {
		t.Fatalf("today's date rejected: %v", err)
	}
}
