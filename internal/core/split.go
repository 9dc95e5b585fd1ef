package core

import (
	"github.com/shopspring/decimal"
)

// SplitType names the rule dividing one expense between the two users.
type SplitType string

const (
	SplitFiftyFifty SplitType = "50/50"
	SplitCustom     SplitType = "custom"
	SplitPersonal   SplitType = "personal"
)

var (
	hundred       = decimal.NewFromInt(100)
	fifty         = decimal.NewFromInt(50)
	ratioSumSlack = decimal.NewFromFloat(0.01)
)

// SplitConfig is a tagged variant: fifty-fifty, personal, or a custom
// percentage pair for the couple's two users. Custom ratios are validated at
// construction so an invalid combination is never representable.
type SplitConfig struct {
	kind   SplitType
	ratioA decimal.Decimal // percentage for Couple.UserA, custom splits only
	ratioB decimal.Decimal // percentage for Couple.UserB, custom splits only
}

// FiftyFifty splits the expense evenly between both users.
func FiftyFifty() SplitConfig {
	return SplitConfig{kind: SplitFiftyFifty}
}

// Personal assigns the whole expense to the payer.
func Personal() SplitConfig {
	return SplitConfig{kind: SplitPersonal}
}

// CustomSplit builds a custom percentage split for (UserA, UserB).
// The two ratios must sum to 100 within 0.01 and be non-negative; a violating
// pair is rejected with a ValidationError before anything is persisted.
func CustomSplit(ratioA, ratioB decimal.Decimal) (SplitConfig, error) {
	if ratioA.IsNegative() || ratioB.IsNegative() {
		return SplitConfig{}, &ValidationError{Field: "split_ratio", Message: "split ratios cannot be negative"}
	}
	if ratioA.Add(ratioB).Sub(hundred).Abs().GreaterThan(ratioSumSlack) {
		return SplitConfig{}, &ValidationError{Field: "split_ratio", Message: "split ratios must sum to 100"}
	}
	return SplitConfig{kind: SplitCustom, ratioA: ratioA, ratioB: ratioB}, nil
}

// Type returns the split kind.
func (sc SplitConfig) Type() SplitType {
	return sc.kind
}

// Ratios returns the custom percentages for (UserA, UserB). For the fixed
// kinds it returns the canonical values (50/50, or zeroes for personal since
// the payer side depends on the expense).
func (sc SplitConfig) Ratios() (ratioA, ratioB decimal.Decimal) {
	switch sc.kind {
	case SplitFiftyFifty:
		return fifty, fifty
	case SplitCustom:
		return sc.ratioA, sc.ratioB
	default:
		return decimal.Zero, decimal.Zero
	}
}

func (sc SplitConfig) validate() error {
	switch sc.kind {
	case SplitFiftyFifty, SplitPersonal:
		return nil
	case SplitCustom:
		if sc.ratioA.Add(sc.ratioB).Sub(hundred).Abs().GreaterThan(ratioSumSlack) {
			return &ValidationError{Field: "split_ratio", Message: "split ratios must sum to 100"}
		}
		return nil
	default:
		return &ValidationError{Field: "split_type", Message: "unknown split type"}
	}
}

// Shares computes each user's owed portion of the expense. The two shares
// always sum exactly to the amount: the non-payer's share is rounded half-up
// to the cent and the payer absorbs the remainder.
func (e Expense) Shares(c Couple) (map[UserID]Money, error) {
	if !c.Contains(e.PaidBy) {
		return nil, ErrUnknownUser
	}
	other, err := c.Partner(e.PaidBy)
	if err != nil {
		return nil, err
	}

	var otherShare int64
	switch e.Split.kind {
	case SplitPersonal:
		otherShare = 0
	case SplitFiftyFifty:
		otherShare = e.Amount.Cents / 2
	case SplitCustom:
		ratioA, ratioB := e.Split.ratioA, e.Split.ratioB
		otherRatio := ratioB
		if other == c.UserA {
			otherRatio = ratioA
		}
		otherShare = decimal.New(e.Amount.Cents, 0).
			Mul(otherRatio).
			Div(hundred).
			Round(0).
			IntPart()
	default:
		return nil, &ValidationError{Field: "split_type", Message: "unknown split type"}
	}

	return map[UserID]Money{
		e.PaidBy: {Cents: e.Amount.Cents - otherShare},
		other:    {Cents: otherShare},
	}, nil
}

// OwedShare returns the given user's owed portion of the expense.
func (e Expense) OwedShare(c Couple, u UserID) (Money, error) {
	shares, err := e.Shares(c)
	if err != nil {
		return Money{}, err
	}
	share, ok := shares[u]
	if !ok {
		return Money{}, ErrUnknownUser
	}
	return share, nil
}
