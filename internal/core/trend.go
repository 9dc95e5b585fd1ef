package core

import "github.com/shopspring/decimal"

type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

type TrendStrength string

const (
	StrengthMinimal    TrendStrength = "minimal"
	StrengthWeak       TrendStrength = "weak"
	StrengthModerate   TrendStrength = "moderate"
	StrengthStrong     TrendStrength = "strong"
	StrengthVeryStrong TrendStrength = "very_strong"
)

// MonthlySpend is one point of a category's monthly spending series.
type MonthlySpend struct {
	Year  int
	Month int
	Total Money
}

// Trend classifies a monthly series: direction from the latest value against
// the series mean, strength from the first-to-last percentage change. This is
// deterministic bucketing, not a forecast.
type Trend struct {
	Direction          TrendDirection
	Strength           TrendStrength
	PercentChange      decimal.Decimal
	NormalizedStrength int // min(100, |percent change|)
}

// directionSlack is the minimal deviation from the mean (1%, at least one
// cent) below which the latest month counts as stable.
var directionSlack = decimal.NewFromFloat(0.01)

// AnalyzeTrend classifies the direction and strength of an ordered monthly
// spend series. Series with fewer than two points are stable/minimal.
func AnalyzeTrend(series []MonthlySpend) Trend {
	if len(series) < 2 {
		return Trend{Direction: TrendStable, Strength: StrengthMinimal, PercentChange: decimal.Zero}
	}

	var sum int64
	for _, p := range series {
		sum += p.Total.Cents
	}
	mean := decimal.New(sum, 0).Div(decimal.NewFromInt(int64(len(series))))
	last := decimal.New(series[len(series)-1].Total.Cents, 0)

	slack := mean.Mul(directionSlack).Abs()
	if slack.LessThan(decimal.NewFromInt(1)) {
		slack = decimal.NewFromInt(1)
	}

	direction := TrendStable
	switch {
	case last.Sub(mean).GreaterThan(slack):
		direction = TrendIncreasing
	case mean.Sub(last).GreaterThan(slack):
		direction = TrendDecreasing
	}

	first := decimal.New(series[0].Total.Cents, 0)
	var change decimal.Decimal
	switch {
	case !first.IsZero():
		change = last.Sub(first).Div(first).Mul(hundred)
	case last.IsZero():
		change = decimal.Zero
	default:
		// Spending appeared from nothing; treat as a full increase.
		change = hundred
	}

	return Trend{
		Direction:          direction,
		Strength:           bucketStrength(change.Abs()),
		PercentChange:      change,
		NormalizedStrength: normalizeStrength(change.Abs()),
	}
}

func bucketStrength(absChange decimal.Decimal) TrendStrength {
	switch {
	case absChange.LessThan(decimal.NewFromInt(5)):
		return StrengthMinimal
	case absChange.LessThan(decimal.NewFromInt(15)):
		return StrengthWeak
	case absChange.LessThan(decimal.NewFromInt(30)):
		return StrengthModerate
	case absChange.LessThan(decimal.NewFromInt(50)):
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}

func normalizeStrength(absChange decimal.Decimal) int {
	if absChange.GreaterThanOrEqual(hundred) {
		return 100
	}
	return int(absChange.Round(0).IntPart())
}
