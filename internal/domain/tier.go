package domain

import "github.com/shopspring/decimal"

var (
	tierEarly  = decimal.NewFromInt(1)
	tierMiddle = decimal.NewFromFloat(1.5)
	tierLate   = decimal.NewFromInt(2)
)

// TierMultiplier returns the odds multiplier for a matchday within a season whose
// highest matchday is maxMatchday. Boundaries are max/3 and max*2/3 in real division,
// both inclusive.
func TierMultiplier(matchday, maxMatchday int) decimal.Decimal {
	md := decimal.NewFromInt(int64(matchday))
	top := decimal.NewFromInt(int64(maxMatchday))
	first := top.Div(decimal.NewFromInt(3))
	second := top.Mul(decimal.NewFromInt(2)).Div(decimal.NewFromInt(3))

	switch {
	case md.LessThanOrEqual(first):
		return tierEarly
	case md.LessThanOrEqual(second):
		return tierMiddle
	default:
		return tierLate
	}
}

// DefaultSecretCutoff is the matchday fraction applied when a league has none configured.
var DefaultSecretCutoff = decimal.NewFromFloat(0.9)

// SecretCutoff returns the matchday bound below which matches are counted.
func SecretCutoff(maxMatchday int, fraction decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(maxMatchday)).Mul(fraction)
}

// BeforeCutoff reports whether a matchday is strictly below the cutoff.
func BeforeCutoff(matchday int, cutoff decimal.Decimal) bool {
	return decimal.NewFromInt(int64(matchday)).LessThan(cutoff)
}
