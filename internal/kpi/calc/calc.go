// Package calc is the null-safe arithmetic layer: every division, ratio,
// and percentage defined here yields a finite numeric result regardless of
// missing or zero inputs. Formatting functions accept only already-defaulted
// values and run as the last step of card construction.
package calc

import "math"

// ZeroBaselineCapPercent is the documented convention for percentage change
// against an empty prior period: when the previous value is zero and the
// current value is not, the change is reported as a capped ±100% with
// Capped set, rather than an unbounded or undefined figure.
const ZeroBaselineCapPercent = 100.0

// trendEpsilon defines "flat": changes smaller than this are treated as 0%.
const trendEpsilon = 0.005

// Change is a resolved percentage change. Percent is always finite.
type Change struct {
	Percent float64
	Capped  bool
}

// PercentChange computes the period-over-period change of current against
// previous. Conventions:
//
//	previous == 0, current == 0  ->  0%
//	previous == 0, current != 0  ->  ±ZeroBaselineCapPercent, Capped
//	otherwise                    ->  (current-previous)/previous * 100
func PercentChange(current, previous float64) Change {
	switch {
	case previous == 0 && current == 0:
		return Change{}
	case previous == 0 && current > 0:
		return Change{Percent: ZeroBaselineCapPercent, Capped: true}
	case previous == 0:
		return Change{Percent: -ZeroBaselineCapPercent, Capped: true}
	}
	return Change{Percent: (current - previous) / previous * 100}
}

// Ratio divides numerator by denominator, defining the result as 0 when the
// denominator is zero or negative.
func Ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// TrendOf maps a change to a dashboard trend direction.
func TrendOf(c Change) string {
	switch {
	case math.Abs(c.Percent) < trendEpsilon:
		return trendFlat
	case c.Percent > 0:
		return trendUp
	default:
		return trendDown
	}
}

const (
	trendUp   = "up"
	trendDown = "down"
	trendFlat = "flat"
)
