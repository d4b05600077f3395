package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rupees renders integer paise as a whole-rupee display string with Indian
// digit grouping, e.g. 250000 -> "₹2,500", 0 -> "₹0".
func Rupees(paise int64) string {
	rupees := paise / 100
	if rupees < 0 {
		return "-₹" + groupIndian(-rupees)
	}
	return "₹" + groupIndian(rupees)
}

// Kilometres renders a distance rounded to whole km, e.g. 2089.4 -> "2,089 km".
func Kilometres(km float64) string {
	rounded := int64(math.Round(km))
	if rounded < 0 {
		rounded = 0
	}
	return groupIndian(rounded) + " km"
}

// Count renders an integer with its unit, e.g. (10, "trips") -> "10 trips".
func Count(n int64, unit string) string {
	if n < 0 {
		n = 0
	}
	return groupIndian(n) + " " + unit
}

// CountOfTotal renders a part-of-whole count, e.g. (5, 8, "drivers") ->
// "5/8 drivers".
func CountOfTotal(n, total int64, unit string) string {
	if n < 0 {
		n = 0
	}
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d/%d %s", n, total, unit)
}

// displayEpsilon collapses changes that would render as "+0.0%" or
// "-0.0%" at one-decimal precision into a plain "0%".
const displayEpsilon = 0.05

// Percent renders a resolved change, e.g. +12.4%, -100%, 0%.
func Percent(c Change) string {
	if math.Abs(c.Percent) < displayEpsilon {
		return "0%"
	}
	formatted := strings.TrimSuffix(strconv.FormatFloat(c.Percent, 'f', 1, 64), ".0")
	if c.Percent > 0 {
		return "+" + formatted + "%"
	}
	return formatted + "%"
}

// WithChange appends a rendered change to a value string, e.g.
// ("0 km", -100%) -> "0 km (-100%)".
func WithChange(value string, c Change) string {
	return value + " (" + Percent(c) + ")"
}

// KmPerLitre renders fuel efficiency, e.g. "8.2 km/l".
func KmPerLitre(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + " km/l"
}

// RupeesPerKm renders cost density from paise per km, e.g. "₹12.4/km".
func RupeesPerKm(paisePerKm float64) string {
	return fmt.Sprintf("₹%s/km", strconv.FormatFloat(paisePerKm/100, 'f', 1, 64))
}

// PercentOfWhole renders an already-resolved 0..100 value, e.g. "75%".
func PercentOfWhole(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + "%"
}

// groupIndian applies Indian digit grouping: last three digits, then
// groups of two (1234567 -> "12,34,567").
func groupIndian(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
