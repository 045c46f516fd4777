package recurrence

import "strings"

// Kind selects which calendar arithmetic applies to a rule.
type Kind string

const (
	KindMonthly   Kind = "monthly"
	KindQuarterly Kind = "quarterly"
	KindAnnually  Kind = "annually"

	// KindOnce is reserved for non-recurring rules. The scheduler never
	// produces it from user input, but stored values must round-trip.
	KindOnce Kind = "once"
)

// Rule is a validated recurrence choice.
//
// Param meaning depends on Kind:
//   - Monthly:   day of month, 1..31
//   - Quarterly: week of quarter, 1..4
//   - Annually:  month of year, 1..12
//
// Rules built via New/Parse always hold a clamped Param, so two rules are
// comparable with ==.
type Rule struct {
	Kind  Kind
	Param int
}

// New builds a rule with Param saturated into the valid range for the kind.
// Out-of-range values are normalized, never rejected; downstream UI relies
// on that.
func New(kind Kind, param int) Rule {
	switch kind {
	case KindQuarterly:
		return Rule{Kind: KindQuarterly, Param: clamp(param, 1, 4)}
	case KindAnnually:
		return Rule{Kind: KindAnnually, Param: clamp(param, 1, 12)}
	case KindOnce:
		return Rule{Kind: KindOnce}
	default:
		return Rule{Kind: KindMonthly, Param: clamp(param, 1, 31)}
	}
}

// Parse maps a raw recurrence choice to a Rule. Each numeric parameter
// belongs to one kind; the others are ignored. An unknown or empty kind
// resolves to Monthly rather than failing.
func Parse(kind string, dayOfMonth, weekOfQuarter, monthOfYear int) Rule {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindQuarterly:
		return New(KindQuarterly, weekOfQuarter)
	case KindAnnually:
		return New(KindAnnually, monthOfYear)
	case KindOnce:
		return New(KindOnce, 0)
	default:
		return New(KindMonthly, dayOfMonth)
	}
}

// Recurring reports whether the rule produces more than one occurrence.
func (r Rule) Recurring() bool {
	switch r.Kind {
	case KindMonthly, KindQuarterly, KindAnnually:
		return true
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
