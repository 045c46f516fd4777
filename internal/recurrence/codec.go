package recurrence

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeError reports a stored recurrence string that cannot be decoded
// (typically store corruption). Callers are expected to recover: a reminder
// with an unreadable rule falls back to a 24h reschedule instead of blocking
// the sweep.
type DecodeError struct {
	Raw string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed recurrence %q", e.Raw)
}

// Encode renders the compact storage form "<kind>:<param>", e.g.
// "monthly:15". Any kind without calendar arithmetic encodes as the literal
// "once".
func Encode(r Rule) string {
	switch r.Kind {
	case KindMonthly, KindQuarterly, KindAnnually:
		return string(r.Kind) + ":" + strconv.Itoa(r.Param)
	default:
		return string(KindOnce)
	}
}

// Decode is the exact inverse of Encode for every constructible rule.
func Decode(s string) (Rule, error) {
	raw := strings.TrimSpace(s)
	if raw == string(KindOnce) {
		return Rule{Kind: KindOnce}, nil
	}

	kind, param, ok := strings.Cut(raw, ":")
	if !ok {
		return Rule{}, &DecodeError{Raw: s}
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return Rule{}, &DecodeError{Raw: s}
	}
	switch Kind(kind) {
	case KindMonthly, KindQuarterly, KindAnnually:
		return New(Kind(kind), n), nil
	default:
		return Rule{}, &DecodeError{Raw: s}
	}
}
