package recurrence

import "time"

// Reminders fire at 09:00 wall-clock time on the target day. Fixed by
// product decision, not configurable.
const (
	fireHour   = 9
	fireMinute = 0
)

// fallbackDelay is the last-resort spacing for rules without calendar
// arithmetic ("once" or anything unrecognized coming out of storage).
const fallbackDelay = 24 * time.Hour

// Next computes the first occurrence of r strictly after now.
//
// All math is civil wall-clock in now's location: no UTC normalization, no
// DST adjustment. The daemon runs against a single server clock and the
// candidate is re-derived per period, so a day-of-month that overflows a
// short month clamps to that month's last day without sticking for later
// months.
func Next(r Rule, now time.Time) time.Time {
	switch r.Kind {
	case KindMonthly:
		return nextMonthly(r.Param, now)
	case KindQuarterly:
		return nextQuarterly(r.Param, now)
	case KindAnnually:
		return nextAnnually(r.Param, now)
	default:
		return now.Add(fallbackDelay)
	}
}

func nextMonthly(day int, now time.Time) time.Time {
	y, m := now.Year(), now.Month()
	candidate := fireTime(y, m, clampToMonth(day, y, m), now.Location())
	if candidate.After(now) {
		return candidate
	}
	// Roll to the next month and clamp again: day 31 means "the 30th" in a
	// 30-day month but "the 31st" whenever the month allows it.
	next := time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
	y, m = next.Year(), next.Month()
	return fireTime(y, m, clampToMonth(day, y, m), now.Location())
}

func nextQuarterly(week int, now time.Time) time.Time {
	// Quarters start at January, April, July, October. Week N maps to day
	// (N-1)*7+1 of the quarter's first month, so the offset never leaves it.
	day := (week-1)*7 + 1
	y := now.Year()
	qm := quarterStartMonth(now.Month())

	candidate := fireTime(y, qm, day, now.Location())
	if candidate.After(now) {
		return candidate
	}
	qm += 3
	if qm > time.December {
		qm -= 12
		y++
	}
	return fireTime(y, qm, day, now.Location())
}

func nextAnnually(month int, now time.Time) time.Time {
	y := now.Year()
	candidate := fireTime(y, time.Month(month), 1, now.Location())
	if candidate.After(now) {
		return candidate
	}
	return fireTime(y+1, time.Month(month), 1, now.Location())
}

func fireTime(y int, m time.Month, day int, loc *time.Location) time.Time {
	return time.Date(y, m, day, fireHour, fireMinute, 0, 0, loc)
}

func quarterStartMonth(m time.Month) time.Month {
	return time.Month((int(m)-1)/3*3 + 1)
}

// clampToMonth saturates a day-of-month to the length of (y, m).
func clampToMonth(day, y int, m time.Month) int {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
