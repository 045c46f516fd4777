package recurrence

import (
	"testing"
	"time"
)

func civil(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func TestNextMonthly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		day  int
		now  time.Time
		want time.Time
	}{
		{
			name: "later this month",
			day:  20,
			now:  civil(2024, time.June, 10, 12, 0),
			want: civil(2024, time.June, 20, 9, 0),
		},
		{
			name: "already passed rolls to next month",
			day:  5,
			now:  civil(2024, time.June, 10, 12, 0),
			want: civil(2024, time.July, 5, 9, 0),
		},
		{
			name: "day 31 clamps to leap february",
			day:  31,
			now:  civil(2024, time.February, 15, 10, 0),
			want: civil(2024, time.February, 29, 9, 0),
		},
		{
			name: "day 31 clamps to non-leap february",
			day:  31,
			now:  civil(2023, time.February, 15, 10, 0),
			want: civil(2023, time.February, 28, 9, 0),
		},
		{
			name: "clamp is recomputed per month",
			day:  31,
			now:  civil(2024, time.April, 30, 10, 0), // April candidate (30th 09:00) already passed
			want: civil(2024, time.May, 31, 9, 0),
		},
		{
			name: "december rolls into january",
			day:  10,
			now:  civil(2024, time.December, 20, 8, 0),
			want: civil(2025, time.January, 10, 9, 0),
		},
		{
			name: "exactly at candidate is not due",
			day:  15,
			now:  civil(2024, time.June, 15, 9, 0),
			want: civil(2024, time.July, 15, 9, 0),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Next(New(KindMonthly, tt.day), tt.now)
			if !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextQuarterly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		week int
		now  time.Time
		want time.Time
	}{
		{
			name: "q1 candidate passed rolls to q2",
			week: 1,
			now:  civil(2024, time.March, 20, 10, 0), // Q1 day already passed
			want: civil(2024, time.April, 1, 9, 0),
		},
		{
			name: "week two maps to day eight",
			week: 2,
			now:  civil(2024, time.April, 2, 10, 0),
			want: civil(2024, time.April, 8, 9, 0),
		},
		{
			name: "week four maps to day twenty two",
			week: 4,
			now:  civil(2024, time.July, 1, 0, 0),
			want: civil(2024, time.July, 22, 9, 0),
		},
		{
			name: "q4 wraps to q1 of next year",
			week: 1,
			now:  civil(2024, time.December, 20, 10, 0),
			want: civil(2025, time.January, 1, 9, 0),
		},
		{
			name: "mid quarter still targets quarter start month",
			week: 3,
			now:  civil(2024, time.May, 1, 0, 0), // Q2 candidate Apr 15 passed
			want: civil(2024, time.July, 15, 9, 0),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Next(New(KindQuarterly, tt.week), tt.now)
			if !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextAnnually(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		month int
		now   time.Time
		want  time.Time
	}{
		{
			name:  "later this year",
			month: 9,
			now:   civil(2024, time.March, 1, 0, 0),
			want:  civil(2024, time.September, 1, 9, 0),
		},
		{
			name:  "already passed rolls to next year",
			month: 2,
			now:   civil(2024, time.March, 1, 0, 0),
			want:  civil(2025, time.February, 1, 9, 0),
		},
		{
			name:  "same day after fire time rolls over",
			month: 6,
			now:   civil(2024, time.June, 1, 9, 30),
			want:  civil(2025, time.June, 1, 9, 0),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Next(New(KindAnnually, tt.month), tt.now)
			if !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFallback(t *testing.T) {
	t.Parallel()
	now := civil(2024, time.June, 15, 13, 37)
	got := Next(Rule{Kind: KindOnce}, now)
	if !got.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("once fallback = %v, want +24h", got)
	}
	got = Next(Rule{Kind: "corrupted"}, now)
	if !got.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("unknown kind fallback = %v, want +24h", got)
	}
}

// Next must be strictly in the future for every valid rule and reference
// instant, including instants that land exactly on a fire time.
func TestNextMonotonic(t *testing.T) {
	t.Parallel()
	var rules []Rule
	for d := 1; d <= 31; d++ {
		rules = append(rules, New(KindMonthly, d))
	}
	for w := 1; w <= 4; w++ {
		rules = append(rules, New(KindQuarterly, w))
	}
	for m := 1; m <= 12; m++ {
		rules = append(rules, New(KindAnnually, m))
	}

	start := civil(2023, time.January, 1, 0, 0)
	for _, r := range rules {
		now := start
		for i := 0; i < 800; i++ {
			next := Next(r, now)
			if !next.After(now) {
				t.Fatalf("Next(%+v, %v) = %v is not strictly later", r, now, next)
			}
			now = now.Add(31 * time.Hour) // sweeps across day/month/year boundaries
		}
	}
}

// Chaining Next from its own output must advance exactly one period at a
// time, never zero.
func TestNextChainNeverRepeats(t *testing.T) {
	t.Parallel()
	for _, r := range []Rule{New(KindMonthly, 31), New(KindQuarterly, 4), New(KindAnnually, 12)} {
		now := civil(2024, time.January, 1, 0, 0)
		prev := Next(r, now)
		for i := 0; i < 12; i++ {
			next := Next(r, prev)
			if !next.After(prev) {
				t.Fatalf("chained Next(%+v) stalled at %v", r, prev)
			}
			prev = next
		}
	}
}
