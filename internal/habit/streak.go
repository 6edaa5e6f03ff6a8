package habit

import "time"

// The calculators below are pure: they take the habit's completion dates plus
// a reference "today" and carry no state. All dates are calendar days in the
// deployment's reference timezone, normalized to midnight UTC.

// DayOf truncates t to its calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type dateSet map[time.Time]struct{}

func newDateSet(dates []time.Time) dateSet {
	s := make(dateSet, len(dates))
	for _, d := range dates {
		s[DayOf(d)] = struct{}{}
	}
	return s
}

func (s dateSet) has(d time.Time) bool {
	_, ok := s[d]
	return ok
}

// CurrentStreak counts consecutive completed days ending at today, walking
// backward until the first missing day. A day without a completion for today
// itself means streak 0, no credit for a run that ended yesterday.
func CurrentStreak(dates []time.Time, today time.Time) int {
	set := newDateSet(dates)
	day := DayOf(today)
	n := 0
	for set.has(day) {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// LongestStreak scans every day between the earliest and latest completion
// and returns the longest run of consecutive completed days, including a run
// still open at the end of the range.
func LongestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	set := newDateSet(dates)

	first := DayOf(dates[0])
	last := first
	for _, d := range dates[1:] {
		day := DayOf(d)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	longest, run := 0, 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if set.has(d) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// CompletionRate is total lifetime completions over lifetime days, as a
// percentage. Deliberately unbounded and not windowed; callers wanting a
// windowed rate pre-filter the count and pass the window start as createdAt.
func CompletionRate(totalCompletions int, createdAt, asOf time.Time) float64 {
	daysActive := int(DayOf(asOf).Sub(DayOf(createdAt)).Hours()/24) + 1
	if daysActive <= 0 {
		return 0
	}
	return float64(totalCompletions) / float64(daysActive) * 100
}

// WeekVector reports the Monday-to-Sunday completion pattern for the week
// containing today. Days after today stay false.
func WeekVector(dates []time.Time, today time.Time) [7]bool {
	set := newDateSet(dates)
	day := DayOf(today)
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))

	var week [7]bool
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		if d.After(day) {
			break
		}
		week[i] = set.has(d)
	}
	return week
}
