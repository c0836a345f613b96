package streak

import (
	"sort"

	"github.com/2beens/gymstreak/internal/calendar"

	"cloud.google.com/go/civil"
)

// Extend applies a newly attended date to state. The streak continues when
// the ledger holds the day before date, or the Saturday before a Sunday rest
// day; a fresh streak also starts counting from zero. Anything else resets
// the streak to 1 starting at date.
func Extend(state State, date civil.Date, attended func(civil.Date) bool) State {
	next := state.Clone()

	if next.CurrentStreak == 0 || continuesFrom(date, attended) {
		next.CurrentStreak++
		if next.StartDate == nil {
			next.StartDate = calendar.Ptr(date)
		}
	} else {
		next.CurrentStreak = 1
		next.StartDate = calendar.Ptr(date)
	}

	next.MaxStreak = max(next.MaxStreak, next.CurrentStreak)
	next.LastAttendanceDate = calendar.Ptr(date)

	return next
}

// continuesFrom requires an attended predecessor under calendar.Consecutive.
// A Sunday before date does not count on its own: Friday then Monday resets,
// the same rule Recompute applies.
func continuesFrom(date civil.Date, attended func(civil.Date) bool) bool {
	for _, prev := range []civil.Date{date.AddDays(-1), date.AddDays(-2)} {
		if calendar.Consecutive(prev, date) && attended(prev) {
			return true
		}
	}
	return false
}

// Recompute derives the running streak from the attended dates: it walks
// from the newest date backwards and stops at the first pair that is not
// consecutive. start is the oldest date of that run. All values are zero/nil
// for an empty input.
func Recompute(dates []civil.Date) (current int, start, last *civil.Date) {
	sorted := newestFirst(dates)
	if len(sorted) == 0 {
		return 0, nil, nil
	}

	current = 1
	oldest := sorted[0]
	for i := 1; i < len(sorted); i++ {
		if !calendar.Consecutive(sorted[i], sorted[i-1]) {
			break
		}
		current++
		oldest = sorted[i]
	}

	return current, calendar.Ptr(oldest), calendar.Ptr(sorted[0])
}

// LongestRun is the longest consecutive run found anywhere in dates.
func LongestRun(dates []civil.Date) int {
	sorted := newestFirst(dates)
	if len(sorted) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if calendar.Consecutive(sorted[i], sorted[i-1]) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	return longest
}

// newestFirst returns a sorted, de-duplicated copy.
func newestFirst(dates []civil.Date) []civil.Date {
	sorted := make([]civil.Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].After(sorted[j])
	})

	deduped := sorted[:0]
	for _, d := range sorted {
		if len(deduped) > 0 && d == deduped[len(deduped)-1] {
			continue
		}
		deduped = append(deduped, d)
	}
	return deduped
}
