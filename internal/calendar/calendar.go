// Package calendar implements the day-level date rules used by attendance
// and streaks. Dates are civil (timezone-naive) days; every difference is
// computed on civil dates so DST transitions never shift a day.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the canonical string form of a date.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Parse accepts the canonical YYYY-MM-DD form, or an RFC 3339 timestamp which is
// normalized to the calendar day it falls on in loc.
func Parse(s string, loc *time.Location) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil && d.IsValid() {
		return d, nil
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Today(ts, loc), nil
}

// Today returns the calendar day of now as seen in loc (UTC when loc is nil).
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// IsRestDay reports whether d is a Sunday. Rest days never carry a workout and
// are never required for a streak to continue.
func IsRestDay(d civil.Date) bool {
	return Weekday(d) == time.Sunday
}

// Consecutive reports whether later directly follows earlier for streak
// purposes: either the next calendar day, or a Saturday followed by the Monday
// after the Sunday rest day.
func Consecutive(earlier, later civil.Date) bool {
	switch later.DaysSince(earlier) {
	case 1:
		return true
	case 2:
		return Weekday(earlier) == time.Saturday && Weekday(later) == time.Monday
	default:
		return false
	}
}

// Ptr returns a pointer to a copy of d, for optional date fields.
func Ptr(d civil.Date) *civil.Date {
	return &d
}
