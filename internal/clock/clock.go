// Package clock abstracts the current time so "today" can be pinned in tests.
package clock

import (
	"time"

	"fintrack/internal/core"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the given location (UTC when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// FixedDate pins the clock to midday of the given calendar day.
func FixedDate(year, month, day int) Fixed {
	return Fixed(time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC))
}

// Today returns the current calendar day according to c.
func Today(c Clock) core.Date {
	return core.DateOf(c.Now())
}

// CurrentMonth returns the calendar month containing Today(c).
func CurrentMonth(c Clock) core.Month {
	return Today(c).MonthOf()
}
