// Package recurring projects recurring rules forward in time.
//
// Each frequency has its own Stepper that advances a due date by one cycle.
// Month and year steps clamp to the last day of the target month, so a rule
// due on January 31 next falls due on the last day of February.
package recurring

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Stepper advances a due date by one cycle of its frequency.
type Stepper interface {
	Next(from core.Date) core.Date
}

// DayStepper advances by a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Next(from core.Date) core.Date {
	return from.AddDays(s.Days)
}

// MonthStepper advances by whole calendar months, clamping the day.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Next(from core.Date) core.Date {
	return AddMonthsClamped(from, s.Months)
}

// AddMonthsClamped moves d by n calendar months and clamps the day of month
// to the length of the target month.
func AddMonthsClamped(d core.Date, n int) core.Date {
	target := time.Date(d.Year(), d.Time.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(target.Year(), int(target.Month()), day)
}

// steppers maps each frequency to the strategy that advances it.
var steppers = map[core.Frequency]Stepper{
	core.Daily:   DayStepper{Days: 1},
	core.Weekly:  DayStepper{Days: 7},
	core.Monthly: MonthStepper{Months: 1},
	core.Yearly:  MonthStepper{Months: 12},
}

// GetStepper returns the stepper registered for a frequency.
func GetStepper(f core.Frequency) (Stepper, error) {
	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, f)
	}
	return s, nil
}

// RegisterStepper adds or replaces the stepper for a frequency.
// It is not safe for concurrent use and should be called from init.
func RegisterStepper(f core.Frequency, s Stepper) {
	steppers[f] = s
}

// NextDueDate returns the due date one cycle after from.
func NextDueDate(from core.Date, f core.Frequency) (core.Date, error) {
	s, err := GetStepper(f)
	if err != nil {
		return core.Date{}, err
	}
	return s.Next(from), nil
}
