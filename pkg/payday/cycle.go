// Package payday works out the pay cycle a date falls in.
package payday

import (
	"fmt"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/adamkim-dev/tripsaver/internal/utils"
)

var ErrInvalidPayday = apperr.New(apperr.ErrValidation, "payday must be between 1 and 31")

// Cycle is the pay period containing a reference date. For payday cycles End is
// the next payday. Without a payday the cycle is the calendar month and End is
// its last day.
type Cycle struct {
	Start         time.Time
	End           time.Time
	LengthDays    int
	DaysElapsed   int
	CalendarMonth bool
}

// Validate accepts 0 (not configured) or a day of month.
func Validate(payday int) error {
	if payday < 0 || payday > 31 {
		return fmt.Errorf("%w: got %d", ErrInvalidPayday, payday)
	}
	return nil
}

// Calculate returns the cycle containing ref. A payday of 0 falls back to the calendar month.
// Paydays past the end of a short month move to that month's last day.
func Calculate(ref time.Time, payday int) (Cycle, error) {
	if err := Validate(payday); err != nil {
		return Cycle{}, err
	}
	ref = utils.DateOf(ref)
	year, month, day := ref.Date()

	if payday == 0 {
		daysInMonth := daysIn(year, month)
		return Cycle{
			Start:         time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			End:           time.Date(year, month, daysInMonth, 0, 0, 0, 0, time.UTC),
			LengthDays:    daysInMonth,
			DaysElapsed:   day,
			CalendarMonth: true,
		}, nil
	}

	thisPayday := clamped(year, month, payday)
	var start, end time.Time
	if day >= thisPayday.Day() {
		start = thisPayday
		end = clamped(year, month+1, payday)
	} else {
		start = clamped(year, month-1, payday)
		end = thisPayday
	}

	return Cycle{
		Start:       start,
		End:         end,
		LengthDays:  max(1, daysBetween(start, end)),
		DaysElapsed: daysBetween(start, ref) + 1,
	}, nil
}

// NextStart is the first day after the cycle.
func (c Cycle) NextStart() time.Time {
	if c.CalendarMonth {
		return c.End.AddDate(0, 0, 1)
	}
	return c.End
}

func (c Cycle) Contains(date time.Time) bool {
	d := utils.DateOf(date)
	return !d.Before(c.Start) && d.Before(c.NextStart())
}

// DaysRemaining counts the days after the reference date until the cycle ends.
func (c Cycle) DaysRemaining() int {
	return max(0, c.LengthDays-c.DaysElapsed)
}

// clamped normalizes month overflow first, then caps the day at the month's length.
func clamped(year int, month time.Month, payday int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	y, m, _ := first.Date()
	return time.Date(y, m, min(payday, daysIn(y, m)), 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
