// Package spending records how much a user spent on each day.
package spending

import (
	"fmt"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/adamkim-dev/tripsaver/internal/utils"
)

var (
	ErrFutureDateNotLoggable = apperr.New(apperr.ErrState, "spending cannot be logged for a future date")
	ErrInvalidSpending       = apperr.New(apperr.ErrValidation, "invalid spending")
	ErrNotFound              = apperr.New(apperr.ErrNotFound, "no spending logged for this date")
)

// DailySpendingLog is unique per user and date. Logging the same date again replaces the amount.
type DailySpendingLog struct {
	Id          string
	UserId      int
	Date        time.Time
	AmountSpent float64
}

// FutureDateError carries the rejected date back to the caller.
type FutureDateError struct {
	Date  time.Time
	Today time.Time
}

func (e *FutureDateError) Error() string {
	return fmt.Sprintf("%s: %s is after %s", ErrFutureDateNotLoggable,
		e.Date.Format(utils.DateLayout), e.Today.Format(utils.DateLayout))
}

func (e *FutureDateError) Unwrap() error { return ErrFutureDateNotLoggable }

func (e *FutureDateError) Details() any {
	return map[string]string{
		"date":  e.Date.Format(utils.DateLayout),
		"today": e.Today.Format(utils.DateLayout),
	}
}
