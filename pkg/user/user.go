package user

import (
	"github.com/adamkim-dev/tripsaver/internal/apperr"
)

var (
	ErrUserNotFound    = apperr.New(apperr.ErrNotFound, "user not found")
	ErrUserDataInvalid = apperr.New(apperr.ErrValidation, "invalid user data")
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	// Salary is the monthly income. Nil until the user sets one.
	Salary *float64
	// Payday is the day of month salary arrives. Nil means calendar month budgeting.
	Payday *int
	// DailyAllowance caches the last computed allowance.
	DailyAllowance float64
}

// PaydayOrZero returns the configured payday or 0 when unset.
func (u User) PaydayOrZero() int {
	if u.Payday == nil {
		return 0
	}
	return *u.Payday
}
