// Package finance keeps the recurring money records the budget planner works from.
package finance

import (
	"fmt"
	"math"
	"strings"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
)

var (
	ErrInvalidRecord = apperr.New(apperr.ErrValidation, "invalid finance record")
	ErrNotFound      = apperr.New(apperr.ErrNotFound, "finance record not found")
)

type Frequency string

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
)

type SavingPlanType string

const (
	SendHome  SavingPlanType = "send_home"
	Saving    SavingPlanType = "saving"
	Investing SavingPlanType = "investing"
)

type FixedExpense struct {
	Id        string
	UserId    int
	Name      string
	Amount    float64
	Frequency Frequency
}

type Debt struct {
	Id              string
	UserId          int
	Creditor        string
	AmountRemaining float64
	MonthlyPayment  float64
}

type Loan struct {
	Id              string
	UserId          int
	Borrower        string
	AmountRemaining float64
	MonthlyCollect  float64
}

// SavingPlan reserves either a share of salary or a fixed amount each month, never both.
type SavingPlan struct {
	Id                 string
	UserId             int
	Type               SavingPlanType
	PercentageOfSalary *float64
	FixedAmount        *float64
}

// Records is everything a user has on file, as consumed by the allowance engine.
type Records struct {
	FixedExpenses []FixedExpense
	Debts         []Debt
	Loans         []Loan
	SavingPlans   []SavingPlan
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid("%s must be a non-negative number", field)
	}
	return nil
}

func (e FixedExpense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return invalid("name is required")
	}
	if err := nonNegative("amount", e.Amount); err != nil {
		return err
	}
	switch e.Frequency {
	case Monthly, Weekly:
		return nil
	}
	return invalid("frequency must be %q or %q", Monthly, Weekly)
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Creditor) == "" {
		return invalid("creditor is required")
	}
	if err := nonNegative("amount remaining", d.AmountRemaining); err != nil {
		return err
	}
	return nonNegative("monthly payment", d.MonthlyPayment)
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.Borrower) == "" {
		return invalid("borrower is required")
	}
	if err := nonNegative("amount remaining", l.AmountRemaining); err != nil {
		return err
	}
	return nonNegative("monthly collect", l.MonthlyCollect)
}

func (p SavingPlan) Validate() error {
	switch p.Type {
	case SendHome, Saving, Investing:
	default:
		return invalid("type must be one of %q, %q, %q", SendHome, Saving, Investing)
	}
	if (p.PercentageOfSalary == nil) == (p.FixedAmount == nil) {
		return invalid("exactly one of percentage of salary or fixed amount is required")
	}
	if p.PercentageOfSalary != nil {
		pct := *p.PercentageOfSalary
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return invalid("percentage of salary must be between 0 and 100")
		}
		return nil
	}
	return nonNegative("fixed amount", *p.FixedAmount)
}
