// Package allowance turns salary and recurring commitments into a safe daily spend.
package allowance

import (
	"fmt"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/adamkim-dev/tripsaver/pkg/finance"
	"github.com/shopspring/decimal"
)

// DefaultWeeksPerMonth converts weekly amounts to monthly ones.
const DefaultWeeksPerMonth = 4.33

var ErrSalaryRequired = apperr.New(apperr.ErrValidation, "salary is required to compute a daily allowance")

type MonthlyTotals struct {
	FixedExpenses float64 `json:"totalFixedExpenses"`
	DebtPayment   float64 `json:"totalMonthlyDebtPayment"`
	LoanIncome    float64 `json:"totalMonthlyLoanIncome"`
	SavingPlan    float64 `json:"totalMonthlySavingPlan"`
}

type Result struct {
	MonthlyTotals
	Salary          float64
	CycleLengthDays int
	DailyAllowance  float64
}

type Engine struct {
	weeksPerMonth decimal.Decimal
}

func NewEngine(weeksPerMonth float64) Engine {
	if weeksPerMonth <= 0 {
		weeksPerMonth = DefaultWeeksPerMonth
	}
	return Engine{weeksPerMonth: decimal.NewFromFloat(weeksPerMonth)}
}

// Totals normalizes every record to a monthly amount.
func (e Engine) Totals(salary float64, records finance.Records) MonthlyTotals {
	fixed := decimal.Zero
	for _, fe := range records.FixedExpenses {
		amount := decimal.NewFromFloat(fe.Amount)
		if fe.Frequency == finance.Weekly {
			amount = amount.Mul(e.weeksPerMonth)
		}
		fixed = fixed.Add(amount)
	}

	debt := decimal.Zero
	for _, d := range records.Debts {
		debt = debt.Add(decimal.NewFromFloat(d.MonthlyPayment))
	}

	loan := decimal.Zero
	for _, l := range records.Loans {
		loan = loan.Add(decimal.NewFromFloat(l.MonthlyCollect))
	}

	hundred := decimal.NewFromInt(100)
	saving := decimal.Zero
	for _, p := range records.SavingPlans {
		switch {
		case p.PercentageOfSalary != nil:
			saving = saving.Add(decimal.NewFromFloat(*p.PercentageOfSalary).Div(hundred).Mul(decimal.NewFromFloat(salary)))
		case p.FixedAmount != nil:
			saving = saving.Add(decimal.NewFromFloat(*p.FixedAmount))
		}
	}

	return MonthlyTotals{
		FixedExpenses: fixed.InexactFloat64(),
		DebtPayment:   debt.InexactFloat64(),
		LoanIncome:    loan.InexactFloat64(),
		SavingPlan:    saving.InexactFloat64(),
	}
}

// Daily spreads what is left of salary plus loan income over the cycle, never below zero.
func Daily(salary float64, totals MonthlyTotals, cycleLengthDays int) (float64, error) {
	if cycleLengthDays < 1 {
		return 0, apperr.Validation("cycle length must be at least one day, got %d", cycleLengthDays)
	}
	left := decimal.NewFromFloat(salary).
		Add(decimal.NewFromFloat(totals.LoanIncome)).
		Sub(decimal.NewFromFloat(totals.FixedExpenses)).
		Sub(decimal.NewFromFloat(totals.DebtPayment)).
		Sub(decimal.NewFromFloat(totals.SavingPlan))
	if !left.IsPositive() {
		return 0, nil
	}
	return left.Div(decimal.NewFromInt(int64(cycleLengthDays))).InexactFloat64(), nil
}

// Compute runs the whole calculation. A nil salary means the user never set one.
func (e Engine) Compute(salary *float64, records finance.Records, cycleLengthDays int) (Result, error) {
	if salary == nil {
		return Result{}, ErrSalaryRequired
	}
	if *salary < 0 {
		return Result{}, fmt.Errorf("%w: salary must not be negative", apperr.ErrValidation)
	}
	totals := e.Totals(*salary, records)
	daily, err := Daily(*salary, totals, cycleLengthDays)
	if err != nil {
		return Result{}, err
	}
	return Result{
		MonthlyTotals:   totals,
		Salary:          *salary,
		CycleLengthDays: cycleLengthDays,
		DailyAllowance:  daily,
	}, nil
}
