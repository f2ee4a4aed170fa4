// Package projection estimates how a pay cycle ends given what has been spent so far.
package projection

import (
	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/shopspring/decimal"
)

type Input struct {
	DailyAllowance       float64
	CycleLengthDays      int
	DaysElapsed          int
	CurrentCycleSpending float64
	MonthlySavingPlan    float64
	// SpendRate is the assumed daily spend for the rest of the cycle. Nil means spending exactly the allowance.
	SpendRate *float64
}

type Projection struct {
	RemainingDailyBudget   float64 `json:"remainingDailyBudget"`
	ProjectedSavings       float64 `json:"projectedSavings"`
	ProjectedOverspend     float64 `json:"projectedOverspend"`
	ProjectedCycleSpending float64 `json:"projectedCycleSpending"`
	SpendRate              float64 `json:"spendRate"`
	DaysRemaining          int     `json:"daysRemaining"`
}

// RemainingDailyBudget is what is still spendable of the allowance accrued so far.
func RemainingDailyBudget(dailyAllowance float64, daysElapsed int, currentCycleSpending float64) float64 {
	accrued := decimal.NewFromFloat(dailyAllowance).Mul(decimal.NewFromInt(int64(daysElapsed)))
	return nonNegative(accrued.Sub(decimal.NewFromFloat(currentCycleSpending))).InexactFloat64()
}

func Project(in Input) (Projection, error) {
	if in.CycleLengthDays < 1 {
		return Projection{}, apperr.Validation("cycle length must be at least one day, got %d", in.CycleLengthDays)
	}
	if in.DaysElapsed < 0 || in.DaysElapsed > in.CycleLengthDays {
		return Projection{}, apperr.Validation("days elapsed %d outside cycle of %d days", in.DaysElapsed, in.CycleLengthDays)
	}
	rate := in.DailyAllowance
	if in.SpendRate != nil {
		if *in.SpendRate < 0 {
			return Projection{}, apperr.Validation("spend rate must not be negative")
		}
		rate = *in.SpendRate
	}

	allowance := decimal.NewFromFloat(in.DailyAllowance)
	x := decimal.NewFromFloat(rate)
	length := decimal.NewFromInt(int64(in.CycleLengthDays))
	daysRemaining := in.CycleLengthDays - in.DaysElapsed

	savings := decimal.NewFromFloat(in.MonthlySavingPlan).Add(nonNegative(allowance.Sub(x).Mul(length)))
	overspend := nonNegative(x.Sub(allowance).Mul(length))
	cycleSpending := decimal.NewFromFloat(in.CurrentCycleSpending).Add(x.Mul(decimal.NewFromInt(int64(daysRemaining))))

	return Projection{
		RemainingDailyBudget:   RemainingDailyBudget(in.DailyAllowance, in.DaysElapsed, in.CurrentCycleSpending),
		ProjectedSavings:       savings.InexactFloat64(),
		ProjectedOverspend:     overspend.InexactFloat64(),
		ProjectedCycleSpending: cycleSpending.InexactFloat64(),
		SpendRate:              rate,
		DaysRemaining:          daysRemaining,
	}, nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
