package finance

import (
	"math"
	"testing"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestValidate(t *testing.T) {
	valid := []interface{ Validate() error }{
		FixedExpense{Name: "Rent", Amount: 500, Frequency: Monthly},
		FixedExpense{Name: "Gym", Amount: 0, Frequency: Weekly},
		Debt{Creditor: "Bank", AmountRemaining: 1000, MonthlyPayment: 100},
		Loan{Borrower: "Minh", AmountRemaining: 200, MonthlyCollect: 50},
		SavingPlan{Type: Saving, PercentageOfSalary: ptr(10)},
		SavingPlan{Type: SendHome, FixedAmount: ptr(0)},
		SavingPlan{Type: Investing, PercentageOfSalary: ptr(100)},
	}
	for _, r := range valid {
		assert.NoError(t, r.Validate(), "%+v", r)
	}

	invalid := map[string]interface{ Validate() error }{
		"expense without name":     FixedExpense{Amount: 1, Frequency: Monthly},
		"negative expense":         FixedExpense{Name: "x", Amount: -1, Frequency: Monthly},
		"unknown frequency":        FixedExpense{Name: "x", Amount: 1, Frequency: "daily"},
		"NaN expense":              FixedExpense{Name: "x", Amount: math.NaN(), Frequency: Monthly},
		"debt without creditor":    Debt{MonthlyPayment: 1},
		"negative monthly payment": Debt{Creditor: "x", MonthlyPayment: -1},
		"loan without borrower":    Loan{MonthlyCollect: 1},
		"negative remaining loan":  Loan{Borrower: "x", AmountRemaining: -5},
		"plan with both amounts":   SavingPlan{Type: Saving, PercentageOfSalary: ptr(5), FixedAmount: ptr(5)},
		"plan with neither amount": SavingPlan{Type: Saving},
		"plan over 100 percent":    SavingPlan{Type: Saving, PercentageOfSalary: ptr(101)},
		"plan with negative fixed": SavingPlan{Type: Saving, FixedAmount: ptr(-1)},
		"plan with unknown type":   SavingPlan{Type: "pension", FixedAmount: ptr(1)},
	}
	for name, r := range invalid {
		err := r.Validate()
		assert.ErrorIs(t, err, ErrInvalidRecord, name)
		assert.Equal(t, apperr.ErrValidation, apperr.Kind(err), name)
	}
}
