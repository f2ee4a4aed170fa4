package projection

import (
	"testing"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(v float64) *float64 { return &v }

func TestRemainingDailyBudget(t *testing.T) {
	tests := []struct {
		name      string
		allowance float64
		elapsed   int
		spent     float64
		expected  float64
	}{
		{"under budget", 70, 10, 500, 200},
		{"exactly on budget", 70, 10, 700, 0},
		{"over budget clamps at zero", 70, 10, 900, 0},
		{"first day nothing spent", 70, 1, 0, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RemainingDailyBudget(tt.allowance, tt.elapsed, tt.spent))
		})
	}
}

func TestProject(t *testing.T) {
	t.Run("should project only the saving plan when spending the allowance", func(t *testing.T) {
		// when
		p, err := Project(Input{DailyAllowance: 70, CycleLengthDays: 30, DaysElapsed: 10, CurrentCycleSpending: 600, MonthlySavingPlan: 200})

		// then
		require.NoError(t, err)
		assert.Equal(t, 200.0, p.ProjectedSavings)
		assert.Equal(t, 0.0, p.ProjectedOverspend)
		assert.Equal(t, 100.0, p.RemainingDailyBudget)
		assert.Equal(t, 20, p.DaysRemaining)
		assert.Equal(t, 2000.0, p.ProjectedCycleSpending)
	})

	t.Run("should add unspent allowance to savings", func(t *testing.T) {
		p, err := Project(Input{DailyAllowance: 70, CycleLengthDays: 30, DaysElapsed: 1, MonthlySavingPlan: 200, SpendRate: rate(50)})

		require.NoError(t, err)
		assert.Equal(t, 800.0, p.ProjectedSavings)
		assert.Equal(t, 50.0, p.SpendRate)
	})

	t.Run("should report overspend without eating into the saving plan", func(t *testing.T) {
		p, err := Project(Input{DailyAllowance: 70, CycleLengthDays: 30, DaysElapsed: 1, MonthlySavingPlan: 200, SpendRate: rate(80)})

		require.NoError(t, err)
		assert.Equal(t, 200.0, p.ProjectedSavings)
		assert.Equal(t, 300.0, p.ProjectedOverspend)
	})

	t.Run("should reject invalid input", func(t *testing.T) {
		_, err := Project(Input{DailyAllowance: 70, CycleLengthDays: 0})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = Project(Input{DailyAllowance: 70, CycleLengthDays: 30, DaysElapsed: 31})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = Project(Input{DailyAllowance: 70, CycleLengthDays: 30, DaysElapsed: 3, SpendRate: rate(-1)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}
