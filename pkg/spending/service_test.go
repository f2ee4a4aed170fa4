package spending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoStub = NewStubRepository()

var ctx = user.WithUser(context.Background(), user.User{Id: 3})

// late evening, so the UTC date is still the 20th
var now = time.Date(2025, 3, 20, 22, 15, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) (*ServiceImpl, func()) {
	return NewSpendingService(repoStub, &utils.MockClock{FixedNow: now}), func() {
		repoStub.Cleanup()
	}
}

func TestService_LogSpending(t *testing.T) {
	t.Run("should accept today and past dates", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		today, err := service.LogSpending(ctx, now, 12.5)
		require.NoError(t, err)
		past, err := service.LogSpending(ctx, day(1), 40)
		require.NoError(t, err)

		assert.Equal(t, day(20), today.Date)
		assert.Equal(t, 3, today.UserId)
		assert.Equal(t, day(1), past.Date)
	})

	t.Run("should replace the amount when the same date is logged again", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		first, err := service.LogSpending(ctx, day(10), 30)
		require.NoError(t, err)
		second, err := service.LogSpending(ctx, day(10).Add(5*time.Hour), 45)
		require.NoError(t, err)

		assert.Equal(t, first.Id, second.Id)
		stored, err := service.GetSpending(ctx, day(10))
		require.NoError(t, err)
		assert.Equal(t, 45.0, stored.AmountSpent)
		list, err := service.ListSpending(ctx, day(1), day(31))
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("should reject a future date with details", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.LogSpending(ctx, day(21), 10)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFutureDateNotLoggable)
		assert.Equal(t, apperr.ErrState, apperr.Kind(err))
		var futureErr *FutureDateError
		require.True(t, errors.As(err, &futureErr))
		assert.Equal(t, day(21), futureErr.Date)
		assert.Equal(t, map[string]string{"date": "2025-03-21", "today": "2025-03-20"}, futureErr.Details())
		_, err = service.GetSpending(ctx, day(21))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should reject negative amount", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.LogSpending(ctx, day(2), -1)

		assert.ErrorIs(t, err, ErrInvalidSpending)
	})

	t.Run("should require current user", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.LogSpending(context.Background(), day(2), 1)

		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}

func TestService_ListAndDelete(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()
	for _, d := range []int{15, 3, 9} {
		_, err := service.LogSpending(ctx, day(d), float64(d))
		require.NoError(t, err)
	}
	other := user.WithUser(context.Background(), user.User{Id: 4})
	_, err := service.LogSpending(other, day(9), 100)
	require.NoError(t, err)

	list, err := service.ListSpending(ctx, day(3), day(9))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, day(3), list[0].Date)
	assert.Equal(t, day(9), list[1].Date)

	_, err = service.ListSpending(ctx, day(9), day(3))
	assert.ErrorIs(t, err, ErrInvalidSpending)

	require.NoError(t, service.DeleteSpending(ctx, day(9)))
	assert.ErrorIs(t, service.DeleteSpending(ctx, day(9)), ErrNotFound)
	stillThere, err := service.GetSpending(other, day(9))
	require.NoError(t, err)
	assert.Equal(t, 100.0, stillThere.AmountSpent)
}

func TestStubRepository_SumBetween(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()
	for _, d := range []int{1, 14, 15, 20} {
		_, err := service.LogSpending(ctx, day(d), 10)
		require.NoError(t, err)
	}

	total, err := repoStub.SumBetween(ctx, 3, day(14), day(20))

	require.NoError(t, err)
	assert.Equal(t, 20.0, total)
}
