package spending

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// LogSpending records what the current user spent on date. Today and past
	// dates are accepted, dates before the current cycle are stored but not
	// counted towards it.
	LogSpending(ctx context.Context, date time.Time, amount float64) (DailySpendingLog, error)
	GetSpending(ctx context.Context, date time.Time) (DailySpendingLog, error)
	ListSpending(ctx context.Context, from, to time.Time) ([]DailySpendingLog, error)
	DeleteSpending(ctx context.Context, date time.Time) error
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewSpendingService(repo Repository, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) LogSpending(ctx context.Context, date time.Time, amount float64) (DailySpendingLog, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DailySpendingLog{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return DailySpendingLog{}, fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidSpending)
	}
	date = utils.DateOf(date)
	today := utils.Today(s.clock)
	if date.After(today) {
		return DailySpendingLog{}, &FutureDateError{Date: date, Today: today}
	}

	stored, err := s.repo.Upsert(ctx, DailySpendingLog{
		Id:          uuid.NewString(),
		UserId:      userId,
		Date:        date,
		AmountSpent: amount,
	})
	if err != nil {
		return DailySpendingLog{}, err
	}
	log.Debugf("user %d logged %.2f for %s", userId, amount, date.Format(utils.DateLayout))
	return stored, nil
}

func (s *ServiceImpl) GetSpending(ctx context.Context, date time.Time) (DailySpendingLog, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DailySpendingLog{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Get(ctx, userId, utils.DateOf(date))
}

func (s *ServiceImpl) ListSpending(ctx context.Context, from, to time.Time) ([]DailySpendingLog, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	from, to = utils.DateOf(from), utils.DateOf(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s is before start %s", ErrInvalidSpending,
			to.Format(utils.DateLayout), from.Format(utils.DateLayout))
	}
	return s.repo.List(ctx, userId, from, to)
}

func (s *ServiceImpl) DeleteSpending(ctx context.Context, date time.Time) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Delete(ctx, userId, utils.DateOf(date))
}
