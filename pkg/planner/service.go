// Package planner computes and caches the daily allowance and reports progress through the pay cycle.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/internal/metrics"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/allowance"
	"github.com/adamkim-dev/tripsaver/pkg/finance"
	"github.com/adamkim-dev/tripsaver/pkg/payday"
	"github.com/adamkim-dev/tripsaver/pkg/projection"
	"github.com/adamkim-dev/tripsaver/pkg/spending"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	log "github.com/sirupsen/logrus"
)

// UserStore is the part of the user service the planner reads and writes.
type UserStore interface {
	GetUser(ctx context.Context, id int) (user.User, error)
	UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error
}

type Summary struct {
	allowance.MonthlyTotals
	Salary               *float64
	DailyAllowance       float64
	CurrentMonthSpending float64
	RemainingDailyBudget float64
	Cycle                payday.Cycle
}

type Service interface {
	// RecalculateAllowance recomputes the current user's daily allowance and stores it.
	// Running it twice on unchanged inputs stores the same value.
	RecalculateAllowance(ctx context.Context) (allowance.Result, error)
	Summary(ctx context.Context) (Summary, error)
	// Projection estimates the end of the current cycle. A nil spendRate assumes spending exactly the allowance.
	Projection(ctx context.Context, spendRate *float64) (projection.Projection, error)
}

type ServiceImpl struct {
	users    UserStore
	records  finance.RecordsReader
	spending spending.Totals
	engine   allowance.Engine
	eventBus *event_bus.EventBus
	metrics  *metrics.Metrics
	clock    utils.Clock
}

func NewPlannerService(
	users UserStore,
	records finance.RecordsReader,
	spendingTotals spending.Totals,
	engine allowance.Engine,
	eventBus *event_bus.EventBus,
	m *metrics.Metrics,
	clock utils.Clock,
) *ServiceImpl {
	s := &ServiceImpl{
		users:    users,
		records:  records,
		spending: spendingTotals,
		engine:   engine,
		eventBus: eventBus,
		metrics:  m,
		clock:    clock,
	}
	if eventBus != nil {
		event_bus.SubscribeTyped(eventBus, event_bus.FinanceChanged,
			func(e event_bus.EventT[event_bus.FinanceRecordsChanged]) error {
				return s.refresh(e.Context(), e.Data.UserId)
			})
		event_bus.SubscribeTyped(eventBus, event_bus.BudgetInputsChanged,
			func(e event_bus.EventT[event_bus.UserBudgetInputsChanged]) error {
				return s.refresh(e.Context(), e.Data.UserId)
			})
	}
	return s
}

// refresh keeps the cached allowance in step with changed inputs. Without a
// salary there is nothing to spend, so the cache drops to zero.
func (s *ServiceImpl) refresh(ctx context.Context, userId int) error {
	_, err := s.recalculate(ctx, userId)
	if errors.Is(err, allowance.ErrSalaryRequired) {
		log.Debugf("user %d has no salary, clearing daily allowance", userId)
		return s.users.UpdateDailyAllowance(ctx, userId, 0)
	}
	return err
}

func (s *ServiceImpl) RecalculateAllowance(ctx context.Context) (allowance.Result, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return allowance.Result{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.recalculate(ctx, userId)
}

func (s *ServiceImpl) recalculate(ctx context.Context, userId int) (allowance.Result, error) {
	u, cycle, err := s.userCycle(ctx, userId)
	if err != nil {
		return allowance.Result{}, err
	}
	records, err := s.records.GetRecords(ctx, userId)
	if err != nil {
		return allowance.Result{}, err
	}
	result, err := s.engine.Compute(u.Salary, records, cycle.LengthDays)
	if err != nil {
		return allowance.Result{}, err
	}
	if err := s.users.UpdateDailyAllowance(ctx, userId, result.DailyAllowance); err != nil {
		return allowance.Result{}, err
	}
	log.Infof("daily allowance of user %d set to %.2f over %d days", userId, result.DailyAllowance, cycle.LengthDays)
	s.metrics.AllowanceRecalculated()

	if s.eventBus != nil {
		err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.AllowanceRecalculated,
			event_bus.DailyAllowanceUpdated{UserId: userId, DailyAllowance: result.DailyAllowance}))
		if err != nil {
			log.Warnf("allowance of user %d stored but subscribers failed: %v", userId, err)
		}
	}
	return result, nil
}

func (s *ServiceImpl) userCycle(ctx context.Context, userId int) (user.User, payday.Cycle, error) {
	u, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return user.User{}, payday.Cycle{}, err
	}
	cycle, err := payday.Calculate(utils.Today(s.clock), u.PaydayOrZero())
	if err != nil {
		return user.User{}, payday.Cycle{}, err
	}
	return u, cycle, nil
}

func (s *ServiceImpl) Summary(ctx context.Context) (Summary, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get current user: %w", err)
	}
	u, cycle, err := s.userCycle(ctx, userId)
	if err != nil {
		return Summary{}, err
	}
	records, err := s.records.GetRecords(ctx, userId)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Salary: u.Salary, Cycle: cycle}
	if u.Salary != nil {
		result, err := s.engine.Compute(u.Salary, records, cycle.LengthDays)
		if err != nil {
			return Summary{}, err
		}
		summary.MonthlyTotals = result.MonthlyTotals
		summary.DailyAllowance = result.DailyAllowance
	} else {
		summary.MonthlyTotals = s.engine.Totals(0, records)
	}

	spent, err := s.spending.SumBetween(ctx, userId, cycle.Start, cycle.NextStart())
	if err != nil {
		return Summary{}, err
	}
	summary.CurrentMonthSpending = spent
	summary.RemainingDailyBudget = projection.RemainingDailyBudget(summary.DailyAllowance, cycle.DaysElapsed, spent)
	return summary, nil
}

func (s *ServiceImpl) Projection(ctx context.Context, spendRate *float64) (projection.Projection, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return projection.Projection{}, err
	}
	if summary.Salary == nil {
		return projection.Projection{}, allowance.ErrSalaryRequired
	}
	return projection.Project(projection.Input{
		DailyAllowance:       summary.DailyAllowance,
		CycleLengthDays:      summary.Cycle.LengthDays,
		DaysElapsed:          summary.Cycle.DaysElapsed,
		CurrentCycleSpending: summary.CurrentMonthSpending,
		MonthlySavingPlan:    summary.SavingPlan,
		SpendRate:            spendRate,
	})
}
