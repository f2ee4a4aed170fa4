package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	KindFixedExpense = "fixed_expense"
	KindDebt         = "debt"
	KindLoan         = "loan"
	KindSavingPlan   = "saving_plan"
)

type Service interface {
	GetRecords(ctx context.Context) (Records, error)

	ListFixedExpenses(ctx context.Context) ([]FixedExpense, error)
	CreateFixedExpense(ctx context.Context, e FixedExpense) (FixedExpense, error)
	UpdateFixedExpense(ctx context.Context, e FixedExpense) (FixedExpense, error)
	DeleteFixedExpense(ctx context.Context, id string) error

	ListDebts(ctx context.Context) ([]Debt, error)
	CreateDebt(ctx context.Context, d Debt) (Debt, error)
	UpdateDebt(ctx context.Context, d Debt) (Debt, error)
	DeleteDebt(ctx context.Context, id string) error

	ListLoans(ctx context.Context) ([]Loan, error)
	CreateLoan(ctx context.Context, l Loan) (Loan, error)
	UpdateLoan(ctx context.Context, l Loan) (Loan, error)
	DeleteLoan(ctx context.Context, id string) error

	ListSavingPlans(ctx context.Context) ([]SavingPlan, error)
	CreateSavingPlan(ctx context.Context, p SavingPlan) (SavingPlan, error)
	UpdateSavingPlan(ctx context.Context, p SavingPlan) (SavingPlan, error)
	DeleteSavingPlan(ctx context.Context, id string) error
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewFinanceService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus}
}

func currentUser(ctx context.Context) (int, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current user: %w", err)
	}
	return userId, nil
}

func (s *ServiceImpl) GetRecords(ctx context.Context) (Records, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return Records{}, err
	}
	return s.repo.GetRecords(ctx, userId)
}

// changed tells subscribers, the allowance recalculation among them, that the
// user's records moved. The write is already committed, so failures are only logged.
func (s *ServiceImpl) changed(ctx context.Context, userId int, kind, id string) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.FinanceChanged,
		event_bus.FinanceRecordsChanged{UserId: userId, Kind: kind, Id: id}))
	if err != nil {
		log.Warnf("%s %s of user %d stored but subscribers failed: %v", kind, id, userId, err)
	}
}

func (s *ServiceImpl) ListFixedExpenses(ctx context.Context) ([]FixedExpense, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListFixedExpenses(ctx, userId)
}

func (s *ServiceImpl) CreateFixedExpense(ctx context.Context, e FixedExpense) (FixedExpense, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return FixedExpense{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Frequency == "" {
		e.Frequency = Monthly
	}
	if err := e.Validate(); err != nil {
		return FixedExpense{}, err
	}
	e.Id, e.UserId = uuid.NewString(), userId
	if err := s.repo.CreateFixedExpense(ctx, e); err != nil {
		return FixedExpense{}, err
	}
	s.changed(ctx, userId, KindFixedExpense, e.Id)
	return e, nil
}

func (s *ServiceImpl) UpdateFixedExpense(ctx context.Context, e FixedExpense) (FixedExpense, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return FixedExpense{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	if err := e.Validate(); err != nil {
		return FixedExpense{}, err
	}
	e.UserId = userId
	if err := s.repo.UpdateFixedExpense(ctx, e); err != nil {
		return FixedExpense{}, err
	}
	s.changed(ctx, userId, KindFixedExpense, e.Id)
	return e, nil
}

func (s *ServiceImpl) DeleteFixedExpense(ctx context.Context, id string) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFixedExpense(ctx, userId, id); err != nil {
		return err
	}
	s.changed(ctx, userId, KindFixedExpense, id)
	return nil
}

func (s *ServiceImpl) ListDebts(ctx context.Context) ([]Debt, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDebts(ctx, userId)
}

func (s *ServiceImpl) CreateDebt(ctx context.Context, d Debt) (Debt, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return Debt{}, err
	}
	d.Creditor = strings.TrimSpace(d.Creditor)
	if err := d.Validate(); err != nil {
		return Debt{}, err
	}
	d.Id, d.UserId = uuid.NewString(), userId
	if err := s.repo.CreateDebt(ctx, d); err != nil {
		return Debt{}, err
	}
	s.changed(ctx, userId, KindDebt, d.Id)
	return d, nil
}

func (s *ServiceImpl) UpdateDebt(ctx context.Context, d Debt) (Debt, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return Debt{}, err
	}
	d.Creditor = strings.TrimSpace(d.Creditor)
	if err := d.Validate(); err != nil {
		return Debt{}, err
	}
	d.UserId = userId
	if err := s.repo.UpdateDebt(ctx, d); err != nil {
		return Debt{}, err
	}
	s.changed(ctx, userId, KindDebt, d.Id)
	return d, nil
}

func (s *ServiceImpl) DeleteDebt(ctx context.Context, id string) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDebt(ctx, userId, id); err != nil {
		return err
	}
	s.changed(ctx, userId, KindDebt, id)
	return nil
}

func (s *ServiceImpl) ListLoans(ctx context.Context) ([]Loan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLoans(ctx, userId)
}

func (s *ServiceImpl) CreateLoan(ctx context.Context, l Loan) (Loan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return Loan{}, err
	}
	l.Borrower = strings.TrimSpace(l.Borrower)
	if err := l.Validate(); err != nil {
		return Loan{}, err
	}
	l.Id, l.UserId = uuid.NewString(), userId
	if err := s.repo.CreateLoan(ctx, l); err != nil {
		return Loan{}, err
	}
	s.changed(ctx, userId, KindLoan, l.Id)
	return l, nil
}

func (s *ServiceImpl) UpdateLoan(ctx context.Context, l Loan) (Loan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return Loan{}, err
	}
	l.Borrower = strings.TrimSpace(l.Borrower)
	if err := l.Validate(); err != nil {
		return Loan{}, err
	}
	l.UserId = userId
	if err := s.repo.UpdateLoan(ctx, l); err != nil {
		return Loan{}, err
	}
	s.changed(ctx, userId, KindLoan, l.Id)
	return l, nil
}

func (s *ServiceImpl) DeleteLoan(ctx context.Context, id string) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLoan(ctx, userId, id); err != nil {
		return err
	}
	s.changed(ctx, userId, KindLoan, id)
	return nil
}

func (s *ServiceImpl) ListSavingPlans(ctx context.Context) ([]SavingPlan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSavingPlans(ctx, userId)
}

func (s *ServiceImpl) CreateSavingPlan(ctx context.Context, p SavingPlan) (SavingPlan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return SavingPlan{}, err
	}
	if err := p.Validate(); err != nil {
		return SavingPlan{}, err
	}
	p.Id, p.UserId = uuid.NewString(), userId
	if err := s.repo.CreateSavingPlan(ctx, p); err != nil {
		return SavingPlan{}, err
	}
	s.changed(ctx, userId, KindSavingPlan, p.Id)
	return p, nil
}

func (s *ServiceImpl) UpdateSavingPlan(ctx context.Context, p SavingPlan) (SavingPlan, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return SavingPlan{}, err
	}
	if err := p.Validate(); err != nil {
		return SavingPlan{}, err
	}
	p.UserId = userId
	if err := s.repo.UpdateSavingPlan(ctx, p); err != nil {
		return SavingPlan{}, err
	}
	s.changed(ctx, userId, KindSavingPlan, p.Id)
	return p, nil
}

func (s *ServiceImpl) DeleteSavingPlan(ctx context.Context, id string) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSavingPlan(ctx, userId, id); err != nil {
		return err
	}
	s.changed(ctx, userId, KindSavingPlan, id)
	return nil
}
