package finance

import (
	"context"
	"slices"
	"sync"
)

type stubTable[T any] struct {
	rows []T
}

func (t *stubTable[T]) list(userId int, owner func(T) (int, string)) []T {
	var out []T
	for _, row := range t.rows {
		if uid, _ := owner(row); uid == userId {
			out = append(out, row)
		}
	}
	return out
}

func (t *stubTable[T]) replace(row T, owner func(T) (int, string)) error {
	uid, id := owner(row)
	for i, existing := range t.rows {
		if euid, eid := owner(existing); eid == id && euid == uid {
			t.rows[i] = row
			return nil
		}
	}
	return ErrNotFound
}

func (t *stubTable[T]) delete(userId int, id string, owner func(T) (int, string)) error {
	idx := slices.IndexFunc(t.rows, func(row T) bool {
		uid, rid := owner(row)
		return uid == userId && rid == id
	})
	if idx < 0 {
		return ErrNotFound
	}
	t.rows = slices.Delete(t.rows, idx, idx+1)
	return nil
}

func fixedExpenseOwner(e FixedExpense) (int, string) { return e.UserId, e.Id }
func debtOwner(d Debt) (int, string)                 { return d.UserId, d.Id }
func loanOwner(l Loan) (int, string)                 { return l.UserId, l.Id }
func savingPlanOwner(p SavingPlan) (int, string)     { return p.UserId, p.Id }

type StubRepository struct {
	mu            sync.Mutex
	fixedExpenses stubTable[FixedExpense]
	debts         stubTable[Debt]
	loans         stubTable[Loan]
	savingPlans   stubTable[SavingPlan]
}

func NewStubRepository() *StubRepository {
	return &StubRepository{}
}

func (s *StubRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixedExpenses = stubTable[FixedExpense]{}
	s.debts = stubTable[Debt]{}
	s.loans = stubTable[Loan]{}
	s.savingPlans = stubTable[SavingPlan]{}
}

func (s *StubRepository) GetRecords(ctx context.Context, userId int) (Records, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Records{
		FixedExpenses: s.fixedExpenses.list(userId, fixedExpenseOwner),
		Debts:         s.debts.list(userId, debtOwner),
		Loans:         s.loans.list(userId, loanOwner),
		SavingPlans:   s.savingPlans.list(userId, savingPlanOwner),
	}, nil
}

func (s *StubRepository) ListFixedExpenses(ctx context.Context, userId int) ([]FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixedExpenses.list(userId, fixedExpenseOwner), nil
}

func (s *StubRepository) CreateFixedExpense(ctx context.Context, e FixedExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixedExpenses.rows = append(s.fixedExpenses.rows, e)
	return nil
}

func (s *StubRepository) UpdateFixedExpense(ctx context.Context, e FixedExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixedExpenses.replace(e, fixedExpenseOwner)
}

func (s *StubRepository) DeleteFixedExpense(ctx context.Context, userId int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixedExpenses.delete(userId, id, fixedExpenseOwner)
}

func (s *StubRepository) ListDebts(ctx context.Context, userId int) ([]Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debts.list(userId, debtOwner), nil
}

func (s *StubRepository) CreateDebt(ctx context.Context, d Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debts.rows = append(s.debts.rows, d)
	return nil
}

func (s *StubRepository) UpdateDebt(ctx context.Context, d Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debts.replace(d, debtOwner)
}

func (s *StubRepository) DeleteDebt(ctx context.Context, userId int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debts.delete(userId, id, debtOwner)
}

func (s *StubRepository) ListLoans(ctx context.Context, userId int) ([]Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans.list(userId, loanOwner), nil
}

func (s *StubRepository) CreateLoan(ctx context.Context, l Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans.rows = append(s.loans.rows, l)
	return nil
}

func (s *StubRepository) UpdateLoan(ctx context.Context, l Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans.replace(l, loanOwner)
}

func (s *StubRepository) DeleteLoan(ctx context.Context, userId int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans.delete(userId, id, loanOwner)
}

func (s *StubRepository) ListSavingPlans(ctx context.Context, userId int) ([]SavingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savingPlans.list(userId, savingPlanOwner), nil
}

func (s *StubRepository) CreateSavingPlan(ctx context.Context, p SavingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savingPlans.rows = append(s.savingPlans.rows, p)
	return nil
}

func (s *StubRepository) UpdateSavingPlan(ctx context.Context, p SavingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savingPlans.replace(p, savingPlanOwner)
}

func (s *StubRepository) DeleteSavingPlan(ctx context.Context, userId int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savingPlans.delete(userId, id, savingPlanOwner)
}
