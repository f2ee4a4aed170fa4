package finance

import (
	"context"
	"fmt"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// RecordsReader is what the planner needs from this package.
type RecordsReader interface {
	GetRecords(ctx context.Context, userId int) (Records, error)
}

type Repository interface {
	RecordsReader

	ListFixedExpenses(ctx context.Context, userId int) ([]FixedExpense, error)
	CreateFixedExpense(ctx context.Context, e FixedExpense) error
	UpdateFixedExpense(ctx context.Context, e FixedExpense) error
	DeleteFixedExpense(ctx context.Context, userId int, id string) error

	ListDebts(ctx context.Context, userId int) ([]Debt, error)
	CreateDebt(ctx context.Context, d Debt) error
	UpdateDebt(ctx context.Context, d Debt) error
	DeleteDebt(ctx context.Context, userId int, id string) error

	ListLoans(ctx context.Context, userId int) ([]Loan, error)
	CreateLoan(ctx context.Context, l Loan) error
	UpdateLoan(ctx context.Context, l Loan) error
	DeleteLoan(ctx context.Context, userId int, id string) error

	ListSavingPlans(ctx context.Context, userId int) ([]SavingPlan, error)
	CreateSavingPlan(ctx context.Context, p SavingPlan) error
	UpdateSavingPlan(ctx context.Context, p SavingPlan) error
	DeleteSavingPlan(ctx context.Context, userId int, id string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// Column order matches the struct field order, rows are scanned by position.
const (
	fixedExpenseColumns = `id::text, user_id, name, amount, frequency`
	debtColumns         = `id::text, user_id, creditor, amount_remaining, monthly_payment`
	loanColumns         = `id::text, user_id, borrower, amount_remaining, monthly_collect`
	savingPlanColumns   = `id::text, user_id, type, percentage_of_salary, fixed_amount`
)

func list[T any](ctx context.Context, db *pgxpool.Pool, columns, table string, userId int) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at, id`, columns, table)
	rows, err := db.Query(ctx, query, userId)
	if err != nil {
		log.Errorf("could not query %s: %v", table, err)
		return nil, apperr.Dependency("list "+table, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[T])
	if err != nil {
		return nil, apperr.Dependency("scan "+table, err)
	}
	return items, nil
}

func (r *RepositoryImpl) exec(ctx context.Context, op string, mustAffect bool, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		log.Errorf("could not %s: %v", op, err)
		return apperr.Dependency(op, err)
	}
	if mustAffect && result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ids that are not uuids cannot exist and would fail to bind.
func (r *RepositoryImpl) delete(ctx context.Context, table string, userId int, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	return r.exec(ctx, "delete from "+table, true,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table), id, userId)
}

func (r *RepositoryImpl) GetRecords(ctx context.Context, userId int) (Records, error) {
	var records Records
	var err error
	if records.FixedExpenses, err = r.ListFixedExpenses(ctx, userId); err != nil {
		return Records{}, err
	}
	if records.Debts, err = r.ListDebts(ctx, userId); err != nil {
		return Records{}, err
	}
	if records.Loans, err = r.ListLoans(ctx, userId); err != nil {
		return Records{}, err
	}
	if records.SavingPlans, err = r.ListSavingPlans(ctx, userId); err != nil {
		return Records{}, err
	}
	return records, nil
}

func (r *RepositoryImpl) ListFixedExpenses(ctx context.Context, userId int) ([]FixedExpense, error) {
	return list[FixedExpense](ctx, r.db, fixedExpenseColumns, "fixed_expense", userId)
}

func (r *RepositoryImpl) CreateFixedExpense(ctx context.Context, e FixedExpense) error {
	return r.exec(ctx, "insert fixed expense", false,
		`INSERT INTO fixed_expense (id, user_id, name, amount, frequency) VALUES ($1, $2, $3, $4, $5)`,
		e.Id, e.UserId, e.Name, e.Amount, e.Frequency)
}

func (r *RepositoryImpl) UpdateFixedExpense(ctx context.Context, e FixedExpense) error {
	if uuid.Validate(e.Id) != nil {
		return ErrNotFound
	}
	return r.exec(ctx, "update fixed expense", true,
		`UPDATE fixed_expense SET name = $1, amount = $2, frequency = $3 WHERE id = $4 AND user_id = $5`,
		e.Name, e.Amount, e.Frequency, e.Id, e.UserId)
}

func (r *RepositoryImpl) DeleteFixedExpense(ctx context.Context, userId int, id string) error {
	return r.delete(ctx, "fixed_expense", userId, id)
}

func (r *RepositoryImpl) ListDebts(ctx context.Context, userId int) ([]Debt, error) {
	return list[Debt](ctx, r.db, debtColumns, "debt", userId)
}

func (r *RepositoryImpl) CreateDebt(ctx context.Context, d Debt) error {
	return r.exec(ctx, "insert debt", false,
		`INSERT INTO debt (id, user_id, creditor, amount_remaining, monthly_payment) VALUES ($1, $2, $3, $4, $5)`,
		d.Id, d.UserId, d.Creditor, d.AmountRemaining, d.MonthlyPayment)
}

func (r *RepositoryImpl) UpdateDebt(ctx context.Context, d Debt) error {
	if uuid.Validate(d.Id) != nil {
		return ErrNotFound
	}
	return r.exec(ctx, "update debt", true,
		`UPDATE debt SET creditor = $1, amount_remaining = $2, monthly_payment = $3 WHERE id = $4 AND user_id = $5`,
		d.Creditor, d.AmountRemaining, d.MonthlyPayment, d.Id, d.UserId)
}

func (r *RepositoryImpl) DeleteDebt(ctx context.Context, userId int, id string) error {
	return r.delete(ctx, "debt", userId, id)
}

func (r *RepositoryImpl) ListLoans(ctx context.Context, userId int) ([]Loan, error) {
	return list[Loan](ctx, r.db, loanColumns, "loan", userId)
}

func (r *RepositoryImpl) CreateLoan(ctx context.Context, l Loan) error {
	return r.exec(ctx, "insert loan", false,
		`INSERT INTO loan (id, user_id, borrower, amount_remaining, monthly_collect) VALUES ($1, $2, $3, $4, $5)`,
		l.Id, l.UserId, l.Borrower, l.AmountRemaining, l.MonthlyCollect)
}

func (r *RepositoryImpl) UpdateLoan(ctx context.Context, l Loan) error {
	if uuid.Validate(l.Id) != nil {
		return ErrNotFound
	}
	return r.exec(ctx, "update loan", true,
		`UPDATE loan SET borrower = $1, amount_remaining = $2, monthly_collect = $3 WHERE id = $4 AND user_id = $5`,
		l.Borrower, l.AmountRemaining, l.MonthlyCollect, l.Id, l.UserId)
}

func (r *RepositoryImpl) DeleteLoan(ctx context.Context, userId int, id string) error {
	return r.delete(ctx, "loan", userId, id)
}

func (r *RepositoryImpl) ListSavingPlans(ctx context.Context, userId int) ([]SavingPlan, error) {
	return list[SavingPlan](ctx, r.db, savingPlanColumns, "saving_plan", userId)
}

func (r *RepositoryImpl) CreateSavingPlan(ctx context.Context, p SavingPlan) error {
	return r.exec(ctx, "insert saving plan", false,
		`INSERT INTO saving_plan (id, user_id, type, percentage_of_salary, fixed_amount) VALUES ($1, $2, $3, $4, $5)`,
		p.Id, p.UserId, p.Type, p.PercentageOfSalary, p.FixedAmount)
}

func (r *RepositoryImpl) UpdateSavingPlan(ctx context.Context, p SavingPlan) error {
	if uuid.Validate(p.Id) != nil {
		return ErrNotFound
	}
	return r.exec(ctx, "update saving plan", true,
		`UPDATE saving_plan SET type = $1, percentage_of_salary = $2, fixed_amount = $3 WHERE id = $4 AND user_id = $5`,
		p.Type, p.PercentageOfSalary, p.FixedAmount, p.Id, p.UserId)
}

func (r *RepositoryImpl) DeleteSavingPlan(ctx context.Context, userId int, id string) error {
	return r.delete(ctx, "saving_plan", userId, id)
}
