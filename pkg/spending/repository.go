package spending

import (
	"context"
	"errors"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Totals sums logged spending, the planner reads cycle spending through it.
type Totals interface {
	// SumBetween adds up logs dated from (inclusive) to until (exclusive).
	SumBetween(ctx context.Context, userId int, from, until time.Time) (float64, error)
}

type Repository interface {
	Totals
	// Upsert stores the amount for the log's date, replacing any earlier amount for that date.
	Upsert(ctx context.Context, entry DailySpendingLog) (DailySpendingLog, error)
	Get(ctx context.Context, userId int, date time.Time) (DailySpendingLog, error)
	// List returns logs dated from..to, both inclusive, oldest first.
	List(ctx context.Context, userId int, from, to time.Time) ([]DailySpendingLog, error)
	Delete(ctx context.Context, userId int, date time.Time) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const columns = `id::text, user_id, date, amount_spent`

func (r *RepositoryImpl) Upsert(ctx context.Context, entry DailySpendingLog) (DailySpendingLog, error) {
	query := `INSERT INTO daily_spending_log (id, user_id, date, amount_spent) VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, date) DO UPDATE SET amount_spent = EXCLUDED.amount_spent, updated_at = now()
				RETURNING ` + columns
	rows, err := r.db.Query(ctx, query, entry.Id, entry.UserId, entry.Date, entry.AmountSpent)
	if err != nil {
		log.Errorf("could not upsert spending: %v", err)
		return DailySpendingLog{}, apperr.Dependency("upsert spending", err)
	}
	stored, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[DailySpendingLog])
	if err != nil {
		return DailySpendingLog{}, apperr.Dependency("scan spending", err)
	}
	return stored, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, userId int, date time.Time) (DailySpendingLog, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM daily_spending_log WHERE user_id = $1 AND date = $2`, userId, date)
	if err != nil {
		return DailySpendingLog{}, apperr.Dependency("get spending", err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[DailySpendingLog])
	if errors.Is(err, pgx.ErrNoRows) {
		return DailySpendingLog{}, ErrNotFound
	}
	if err != nil {
		return DailySpendingLog{}, apperr.Dependency("scan spending", err)
	}
	return entry, nil
}

func (r *RepositoryImpl) List(ctx context.Context, userId int, from, to time.Time) ([]DailySpendingLog, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM daily_spending_log
				WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`, userId, from, to)
	if err != nil {
		log.Errorf("could not query spending: %v", err)
		return nil, apperr.Dependency("list spending", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[DailySpendingLog])
	if err != nil {
		return nil, apperr.Dependency("scan spending", err)
	}
	return entries, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, date time.Time) error {
	result, err := r.db.Exec(ctx, `DELETE FROM daily_spending_log WHERE user_id = $1 AND date = $2`, userId, date)
	if err != nil {
		return apperr.Dependency("delete spending", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) SumBetween(ctx context.Context, userId int, from, until time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount_spent), 0) FROM daily_spending_log
				WHERE user_id = $1 AND date >= $2 AND date < $3`, userId, from, until).Scan(&total)
	if err != nil {
		log.Errorf("could not sum spending: %v", err)
		return 0, apperr.Dependency("sum spending", err)
	}
	return total, nil
}
