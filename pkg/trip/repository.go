package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Repository persists trips. Every write that touches trip aggregates runs in
// one transaction holding the trip row lock, so concurrent writers never
// overwrite each other's totals.
type Repository interface {
	CreateTrip(ctx context.Context, trip Trip) (Trip, error)
	GetTrip(ctx context.Context, tripId string) (Trip, error)
	ListTrips(ctx context.Context, userId int) ([]Trip, error)
	UpdateTrip(ctx context.Context, tripId string, name string, date time.Time) error
	DeleteTrip(ctx context.Context, tripId string) error
	// UpdateStatus moves the trip from one status to another and fails with ErrStatusConflict if it is no longer in from.
	// A non-nil guard runs on the locked trip state and aborts the change when it returns an error.
	UpdateStatus(ctx context.Context, tripId string, from Status, to Status, guard StatusGuard) error

	ListActivities(ctx context.Context, tripId string) ([]Activity, error)
	GetActivity(ctx context.Context, tripId string, activityId string) (Activity, error)
	// StoreActivity, UpdateActivity and DeleteActivity re-derive participant totals and payer spending from the activities.
	StoreActivity(ctx context.Context, activity Activity) (Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) (Activity, error)
	DeleteActivity(ctx context.Context, tripId string, activityId string) error

	ListPayments(ctx context.Context, tripId string) ([]Payment, error)
	// AppendPayment records the payment and increments the participant's paid amount in place.
	AppendPayment(ctx context.Context, payment Payment) (Participant, error)
}

// StatusGuard inspects a trip, its activities and its payments as they stand
// while the trip row is locked.
type StatusGuard func(trip Trip, activities []Activity, payments []Payment) error

type queryer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Dependency("begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Dependency("commit transaction", err)
	}
	return nil
}

// lockTrip takes the row lock and returns the trip's current status.
func lockTrip(ctx context.Context, tx pgx.Tx, tripId string) (Status, error) {
	if uuid.Validate(tripId) != nil {
		return "", ErrTripNotFound
	}
	var status Status
	err := tx.QueryRow(ctx, `SELECT status FROM trip WHERE id = $1 FOR UPDATE`, tripId).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTripNotFound
	}
	if err != nil {
		return "", apperr.Dependency("lock trip", err)
	}
	return status, nil
}

func lockActiveTrip(ctx context.Context, tx pgx.Tx, tripId string) error {
	status, err := lockTrip(ctx, tx, tripId)
	if err != nil {
		return err
	}
	if status != OnGoing {
		return fmt.Errorf("%w: trip %s is %s", ErrTripNotActive, tripId, status)
	}
	return nil
}

func (r *RepositoryImpl) CreateTrip(ctx context.Context, trip Trip) (Trip, error) {
	err := r.withTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO trip (id, name, date, status, created_by) VALUES ($1, $2, $3, $4, $5)`,
			trip.Id, trip.Name, trip.Date, trip.Status, nullableUser(trip.CreatedBy))
		if err != nil {
			log.Errorf("could not insert trip: %v", err)
			return apperr.Dependency("insert trip", err)
		}
		for i, p := range trip.Participants {
			_, err := tx.Exec(ctx, `INSERT INTO trip_participant (trip_id, user_id, position) VALUES ($1, $2, $3)`,
				trip.Id, p.UserId, i)
			if err != nil {
				log.Errorf("could not insert trip participant: %v", err)
				return apperr.Dependency("insert trip participant", err)
			}
		}
		return nil
	})
	if err != nil {
		return Trip{}, err
	}
	return r.GetTrip(ctx, trip.Id)
}

func (r *RepositoryImpl) GetTrip(ctx context.Context, tripId string) (Trip, error) {
	return getTrip(ctx, r.db, tripId)
}

func getTrip(ctx context.Context, q queryer, tripId string) (Trip, error) {
	if uuid.Validate(tripId) != nil {
		return Trip{}, ErrTripNotFound
	}
	var t Trip
	var createdBy *int
	err := q.QueryRow(ctx, `SELECT id::text, name, date, status, created_by FROM trip WHERE id = $1`, tripId).
		Scan(&t.Id, &t.Name, &t.Date, &t.Status, &createdBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, ErrTripNotFound
	}
	if err != nil {
		log.Errorf("could not query trip: %v", err)
		return Trip{}, apperr.Dependency("get trip", err)
	}
	if createdBy != nil {
		t.CreatedBy = *createdBy
	}

	rows, err := q.Query(ctx, `SELECT user_id, is_paid, total_money_per_user, paid_amount
				FROM trip_participant WHERE trip_id = $1 ORDER BY position`, tripId)
	if err != nil {
		return Trip{}, apperr.Dependency("get trip participants", err)
	}
	t.Participants, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Participant, error) {
		var p Participant
		err := row.Scan(&p.UserId, &p.IsPaid, &p.TotalMoneyPerUser, &p.PaidAmount)
		return p, err
	})
	if err != nil {
		return Trip{}, apperr.Dependency("scan trip participants", err)
	}

	rows, err = q.Query(ctx, `SELECT user_id, spent_money FROM trip_payer WHERE trip_id = $1 ORDER BY user_id`, tripId)
	if err != nil {
		return Trip{}, apperr.Dependency("get trip payers", err)
	}
	t.Payers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payer, error) {
		var p Payer
		err := row.Scan(&p.UserId, &p.SpentMoney)
		return p, err
	})
	if err != nil {
		return Trip{}, apperr.Dependency("scan trip payers", err)
	}

	rows, err = q.Query(ctx, `SELECT id::text FROM payment_history WHERE trip_id = $1 ORDER BY seq`, tripId)
	if err != nil {
		return Trip{}, apperr.Dependency("get payment ids", err)
	}
	t.PaymentHistory, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Trip{}, apperr.Dependency("scan payment ids", err)
	}
	return t, nil
}

func (r *RepositoryImpl) ListTrips(ctx context.Context, userId int) ([]Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT t.id::text, t.date FROM trip t
				LEFT JOIN trip_participant tp ON tp.trip_id = t.id
				WHERE t.created_by = $1 OR tp.user_id = $1
				ORDER BY t.date DESC, t.id::text`, userId)
	if err != nil {
		log.Errorf("could not query trips: %v", err)
		return nil, apperr.Dependency("list trips", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		var date time.Time
		err := row.Scan(&id, &date)
		return id, err
	})
	if err != nil {
		return nil, apperr.Dependency("scan trips", err)
	}

	trips := make([]Trip, 0, len(ids))
	for _, id := range ids {
		t, err := r.GetTrip(ctx, id)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, nil
}

func (r *RepositoryImpl) UpdateTrip(ctx context.Context, tripId string, name string, date time.Time) error {
	if uuid.Validate(tripId) != nil {
		return ErrTripNotFound
	}
	result, err := r.db.Exec(ctx, `UPDATE trip SET name = $1, date = $2 WHERE id = $3`, name, date, tripId)
	if err != nil {
		return apperr.Dependency("update trip", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteTrip(ctx context.Context, tripId string) error {
	if uuid.Validate(tripId) != nil {
		return ErrTripNotFound
	}
	result, err := r.db.Exec(ctx, `DELETE FROM trip WHERE id = $1`, tripId)
	if err != nil {
		return apperr.Dependency("delete trip", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, tripId string, from Status, to Status, guard StatusGuard) error {
	return r.withTransaction(ctx, func(tx pgx.Tx) error {
		current, err := lockTrip(ctx, tx, tripId)
		if err != nil {
			return err
		}
		if current != from {
			return fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, current)
		}
		if guard != nil {
			if err := guardLocked(ctx, tx, tripId, guard); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE trip SET status = $1 WHERE id = $2`, to, tripId); err != nil {
			return apperr.Dependency("update trip status", err)
		}
		return nil
	})
}

func guardLocked(ctx context.Context, tx pgx.Tx, tripId string, guard StatusGuard) error {
	trip, err := getTrip(ctx, tx, tripId)
	if err != nil {
		return err
	}
	activities, err := listActivities(ctx, tx, `WHERE a.trip_id = $1`, tripId)
	if err != nil {
		return err
	}
	payments, err := listPayments(ctx, tx, tripId)
	if err != nil {
		return err
	}
	return guard(trip, activities, payments)
}

const activityColumns = `a.id::text, a.trip_id::text, a.name, a.total_money, a.payer_id, a.created_at, a.updated_at`

func (r *RepositoryImpl) ListActivities(ctx context.Context, tripId string) ([]Activity, error) {
	return listActivities(ctx, r.db, `WHERE a.trip_id = $1`, tripId)
}

func (r *RepositoryImpl) GetActivity(ctx context.Context, tripId string, activityId string) (Activity, error) {
	if uuid.Validate(tripId) != nil || uuid.Validate(activityId) != nil {
		return Activity{}, ErrActivityNotFound
	}
	activities, err := listActivities(ctx, r.db, `WHERE a.trip_id = $1 AND a.id = $2`, tripId, activityId)
	if err != nil {
		return Activity{}, err
	}
	if len(activities) == 0 {
		return Activity{}, ErrActivityNotFound
	}
	return activities[0], nil
}

func listActivities(ctx context.Context, q queryer, where string, args ...any) ([]Activity, error) {
	query := `SELECT ` + activityColumns + `, ap.user_id, ap.total_money_per_user
				FROM activity a
				LEFT JOIN activity_participant ap ON ap.activity_id = a.id
				` + where + `
				ORDER BY a.created_at, a.id, ap.position`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("could not query activities: %v", err)
		return nil, apperr.Dependency("list activities", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var userId *int
		var share *float64
		if err := rows.Scan(&a.Id, &a.TripId, &a.Name, &a.TotalMoney, &a.PayerId, &a.CreatedAt, &a.UpdatedAt,
			&userId, &share); err != nil {
			return nil, apperr.Dependency("scan activity", err)
		}
		if n := len(activities); n == 0 || activities[n-1].Id != a.Id {
			activities = append(activities, a)
		}
		if userId != nil {
			last := &activities[len(activities)-1]
			last.Participants = append(last.Participants, ActivityParticipant{UserId: *userId, TotalMoneyPerUser: *share})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("iterate activities", err)
	}
	return activities, nil
}

func (r *RepositoryImpl) StoreActivity(ctx context.Context, activity Activity) (Activity, error) {
	err := r.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockActiveTrip(ctx, tx, activity.TripId); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO activity (id, trip_id, name, total_money, payer_id) VALUES ($1, $2, $3, $4, $5)`,
			activity.Id, activity.TripId, activity.Name, activity.TotalMoney, activity.PayerId)
		if err != nil {
			log.Errorf("could not insert activity: %v", err)
			return apperr.Dependency("insert activity", err)
		}
		if err := insertActivityParticipants(ctx, tx, activity); err != nil {
			return err
		}
		return refreshAggregates(ctx, tx, activity.TripId)
	})
	if err != nil {
		return Activity{}, err
	}
	return r.GetActivity(ctx, activity.TripId, activity.Id)
}

func (r *RepositoryImpl) UpdateActivity(ctx context.Context, activity Activity) (Activity, error) {
	err := r.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockActiveTrip(ctx, tx, activity.TripId); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `UPDATE activity SET name = $1, total_money = $2, payer_id = $3, updated_at = now()
				WHERE id = $4 AND trip_id = $5`,
			activity.Name, activity.TotalMoney, activity.PayerId, activity.Id, activity.TripId)
		if err != nil {
			return apperr.Dependency("update activity", err)
		}
		if result.RowsAffected() == 0 {
			return ErrActivityNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM activity_participant WHERE activity_id = $1`, activity.Id); err != nil {
			return apperr.Dependency("clear activity participants", err)
		}
		if err := insertActivityParticipants(ctx, tx, activity); err != nil {
			return err
		}
		return refreshAggregates(ctx, tx, activity.TripId)
	})
	if err != nil {
		return Activity{}, err
	}
	return r.GetActivity(ctx, activity.TripId, activity.Id)
}

func (r *RepositoryImpl) DeleteActivity(ctx context.Context, tripId string, activityId string) error {
	return r.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockActiveTrip(ctx, tx, tripId); err != nil {
			return err
		}
		if uuid.Validate(activityId) != nil {
			return ErrActivityNotFound
		}
		result, err := tx.Exec(ctx, `DELETE FROM activity WHERE id = $1 AND trip_id = $2`, activityId, tripId)
		if err != nil {
			return apperr.Dependency("delete activity", err)
		}
		if result.RowsAffected() == 0 {
			return ErrActivityNotFound
		}
		return refreshAggregates(ctx, tx, tripId)
	})
}

func insertActivityParticipants(ctx context.Context, tx pgx.Tx, activity Activity) error {
	batch := &pgx.Batch{}
	for i, p := range activity.Participants {
		batch.Queue(`INSERT INTO activity_participant (activity_id, user_id, position, total_money_per_user) VALUES ($1, $2, $3, $4)`,
			activity.Id, p.UserId, i, p.TotalMoneyPerUser)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Errorf("could not insert activity participants: %v", err)
		return apperr.Dependency("insert activity participants", err)
	}
	return nil
}

// refreshAggregates derives participant totals and payer spending from the
// activity rows, then recomputes is_paid.
func refreshAggregates(ctx context.Context, tx pgx.Tx, tripId string) error {
	statements := []string{
		`UPDATE trip_participant tp SET total_money_per_user = COALESCE((
				SELECT SUM(ap.total_money_per_user) FROM activity_participant ap
				JOIN activity a ON a.id = ap.activity_id
				WHERE a.trip_id = tp.trip_id AND ap.user_id = tp.user_id), 0)
			WHERE tp.trip_id = $1`,
		`UPDATE trip_participant SET is_paid = paid_amount >= total_money_per_user WHERE trip_id = $1`,
		`DELETE FROM trip_payer WHERE trip_id = $1`,
		`INSERT INTO trip_payer (trip_id, user_id, spent_money)
			SELECT trip_id, payer_id, SUM(total_money) FROM activity WHERE trip_id = $1 GROUP BY trip_id, payer_id`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, tripId); err != nil {
			log.Errorf("could not refresh trip aggregates: %v", err)
			return apperr.Dependency("refresh trip aggregates", err)
		}
	}
	return nil
}

func (r *RepositoryImpl) ListPayments(ctx context.Context, tripId string) ([]Payment, error) {
	return listPayments(ctx, r.db, tripId)
}

func listPayments(ctx context.Context, q queryer, tripId string) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT id::text, trip_id::text, user_id, amount, payment_date, note
				FROM payment_history WHERE trip_id = $1 ORDER BY seq`, tripId)
	if err != nil {
		log.Errorf("could not query payments: %v", err)
		return nil, apperr.Dependency("list payments", err)
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.Id, &p.TripId, &p.UserId, &p.Amount, &p.PaymentDate, &p.Note)
		return p, err
	})
	if err != nil {
		return nil, apperr.Dependency("scan payments", err)
	}
	return payments, nil
}

func (r *RepositoryImpl) AppendPayment(ctx context.Context, payment Payment) (Participant, error) {
	var participant Participant
	err := r.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockActiveTrip(ctx, tx, payment.TripId); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `UPDATE trip_participant
				SET paid_amount = paid_amount + $3, is_paid = paid_amount + $3 >= total_money_per_user
				WHERE trip_id = $1 AND user_id = $2
				RETURNING user_id, is_paid, total_money_per_user, paid_amount`,
			payment.TripId, payment.UserId, payment.Amount).
			Scan(&participant.UserId, &participant.IsPaid, &participant.TotalMoneyPerUser, &participant.PaidAmount)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: user %d", ErrUnknownParticipant, payment.UserId)
		}
		if err != nil {
			return apperr.Dependency("increment paid amount", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO payment_history (id, trip_id, user_id, amount, payment_date, note)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			payment.Id, payment.TripId, payment.UserId, payment.Amount, payment.PaymentDate, payment.Note)
		if err != nil {
			log.Errorf("could not insert payment: %v", err)
			return apperr.Dependency("insert payment", err)
		}
		return nil
	})
	if err != nil {
		return Participant{}, err
	}
	return participant, nil
}

func nullableUser(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
