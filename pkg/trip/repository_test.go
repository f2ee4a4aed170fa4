package trip

import (
	"context"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/test_utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, []int) {
	test_utils.SkipShort(t)
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	users, err := test_utils.SeedUsers(ctx, db, 3)
	require.NoError(t, err)
	return ctx, NewRepository(db), users
}

func storeTrip(t *testing.T, ctx context.Context, repo *RepositoryImpl, users []int, status Status) Trip {
	t.Helper()
	trip := Trip{
		Id:        uuid.NewString(),
		Name:      "Mui Ne",
		Date:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:    status,
		CreatedBy: users[0],
	}
	for _, id := range users {
		trip.Participants = append(trip.Participants, Participant{UserId: id})
	}
	created, err := repo.CreateTrip(ctx, trip)
	require.NoError(t, err)
	return created
}

func equalActivity(trip Trip, payer int, total float64) Activity {
	a := Activity{Id: uuid.NewString(), TripId: trip.Id, Name: "Seafood", TotalMoney: total, PayerId: payer}
	share := total / float64(len(trip.Participants))
	for _, p := range trip.Participants {
		a.Participants = append(a.Participants, ActivityParticipant{UserId: p.UserId, TotalMoneyPerUser: share})
	}
	return a
}

func TestRepositoryImpl_CreateAndGetTrip(t *testing.T) {
	ctx, repo, users := setupTestRepository(t)

	// when
	created := storeTrip(t, ctx, repo, users, Planned)

	// then
	assert.Equal(t, "Mui Ne", created.Name)
	assert.Equal(t, Planned, created.Status)
	assert.Equal(t, users[0], created.CreatedBy)
	assert.Equal(t, users, created.ParticipantIds())
	assert.True(t, created.Participants[0].IsPaid)
	assert.Empty(t, created.Payers)
	assert.Empty(t, created.PaymentHistory)

	_, err := repo.GetTrip(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestRepositoryImpl_ListTrips(t *testing.T) {
	ctx, repo, users := setupTestRepository(t)
	older := storeTrip(t, ctx, repo, users, Planned)
	newer := storeTrip(t, ctx, repo, users[1:], Planned)
	require.NoError(t, repo.UpdateTrip(ctx, newer.Id, "Later", older.Date.AddDate(0, 1, 0)))

	trips, err := repo.ListTrips(ctx, users[1])

	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, newer.Id, trips[0].Id)
	assert.Equal(t, "Later", trips[0].Name)
	assert.Equal(t, older.Id, trips[1].Id)
}

func TestRepositoryImpl_StoreActivity(t *testing.T) {
	t.Run("should derive participant totals and payer spending", func(t *testing.T) {
		ctx, repo, users := setupTestRepository(t)
		trip := storeTrip(t, ctx, repo, users, OnGoing)

		// when
		_, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 90))
		require.NoError(t, err)
		stored, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 30))
		require.NoError(t, err)

		// then
		assert.Len(t, stored.Participants, 3)
		got, err := repo.GetTrip(ctx, trip.Id)
		require.NoError(t, err)
		assert.Equal(t, []Payer{{UserId: users[0], SpentMoney: 120}}, got.Payers)
		for _, p := range got.Participants {
			assert.InDelta(t, 40, p.TotalMoneyPerUser, 1e-9)
			assert.False(t, p.IsPaid)
		}
		activities, err := repo.ListActivities(ctx, trip.Id)
		require.NoError(t, err)
		assert.Len(t, activities, 2)
	})

	t.Run("should reject activity on trip that is not on-going", func(t *testing.T) {
		ctx, repo, users := setupTestRepository(t)
		trip := storeTrip(t, ctx, repo, users, Planned)

		_, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 90))

		assert.ErrorIs(t, err, ErrTripNotActive)
	})

	t.Run("should re-derive totals on update and delete", func(t *testing.T) {
		ctx, repo, users := setupTestRepository(t)
		trip := storeTrip(t, ctx, repo, users, OnGoing)
		activity, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 90))
		require.NoError(t, err)

		activity.TotalMoney = 20
		activity.PayerId = users[1]
		activity.Participants = []ActivityParticipant{{UserId: users[2], TotalMoneyPerUser: 20}}
		_, err = repo.UpdateActivity(ctx, activity)
		require.NoError(t, err)

		got, err := repo.GetTrip(ctx, trip.Id)
		require.NoError(t, err)
		assert.Equal(t, []Payer{{UserId: users[1], SpentMoney: 20}}, got.Payers)
		assert.Zero(t, got.Participants[0].TotalMoneyPerUser)
		assert.True(t, got.Participants[0].IsPaid)
		assert.InDelta(t, 20, got.Participants[2].TotalMoneyPerUser, 1e-9)

		require.NoError(t, repo.DeleteActivity(ctx, trip.Id, activity.Id))
		got, err = repo.GetTrip(ctx, trip.Id)
		require.NoError(t, err)
		assert.Empty(t, got.Payers)
		assert.ErrorIs(t, repo.DeleteActivity(ctx, trip.Id, activity.Id), ErrActivityNotFound)
	})
}

func TestRepositoryImpl_AppendPayment(t *testing.T) {
	t.Run("should increment paid amount atomically", func(t *testing.T) {
		ctx, repo, users := setupTestRepository(t)
		trip := storeTrip(t, ctx, repo, users, OnGoing)
		_, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 300))
		require.NoError(t, err)

		// when
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AppendPayment(ctx, Payment{
					Id: uuid.NewString(), TripId: trip.Id, UserId: users[1], Amount: 5, PaymentDate: time.Now(),
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// then
		got, err := repo.GetTrip(ctx, trip.Id)
		require.NoError(t, err)
		p, _ := got.Participant(users[1])
		assert.InDelta(t, 100, p.PaidAmount, 1e-9)
		assert.True(t, p.IsPaid)
		assert.Len(t, got.PaymentHistory, 20)

		payments, err := repo.ListPayments(ctx, trip.Id)
		require.NoError(t, err)
		assert.Len(t, payments, 20)
	})

	t.Run("should reject payment from non participant", func(t *testing.T) {
		ctx, repo, users := setupTestRepository(t)
		trip := storeTrip(t, ctx, repo, users[:2], OnGoing)

		_, err := repo.AppendPayment(ctx, Payment{Id: uuid.NewString(), TripId: trip.Id, UserId: users[2], Amount: 5, PaymentDate: time.Now()})

		assert.ErrorIs(t, err, ErrUnknownParticipant)
		payments, err := repo.ListPayments(ctx, trip.Id)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestRepositoryImpl_UpdateStatus(t *testing.T) {
	ctx, repo, users := setupTestRepository(t)
	trip := storeTrip(t, ctx, repo, users, Planned)

	require.NoError(t, repo.UpdateStatus(ctx, trip.Id, Planned, OnGoing, nil))

	err := repo.UpdateStatus(ctx, trip.Id, Planned, OnGoing, nil)
	assert.ErrorIs(t, err, ErrStatusConflict)

	err = repo.UpdateStatus(ctx, uuid.NewString(), Planned, OnGoing, nil)
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestRepositoryImpl_UpdateStatusGuard(t *testing.T) {
	ctx, repo, users := setupTestRepository(t)
	trip := storeTrip(t, ctx, repo, users, OnGoing)
	_, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 30))
	require.NoError(t, err)

	var seen []Activity
	guard := func(locked Trip, activities []Activity, payments []Payment) error {
		seen = activities
		return CheckTransition(locked.Status, Ended, Ledger(locked, activities, payments), false)
	}

	// when
	err = repo.UpdateStatus(ctx, trip.Id, OnGoing, Ended, guard)

	// then
	var unsettled *UnsettledError
	require.ErrorAs(t, err, &unsettled)
	assert.Len(t, seen, 1)
	stored, err := repo.GetTrip(ctx, trip.Id)
	require.NoError(t, err)
	assert.Equal(t, OnGoing, stored.Status)
}

func TestRepositoryImpl_DeleteTrip(t *testing.T) {
	ctx, repo, users := setupTestRepository(t)
	trip := storeTrip(t, ctx, repo, users, OnGoing)
	_, err := repo.StoreActivity(ctx, equalActivity(trip, users[0], 30))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTrip(ctx, trip.Id))

	_, err = repo.GetTrip(ctx, trip.Id)
	assert.ErrorIs(t, err, ErrTripNotFound)
	activities, err := repo.ListActivities(ctx, trip.Id)
	require.NoError(t, err)
	assert.Empty(t, activities)
	assert.ErrorIs(t, repo.DeleteTrip(ctx, trip.Id), ErrTripNotFound)
}
