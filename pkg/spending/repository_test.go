package spending

import (
	"context"
	"flag"
	"os"
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

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, int) {
	test_utils.SkipShort(t)
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	users, err := test_utils.SeedUsers(ctx, db, 1)
	require.NoError(t, err)
	return ctx, NewRepository(db), users[0]
}

func entry(userId int, date time.Time, amount float64) DailySpendingLog {
	return DailySpendingLog{Id: uuid.NewString(), UserId: userId, Date: date, AmountSpent: amount}
}

func TestRepositoryImpl_Upsert(t *testing.T) {
	ctx, repo, userId := setupTestRepository(t)

	first, err := repo.Upsert(ctx, entry(userId, day(5), 10))
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, entry(userId, day(5), 25))
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, 25.0, second.AmountSpent)
	assert.Equal(t, day(5), second.Date)
	stored, err := repo.Get(ctx, userId, day(5))
	require.NoError(t, err)
	assert.Equal(t, second, stored)
}

func TestRepositoryImpl_ListSumDelete(t *testing.T) {
	ctx, repo, userId := setupTestRepository(t)
	for _, d := range []int{1, 10, 11, 20} {
		_, err := repo.Upsert(ctx, entry(userId, day(d), float64(d)))
		require.NoError(t, err)
	}

	list, err := repo.List(ctx, userId, day(10), day(20))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, day(10), list[0].Date)

	total, err := repo.SumBetween(ctx, userId, day(10), day(20))
	require.NoError(t, err)
	assert.Equal(t, 21.0, total)

	empty, err := repo.SumBetween(ctx, userId+1, day(1), day(31))
	require.NoError(t, err)
	assert.Zero(t, empty)

	require.NoError(t, repo.Delete(ctx, userId, day(10)))
	assert.ErrorIs(t, repo.Delete(ctx, userId, day(10)), ErrNotFound)
	_, err = repo.Get(ctx, userId, day(10))
	assert.ErrorIs(t, err, ErrNotFound)
}
