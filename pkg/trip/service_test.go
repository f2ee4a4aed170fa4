package trip

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/internal/metrics"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/split"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoStub = NewStubRepository()
var userRepoStub = user.NewStubUserRepository()
var now = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	service *ServiceImpl
	bus     *event_bus.EventBus
	ctx     context.Context
	users   []int
}

func setup(t *testing.T) (fixture, func()) {
	bus := event_bus.NewEventBus()
	users := user.NewUserService(userRepoStub, nil)
	f := fixture{
		service: NewTripService(repoStub, users, bus, metrics.New(), &utils.MockClock{FixedNow: now}),
		bus:     bus,
	}
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("user-%d", i)
		id, err := userRepoStub.CreateUser(context.Background(), user.User{Username: name, DisplayName: name})
		require.NoError(t, err)
		f.users = append(f.users, id)
	}
	f.ctx = user.WithUser(context.Background(), user.User{Id: f.users[0]})
	return f, func() {
		repoStub.Cleanup()
		userRepoStub.Cleanup()
	}
}

func (f fixture) participants() []Participant {
	ps := make([]Participant, len(f.users))
	for i, id := range f.users {
		ps[i] = Participant{UserId: id}
	}
	return ps
}

func (f fixture) startedTrip(t *testing.T) Trip {
	t.Helper()
	created, err := f.service.CreateTrip(f.ctx, Trip{Name: "Da Lat", Date: now, Participants: f.participants()})
	require.NoError(t, err)
	started, err := f.service.AdvanceStatus(f.ctx, created.Id, false)
	require.NoError(t, err)
	require.Equal(t, OnGoing, started.Status)
	return started
}

func TestService_CreateTrip(t *testing.T) {
	t.Run("should create planned trip with zeroed participants", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()

		// when
		created, err := f.service.CreateTrip(f.ctx, Trip{Name: " Da Lat ", Date: now, Participants: f.participants()})

		// then
		require.NoError(t, err)
		assert.NotEmpty(t, created.Id)
		assert.Equal(t, "Da Lat", created.Name)
		assert.Equal(t, Planned, created.Status)
		assert.Equal(t, f.users[0], created.CreatedBy)
		assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), created.Date)
		assert.Equal(t, f.users, created.ParticipantIds())
		for _, p := range created.Participants {
			assert.True(t, p.IsPaid)
			assert.Zero(t, p.TotalMoneyPerUser)
		}
	})

	t.Run("should reject invalid trips", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()

		cases := map[string]Trip{
			"empty name":      {Name: " ", Date: now, Participants: f.participants()},
			"missing date":    {Name: "x", Participants: f.participants()},
			"no participants": {Name: "x", Date: now},
			"duplicate":       {Name: "x", Date: now, Participants: []Participant{{UserId: f.users[0]}, {UserId: f.users[0]}}},
			"unknown user":    {Name: "x", Date: now, Participants: []Participant{{UserId: 999}}},
			"created ended":   {Name: "x", Date: now, Status: Ended, Participants: f.participants()},
		}
		for name, trip := range cases {
			_, err := f.service.CreateTrip(f.ctx, trip)
			assert.ErrorIs(t, err, ErrInvalidTrip, name)
		}
	})

	t.Run("should require current user", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()

		_, err := f.service.CreateTrip(context.Background(), Trip{Name: "x", Date: now, Participants: f.participants()})

		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}

func TestService_ListTrips(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()

	// given
	for i, name := range []string{"old", "newest", "middle"} {
		date := now.AddDate(0, 0, []int{-30, 10, 0}[i])
		_, err := f.service.CreateTrip(f.ctx, Trip{Name: name, Date: date, Participants: f.participants()[:1]})
		require.NoError(t, err)
	}
	otherCtx := user.WithUser(context.Background(), user.User{Id: f.users[1]})
	_, err := f.service.CreateTrip(otherCtx, Trip{Name: "not mine", Date: now, Participants: f.participants()[1:]})
	require.NoError(t, err)

	// when
	trips, err := f.service.ListTrips(f.ctx)

	// then
	require.NoError(t, err)
	names := make([]string, len(trips))
	for i, trip := range trips {
		names[i] = trip.Name
	}
	assert.Equal(t, []string{"newest", "middle", "old"}, names)
}

func TestService_UpdateAndDeleteTrip(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	created, err := f.service.CreateTrip(f.ctx, Trip{Name: "Hue", Date: now, Participants: f.participants()})
	require.NoError(t, err)

	updated, err := f.service.UpdateTrip(f.ctx, created.Id, "Hoi An", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Hoi An", updated.Name)
	assert.Equal(t, created.Date, updated.Date)

	require.NoError(t, f.service.DeleteTrip(f.ctx, created.Id))
	_, err = f.service.GetTrip(f.ctx, created.Id)
	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.ErrorIs(t, f.service.DeleteTrip(f.ctx, created.Id), ErrTripNotFound)
}

func TestService_RecordActivity(t *testing.T) {
	t.Run("should reject activity while trip is planned", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		created, err := f.service.CreateTrip(f.ctx, Trip{Name: "x", Date: now, Participants: f.participants()})
		require.NoError(t, err)

		_, err = f.service.RecordActivity(f.ctx, created.Id, ActivityInput{Name: "Dinner", TotalMoney: 30, PayerId: f.users[0]})

		assert.ErrorIs(t, err, ErrTripNotActive)
	})

	t.Run("should reject shares combined with participants", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		// when
		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
			Name:         "Boat",
			TotalMoney:   40,
			PayerId:      f.users[0],
			Participants: []int{f.users[0], f.users[1]},
			Shares: []split.Share{
				{UserId: f.users[0], Amount: 10},
				{UserId: f.users[2], Amount: 30},
			},
		})

		// then
		assert.ErrorIs(t, err, ErrInvalidActivity)
		activities, err := f.service.ListActivities(f.ctx, trip.Id)
		require.NoError(t, err)
		assert.Empty(t, activities)
	})

	t.Run("should split equally giving remainder to payer and update aggregates", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		var events []event_bus.ActivityRecorded
		event_bus.SubscribeTyped(f.bus, event_bus.TripActivityRecorded, func(e event_bus.EventT[event_bus.ActivityRecorded]) error {
			events = append(events, e.Data)
			return nil
		})

		// when
		activity, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
			Name:       "Hotel",
			TotalMoney: 100,
			PayerId:    f.users[1],
		})

		// then
		require.NoError(t, err)
		require.Len(t, activity.Participants, 3)
		assert.InDelta(t, 33.33, activity.Participants[0].TotalMoneyPerUser, 1e-9)
		assert.InDelta(t, 33.34, activity.Participants[1].TotalMoneyPerUser, 1e-9)
		assert.InDelta(t, 33.33, activity.Participants[2].TotalMoneyPerUser, 1e-9)

		stored, err := f.service.GetTrip(f.ctx, trip.Id)
		require.NoError(t, err)
		require.Len(t, stored.Payers, 1)
		assert.Equal(t, Payer{UserId: f.users[1], SpentMoney: 100}, stored.Payers[0])
		p, _ := stored.Participant(f.users[0])
		assert.InDelta(t, 33.33, p.TotalMoneyPerUser, 1e-9)
		assert.False(t, p.IsPaid)

		require.Len(t, events, 1)
		assert.Equal(t, activity.Id, events[0].ActivityId)
	})

	t.Run("should accept explicit shares", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		activity, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
			Name:       "Taxi",
			TotalMoney: 50,
			PayerId:    f.users[0],
			Shares:     []split.Share{{UserId: f.users[0], Amount: 10}, {UserId: f.users[2], Amount: 40}},
		})

		require.NoError(t, err)
		assert.Equal(t, []ActivityParticipant{
			{UserId: f.users[0], TotalMoneyPerUser: 10},
			{UserId: f.users[2], TotalMoneyPerUser: 40},
		}, activity.Participants)
	})

	t.Run("should reject payer or participant outside the trip", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "x", TotalMoney: 10, PayerId: 999})
		assert.ErrorIs(t, err, ErrUnknownParticipant)

		_, err = f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
			Name: "x", TotalMoney: 10, PayerId: f.users[0], Participants: []int{f.users[0], 999},
		})
		assert.ErrorIs(t, err, ErrUnknownParticipant)
	})

	t.Run("should reject shares that do not add up", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
			Name: "x", TotalMoney: 10, PayerId: f.users[0],
			Shares: []split.Share{{UserId: f.users[0], Amount: 4}, {UserId: f.users[1], Amount: 4}},
		})
		assert.ErrorIs(t, err, split.ErrInvalidSplit)
	})
}

func TestService_UpdateAndDeleteActivity(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	trip := f.startedTrip(t)
	activity, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Lunch", TotalMoney: 90, PayerId: f.users[0]})
	require.NoError(t, err)

	// when
	updated, err := f.service.UpdateActivity(f.ctx, trip.Id, activity.Id, ActivityInput{
		Name: "Lunch", TotalMoney: 60, PayerId: f.users[2], Participants: []int{f.users[1], f.users[2]},
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, activity.Id, updated.Id)
	stored, err := f.service.GetTrip(f.ctx, trip.Id)
	require.NoError(t, err)
	assert.Equal(t, []Payer{{UserId: f.users[2], SpentMoney: 60}}, stored.Payers)
	first, _ := stored.Participant(f.users[0])
	assert.Zero(t, first.TotalMoneyPerUser)
	assert.True(t, first.IsPaid)
	second, _ := stored.Participant(f.users[1])
	assert.InDelta(t, 30, second.TotalMoneyPerUser, 1e-9)

	// when
	require.NoError(t, f.service.DeleteActivity(f.ctx, trip.Id, activity.Id))

	// then
	stored, err = f.service.GetTrip(f.ctx, trip.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.Payers)
	for _, p := range stored.Participants {
		assert.Zero(t, p.TotalMoneyPerUser)
	}
	assert.ErrorIs(t, f.service.DeleteActivity(f.ctx, trip.Id, activity.Id), ErrActivityNotFound)
}

func TestService_RecordPayment(t *testing.T) {
	t.Run("should increment paid amount and flip isPaid once covered", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Boat", TotalMoney: 90, PayerId: f.users[0]})
		require.NoError(t, err)

		// when
		_, participant, err := f.service.RecordPayment(f.ctx, trip.Id, f.users[1], 20, "first half")
		require.NoError(t, err)

		// then
		assert.InDelta(t, 20, participant.PaidAmount, 1e-9)
		assert.False(t, participant.IsPaid)

		// when
		payment, participant, err := f.service.RecordPayment(f.ctx, trip.Id, f.users[1], 10, "")
		require.NoError(t, err)

		// then
		assert.True(t, participant.IsPaid)
		assert.Equal(t, now, payment.PaymentDate)
		stored, err := f.service.GetTrip(f.ctx, trip.Id)
		require.NoError(t, err)
		assert.Len(t, stored.PaymentHistory, 2)
		assert.Equal(t, payment.Id, stored.PaymentHistory[1])
	})

	t.Run("should store refund as negative payment", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		payment, participant, err := f.service.RecordRefund(f.ctx, trip.Id, f.users[0], 25, "overpaid")

		require.NoError(t, err)
		assert.Equal(t, -25.0, payment.Amount)
		assert.Equal(t, "Refund: overpaid", payment.Note)
		assert.InDelta(t, -25, participant.PaidAmount, 1e-9)
	})

	t.Run("should reject invalid payments", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)

		_, _, err := f.service.RecordPayment(f.ctx, trip.Id, f.users[0], 0, "")
		assert.ErrorIs(t, err, ErrInvalidPayment)
		_, _, err = f.service.RecordRefund(f.ctx, trip.Id, f.users[0], -5, "")
		assert.ErrorIs(t, err, ErrInvalidPayment)
		_, _, err = f.service.RecordPayment(f.ctx, trip.Id, 999, 10, "")
		assert.ErrorIs(t, err, ErrUnknownParticipant)
		_, _, err = f.service.RecordPayment(f.ctx, "missing", f.users[0], 10, "")
		assert.ErrorIs(t, err, ErrTripNotFound)
	})

	t.Run("should publish payment event", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		var got []event_bus.PaymentRecorded
		event_bus.SubscribeTyped(f.bus, event_bus.TripPaymentRecorded, func(e event_bus.EventT[event_bus.PaymentRecorded]) error {
			got = append(got, e.Data)
			return errors.New("subscriber failure is not the caller's problem")
		})

		payment, _, err := f.service.RecordPayment(f.ctx, trip.Id, f.users[2], 5, "")

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, payment.Id, got[0].PaymentId)
		assert.True(t, got[0].IsPaid)
	})
}

func TestService_GetSettlement(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	trip := f.startedTrip(t)
	_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Hotel", TotalMoney: 100, PayerId: f.users[1]})
	require.NoError(t, err)
	_, err = f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{
		Name: "Dinner", TotalMoney: 45, PayerId: f.users[0], Participants: []int{f.users[0], f.users[2]},
	})
	require.NoError(t, err)
	_, _, err = f.service.RecordPayment(f.ctx, trip.Id, f.users[2], 30, "")
	require.NoError(t, err)

	// when
	settlement, err := f.service.GetSettlement(f.ctx, trip.Id)

	// then
	require.NoError(t, err)
	assert.False(t, settlement.Settled)
	require.Len(t, settlement.Balances, 3)
	// activity totals equal payer spending, so balances sum to minus the payments
	total := 0.0
	for _, b := range settlement.Balances {
		total += b.Balance
	}
	assert.InDelta(t, -30, total, 1e-6)
	assert.NotEmpty(t, settlement.NeedToPay)
	assert.NotEmpty(t, settlement.NeedRefund)
	assert.NotEmpty(t, settlement.Transfers)
}

func TestService_AdvanceStatus(t *testing.T) {
	t.Run("should refuse ending an unsettled trip", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Hotel", TotalMoney: 90, PayerId: f.users[0]})
		require.NoError(t, err)

		// when
		_, err = f.service.AdvanceStatus(f.ctx, trip.Id, false)

		// then
		var unsettled *UnsettledError
		require.ErrorAs(t, err, &unsettled)
		assert.Len(t, unsettled.Balances, 3)
		stored, _ := f.service.GetTrip(f.ctx, trip.Id)
		assert.Equal(t, OnGoing, stored.Status)
	})

	t.Run("should end a trip once everyone settled", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Hotel", TotalMoney: 90, PayerId: f.users[0]})
		require.NoError(t, err)
		for _, id := range f.users[1:] {
			_, _, err := f.service.RecordPayment(f.ctx, trip.Id, id, 30, "")
			require.NoError(t, err)
		}
		_, _, err = f.service.RecordRefund(f.ctx, trip.Id, f.users[0], 60, "settle")
		require.NoError(t, err)

		// when
		ended, err := f.service.AdvanceStatus(f.ctx, trip.Id, false)

		// then
		require.NoError(t, err)
		assert.Equal(t, Ended, ended.Status)

		_, err = f.service.AdvanceStatus(f.ctx, trip.Id, false)
		assert.ErrorIs(t, err, ErrTripEnded)
		_, _, err = f.service.RecordPayment(f.ctx, trip.Id, f.users[1], 1, "")
		assert.ErrorIs(t, err, ErrTripNotActive)
	})

	t.Run("should force end and report it", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Hotel", TotalMoney: 90, PayerId: f.users[0]})
		require.NoError(t, err)
		var got []event_bus.TripStatusUpdated
		event_bus.SubscribeTyped(f.bus, event_bus.TripStatusChanged, func(e event_bus.EventT[event_bus.TripStatusUpdated]) error {
			got = append(got, e.Data)
			return nil
		})

		// when
		ended, err := f.service.AdvanceStatus(f.ctx, trip.Id, true)

		// then
		require.NoError(t, err)
		assert.Equal(t, Ended, ended.Status)
		require.Len(t, got, 1)
		assert.Equal(t, event_bus.TripStatusUpdated{TripId: trip.Id, From: "on-going", To: "ended", Forced: true, At: now}, got[0])
	})

	t.Run("should refuse ending when an activity lands before the status write", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		racing := &racingRepository{StubRepository: repoStub}
		f.service.repo = racing
		racing.beforeEnd = func() {
			_, err := f.service.RecordActivity(f.ctx, trip.Id, ActivityInput{Name: "Hotel", TotalMoney: 90, PayerId: f.users[0]})
			require.NoError(t, err)
		}

		// when
		_, err := f.service.AdvanceStatus(f.ctx, trip.Id, false)

		// then
		var unsettled *UnsettledError
		require.ErrorAs(t, err, &unsettled)
		assert.Len(t, unsettled.Balances, 3)
		stored, _ := f.service.GetTrip(f.ctx, trip.Id)
		assert.Equal(t, OnGoing, stored.Status)
		settlement, err := f.service.GetSettlement(f.ctx, trip.Id)
		require.NoError(t, err)
		assert.False(t, settlement.Settled)
	})

	t.Run("should reopen an ended trip", func(t *testing.T) {
		f, teardown := setup(t)
		defer teardown()
		trip := f.startedTrip(t)
		_, err := f.service.ReopenTrip(f.ctx, trip.Id)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = f.service.AdvanceStatus(f.ctx, trip.Id, false)
		require.NoError(t, err)

		// when
		reopened, err := f.service.ReopenTrip(f.ctx, trip.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, OnGoing, reopened.Status)
	})
}

// racingRepository runs beforeEnd ahead of the status write that ends a trip.
type racingRepository struct {
	*StubRepository
	beforeEnd func()
}

func (r *racingRepository) UpdateStatus(ctx context.Context, tripId string, from Status, to Status, guard StatusGuard) error {
	if to == Ended && r.beforeEnd != nil {
		r.beforeEnd()
	}
	return r.StubRepository.UpdateStatus(ctx, tripId, from, to, guard)
}
