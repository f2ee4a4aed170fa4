package trip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/internal/metrics"
	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/adamkim-dev/tripsaver/pkg/ledger"
	"github.com/adamkim-dev/tripsaver/pkg/split"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const refundNotePrefix = "Refund: "

type Service interface {
	CreateTrip(ctx context.Context, trip Trip) (Trip, error)
	GetTrip(ctx context.Context, tripId string) (Trip, error)
	// ListTrips returns the current user's trips, newest date first.
	ListTrips(ctx context.Context) ([]Trip, error)
	UpdateTrip(ctx context.Context, tripId string, name string, date time.Time) (Trip, error)
	DeleteTrip(ctx context.Context, tripId string) error

	ListActivities(ctx context.Context, tripId string) ([]Activity, error)
	RecordActivity(ctx context.Context, tripId string, input ActivityInput) (Activity, error)
	UpdateActivity(ctx context.Context, tripId string, activityId string, input ActivityInput) (Activity, error)
	DeleteActivity(ctx context.Context, tripId string, activityId string) error

	ListPayments(ctx context.Context, tripId string) ([]Payment, error)
	RecordPayment(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error)
	// RecordRefund stores a payment of -amount for a participant the trip owes money to.
	RecordRefund(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error)

	GetSettlement(ctx context.Context, tripId string) (Settlement, error)
	// AdvanceStatus moves the trip one step forward. Ending requires a settled ledger unless force is set.
	AdvanceStatus(ctx context.Context, tripId string, force bool) (Trip, error)
	ReopenTrip(ctx context.Context, tripId string) (Trip, error)
}

// ActivityInput describes a new or edited activity. When Shares is empty the
// total is split equally between Participants, or all trip participants if
// none are named. Shares and Participants cannot be combined.
type ActivityInput struct {
	Name         string
	TotalMoney   float64
	PayerId      int
	Participants []int
	Shares       []split.Share
}

type Settlement struct {
	TripId     string
	Status     Status
	Settled    bool
	Balances   []ledger.Entry
	NeedToPay  []ledger.Entry
	NeedRefund []ledger.Entry
	Transfers  []ledger.Transfer
}

type ServiceImpl struct {
	repo     Repository
	users    user.Provider
	eventBus *event_bus.EventBus
	metrics  *metrics.Metrics
	clock    utils.Clock
}

func NewTripService(repo Repository, users user.Provider, eventBus *event_bus.EventBus, m *metrics.Metrics, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, users: users, eventBus: eventBus, metrics: m, clock: clock}
}

func (s *ServiceImpl) CreateTrip(ctx context.Context, trip Trip) (Trip, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Trip{}, fmt.Errorf("failed to get current user: %w", err)
	}
	trip.Name = strings.TrimSpace(trip.Name)
	if trip.Name == "" {
		return Trip{}, fmt.Errorf("%w: name is required", ErrInvalidTrip)
	}
	if trip.Date.IsZero() {
		return Trip{}, fmt.Errorf("%w: date is required", ErrInvalidTrip)
	}
	if len(trip.Participants) == 0 {
		return Trip{}, fmt.Errorf("%w: at least one participant is required", ErrInvalidTrip)
	}
	seen := map[int]bool{}
	for _, p := range trip.Participants {
		if seen[p.UserId] {
			return Trip{}, fmt.Errorf("%w: participant %d listed twice", ErrInvalidTrip, p.UserId)
		}
		seen[p.UserId] = true
		if _, err := s.users.GetUser(ctx, p.UserId); err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return Trip{}, fmt.Errorf("%w: participant %d does not exist", ErrInvalidTrip, p.UserId)
			}
			return Trip{}, err
		}
	}
	if trip.Status == "" {
		trip.Status = Planned
	}
	if trip.Status == Ended {
		return Trip{}, fmt.Errorf("%w: a trip cannot be created as ended", ErrInvalidTrip)
	}

	trip.Id = uuid.NewString()
	trip.Date = utils.DateOf(trip.Date)
	trip.CreatedBy = userId
	created, err := s.repo.CreateTrip(ctx, trip)
	if err != nil {
		return Trip{}, err
	}
	log.Infof("trip %s created by user %d with %d participants", created.Id, userId, len(created.Participants))
	return created, nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, tripId string) (Trip, error) {
	return s.repo.GetTrip(ctx, tripId)
}

func (s *ServiceImpl) ListTrips(ctx context.Context) ([]Trip, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListTrips(ctx, userId)
}

func (s *ServiceImpl) UpdateTrip(ctx context.Context, tripId string, name string, date time.Time) (Trip, error) {
	current, err := s.repo.GetTrip(ctx, tripId)
	if err != nil {
		return Trip{}, err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = current.Name
	}
	if date.IsZero() {
		date = current.Date
	}
	if err := s.repo.UpdateTrip(ctx, tripId, name, utils.DateOf(date)); err != nil {
		return Trip{}, err
	}
	return s.repo.GetTrip(ctx, tripId)
}

func (s *ServiceImpl) DeleteTrip(ctx context.Context, tripId string) error {
	if err := s.repo.DeleteTrip(ctx, tripId); err != nil {
		return err
	}
	log.Infof("trip %s deleted", tripId)
	return nil
}

func (s *ServiceImpl) ListActivities(ctx context.Context, tripId string) ([]Activity, error) {
	if _, err := s.repo.GetTrip(ctx, tripId); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, tripId)
}

func (s *ServiceImpl) RecordActivity(ctx context.Context, tripId string, input ActivityInput) (Activity, error) {
	trip, err := s.activeTrip(ctx, tripId)
	if err != nil {
		return Activity{}, err
	}
	activity, err := buildActivity(trip, input)
	if err != nil {
		return Activity{}, err
	}
	activity.Id = uuid.NewString()

	stored, err := s.repo.StoreActivity(ctx, activity)
	if err != nil {
		return Activity{}, err
	}
	s.metrics.ActivityRecorded()
	s.publish(ctx, event_bus.TripActivityRecorded, event_bus.ActivityRecorded{
		TripId:     tripId,
		ActivityId: stored.Id,
		PayerId:    stored.PayerId,
		TotalMoney: stored.TotalMoney,
	})
	return stored, nil
}

func (s *ServiceImpl) UpdateActivity(ctx context.Context, tripId string, activityId string, input ActivityInput) (Activity, error) {
	trip, err := s.activeTrip(ctx, tripId)
	if err != nil {
		return Activity{}, err
	}
	if _, err := s.repo.GetActivity(ctx, tripId, activityId); err != nil {
		return Activity{}, err
	}
	activity, err := buildActivity(trip, input)
	if err != nil {
		return Activity{}, err
	}
	activity.Id = activityId
	return s.repo.UpdateActivity(ctx, activity)
}

func (s *ServiceImpl) DeleteActivity(ctx context.Context, tripId string, activityId string) error {
	if _, err := s.activeTrip(ctx, tripId); err != nil {
		return err
	}
	return s.repo.DeleteActivity(ctx, tripId, activityId)
}

func buildActivity(trip Trip, input ActivityInput) (Activity, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Activity{}, fmt.Errorf("%w: name is required", ErrInvalidActivity)
	}
	if !trip.HasParticipant(input.PayerId) {
		return Activity{}, fmt.Errorf("%w: payer %d", ErrUnknownParticipant, input.PayerId)
	}

	if len(input.Shares) > 0 && len(input.Participants) > 0 {
		return Activity{}, fmt.Errorf("%w: give either shares or participants, not both", ErrInvalidActivity)
	}
	participants := input.Participants
	if len(participants) == 0 && len(input.Shares) == 0 {
		participants = trip.ParticipantIds()
	}
	shares, err := split.Split(split.Request{
		TotalMoney:   input.TotalMoney,
		PayerId:      input.PayerId,
		Participants: participants,
		Explicit:     input.Shares,
	})
	if err != nil {
		return Activity{}, err
	}

	activity := Activity{
		TripId:       trip.Id,
		Name:         name,
		TotalMoney:   input.TotalMoney,
		PayerId:      input.PayerId,
		Participants: make([]ActivityParticipant, 0, len(shares)),
	}
	for _, share := range shares {
		if !trip.HasParticipant(share.UserId) {
			return Activity{}, fmt.Errorf("%w: user %d", ErrUnknownParticipant, share.UserId)
		}
		activity.Participants = append(activity.Participants, ActivityParticipant{
			UserId:            share.UserId,
			TotalMoneyPerUser: share.Amount,
		})
	}
	return activity, nil
}

func (s *ServiceImpl) ListPayments(ctx context.Context, tripId string) ([]Payment, error) {
	if _, err := s.repo.GetTrip(ctx, tripId); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, tripId)
}

func (s *ServiceImpl) RecordPayment(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error) {
	if err := validateAmount(amount); err != nil {
		return Payment{}, Participant{}, err
	}
	return s.appendPayment(ctx, tripId, userId, amount, strings.TrimSpace(note))
}

func (s *ServiceImpl) RecordRefund(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error) {
	if err := validateAmount(amount); err != nil {
		return Payment{}, Participant{}, err
	}
	return s.appendPayment(ctx, tripId, userId, -amount, refundNotePrefix+strings.TrimSpace(note))
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidPayment)
	}
	return nil
}

func (s *ServiceImpl) appendPayment(ctx context.Context, tripId string, userId int, amount float64, note string) (Payment, Participant, error) {
	trip, err := s.activeTrip(ctx, tripId)
	if err != nil {
		return Payment{}, Participant{}, err
	}
	if !trip.HasParticipant(userId) {
		return Payment{}, Participant{}, fmt.Errorf("%w: user %d", ErrUnknownParticipant, userId)
	}

	payment := Payment{
		Id:          uuid.NewString(),
		TripId:      tripId,
		UserId:      userId,
		Amount:      amount,
		PaymentDate: s.clock.Now(),
		Note:        note,
	}
	participant, err := s.repo.AppendPayment(ctx, payment)
	if err != nil {
		return Payment{}, Participant{}, err
	}
	s.metrics.PaymentRecorded(amount)
	s.publish(ctx, event_bus.TripPaymentRecorded, event_bus.PaymentRecorded{
		TripId:    tripId,
		PaymentId: payment.Id,
		UserId:    userId,
		Amount:    amount,
		IsPaid:    participant.IsPaid,
	})
	return payment, participant, nil
}

func (s *ServiceImpl) GetSettlement(ctx context.Context, tripId string) (Settlement, error) {
	trip, l, err := s.ledger(ctx, tripId)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		TripId:     trip.Id,
		Status:     trip.Status,
		Settled:    l.IsSettled(),
		Balances:   l.Entries,
		NeedToPay:  l.NeedToPay(),
		NeedRefund: l.NeedRefund(),
		Transfers:  l.SuggestTransfers(),
	}, nil
}

func (s *ServiceImpl) ledger(ctx context.Context, tripId string) (Trip, ledger.Ledger, error) {
	trip, err := s.repo.GetTrip(ctx, tripId)
	if err != nil {
		return Trip{}, ledger.Ledger{}, err
	}
	activities, err := s.repo.ListActivities(ctx, tripId)
	if err != nil {
		return Trip{}, ledger.Ledger{}, err
	}
	payments, err := s.repo.ListPayments(ctx, tripId)
	if err != nil {
		return Trip{}, ledger.Ledger{}, err
	}
	return trip, Ledger(trip, activities, payments), nil
}

func (s *ServiceImpl) AdvanceStatus(ctx context.Context, tripId string, force bool) (Trip, error) {
	trip, err := s.repo.GetTrip(ctx, tripId)
	if err != nil {
		return Trip{}, err
	}
	next, err := NextStatus(trip.Status)
	if err != nil {
		return Trip{}, err
	}

	// The ledger is evaluated under the trip lock so a write racing the
	// status change cannot end a trip with open balances.
	var l ledger.Ledger
	guard := func(locked Trip, activities []Activity, payments []Payment) error {
		l = Ledger(locked, activities, payments)
		return CheckTransition(locked.Status, next, l, force)
	}
	if err := s.repo.UpdateStatus(ctx, tripId, trip.Status, next, guard); err != nil {
		return Trip{}, err
	}

	forced := next == Ended && force && !l.IsSettled()
	if forced {
		log.Warnf("trip %s force-ended with %d unsettled participant(s)", tripId, len(l.Unsettled()))
	} else {
		log.Infof("trip %s moved from %s to %s", tripId, trip.Status, next)
	}
	s.statusChanged(ctx, tripId, trip.Status, next, forced)
	return s.repo.GetTrip(ctx, tripId)
}

func (s *ServiceImpl) ReopenTrip(ctx context.Context, tripId string) (Trip, error) {
	trip, err := s.repo.GetTrip(ctx, tripId)
	if err != nil {
		return Trip{}, err
	}
	if trip.Status != Ended {
		return Trip{}, fmt.Errorf("%w: only ended trips can be reopened, trip is %s", ErrInvalidTransition, trip.Status)
	}
	if err := s.repo.UpdateStatus(ctx, tripId, Ended, OnGoing, nil); err != nil {
		return Trip{}, err
	}
	log.Infof("trip %s reopened", tripId)
	s.statusChanged(ctx, tripId, Ended, OnGoing, false)
	return s.repo.GetTrip(ctx, tripId)
}

func (s *ServiceImpl) statusChanged(ctx context.Context, tripId string, from, to Status, forced bool) {
	s.metrics.TripStatusChanged(string(to), forced)
	s.publish(ctx, event_bus.TripStatusChanged, event_bus.TripStatusUpdated{
		TripId: tripId,
		From:   string(from),
		To:     string(to),
		Forced: forced,
		At:     s.clock.Now(),
	})
}

// activeTrip is a fast pre-check. The repository repeats it under the trip lock.
func (s *ServiceImpl) activeTrip(ctx context.Context, tripId string) (Trip, error) {
	trip, err := s.repo.GetTrip(ctx, tripId)
	if err != nil {
		return Trip{}, err
	}
	if trip.Status != OnGoing {
		return Trip{}, fmt.Errorf("%w: trip %s is %s", ErrTripNotActive, tripId, trip.Status)
	}
	return trip, nil
}

// publish notifies subscribers after the write is committed, so a failing
// subscriber cannot undo it and is only logged.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}
