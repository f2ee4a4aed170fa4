package trip

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// StubRepository keeps trips in memory with the same aggregate rules as RepositoryImpl.
type StubRepository struct {
	mu         sync.Mutex
	trips      map[string]Trip
	activities map[string][]Activity
	payments   map[string][]Payment
}

func NewStubRepository() *StubRepository {
	s := &StubRepository{}
	s.Cleanup()
	return s
}

func (s *StubRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = map[string]Trip{}
	s.activities = map[string][]Activity{}
	s.payments = map[string][]Payment{}
}

func (s *StubRepository) CreateTrip(ctx context.Context, trip Trip) (Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip.Participants = slices.Clone(trip.Participants)
	for i := range trip.Participants {
		trip.Participants[i] = Participant{UserId: trip.Participants[i].UserId, IsPaid: true}
	}
	trip.Payers = nil
	trip.PaymentHistory = nil
	s.trips[trip.Id] = trip
	return cloneTrip(trip), nil
}

func (s *StubRepository) GetTrip(ctx context.Context, tripId string) (Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripId]
	if !ok {
		return Trip{}, ErrTripNotFound
	}
	return cloneTrip(t), nil
}

func (s *StubRepository) ListTrips(ctx context.Context, userId int) ([]Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var trips []Trip
	for _, t := range s.trips {
		if t.CreatedBy == userId || t.HasParticipant(userId) {
			trips = append(trips, cloneTrip(t))
		}
	}
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].Date.Equal(trips[j].Date) {
			return trips[i].Id < trips[j].Id
		}
		return trips[i].Date.After(trips[j].Date)
	})
	return trips, nil
}

func (s *StubRepository) UpdateTrip(ctx context.Context, tripId string, name string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripId]
	if !ok {
		return ErrTripNotFound
	}
	t.Name = name
	t.Date = date
	s.trips[tripId] = t
	return nil
}

func (s *StubRepository) DeleteTrip(ctx context.Context, tripId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[tripId]; !ok {
		return ErrTripNotFound
	}
	delete(s.trips, tripId)
	delete(s.activities, tripId)
	delete(s.payments, tripId)
	return nil
}

func (s *StubRepository) UpdateStatus(ctx context.Context, tripId string, from Status, to Status, guard StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripId]
	if !ok {
		return ErrTripNotFound
	}
	if t.Status != from {
		return fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, t.Status)
	}
	if guard != nil {
		activities := make([]Activity, 0, len(s.activities[tripId]))
		for _, a := range s.activities[tripId] {
			activities = append(activities, cloneActivity(a))
		}
		if err := guard(cloneTrip(t), activities, slices.Clone(s.payments[tripId])); err != nil {
			return err
		}
	}
	t.Status = to
	s.trips[tripId] = t
	return nil
}

func (s *StubRepository) ListActivities(ctx context.Context, tripId string) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Activity, 0, len(s.activities[tripId]))
	for _, a := range s.activities[tripId] {
		out = append(out, cloneActivity(a))
	}
	return out, nil
}

func (s *StubRepository) GetActivity(ctx context.Context, tripId string, activityId string) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.activities[tripId] {
		if a.Id == activityId {
			return cloneActivity(a), nil
		}
	}
	return Activity{}, ErrActivityNotFound
}

func (s *StubRepository) StoreActivity(ctx context.Context, activity Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActive(activity.TripId); err != nil {
		return Activity{}, err
	}
	now := time.Now()
	activity = cloneActivity(activity)
	activity.CreatedAt, activity.UpdatedAt = now, now
	s.activities[activity.TripId] = append(s.activities[activity.TripId], activity)
	s.refreshAggregates(activity.TripId)
	return cloneActivity(activity), nil
}

func (s *StubRepository) UpdateActivity(ctx context.Context, activity Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActive(activity.TripId); err != nil {
		return Activity{}, err
	}
	list := s.activities[activity.TripId]
	idx := slices.IndexFunc(list, func(a Activity) bool { return a.Id == activity.Id })
	if idx < 0 {
		return Activity{}, ErrActivityNotFound
	}
	activity = cloneActivity(activity)
	activity.CreatedAt = list[idx].CreatedAt
	activity.UpdatedAt = time.Now()
	list[idx] = activity
	s.refreshAggregates(activity.TripId)
	return cloneActivity(activity), nil
}

func (s *StubRepository) DeleteActivity(ctx context.Context, tripId string, activityId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActive(tripId); err != nil {
		return err
	}
	list := s.activities[tripId]
	idx := slices.IndexFunc(list, func(a Activity) bool { return a.Id == activityId })
	if idx < 0 {
		return ErrActivityNotFound
	}
	s.activities[tripId] = slices.Delete(list, idx, idx+1)
	s.refreshAggregates(tripId)
	return nil
}

func (s *StubRepository) ListPayments(ctx context.Context, tripId string) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.payments[tripId]), nil
}

func (s *StubRepository) AppendPayment(ctx context.Context, payment Payment) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActive(payment.TripId); err != nil {
		return Participant{}, err
	}
	t := s.trips[payment.TripId]
	idx := slices.IndexFunc(t.Participants, func(p Participant) bool { return p.UserId == payment.UserId })
	if idx < 0 {
		return Participant{}, fmt.Errorf("%w: user %d", ErrUnknownParticipant, payment.UserId)
	}
	p := &t.Participants[idx]
	p.PaidAmount += payment.Amount
	p.IsPaid = p.PaidAmount >= p.TotalMoneyPerUser
	t.PaymentHistory = append(t.PaymentHistory, payment.Id)
	s.trips[payment.TripId] = t
	s.payments[payment.TripId] = append(s.payments[payment.TripId], payment)
	return *p, nil
}

func (s *StubRepository) checkActive(tripId string) error {
	t, ok := s.trips[tripId]
	if !ok {
		return ErrTripNotFound
	}
	if t.Status != OnGoing {
		return fmt.Errorf("%w: trip %s is %s", ErrTripNotActive, tripId, t.Status)
	}
	return nil
}

func (s *StubRepository) refreshAggregates(tripId string) {
	t := s.trips[tripId]
	owed := map[int]float64{}
	spent := map[int]float64{}
	for _, a := range s.activities[tripId] {
		spent[a.PayerId] += a.TotalMoney
		for _, p := range a.Participants {
			owed[p.UserId] += p.TotalMoneyPerUser
		}
	}
	for i := range t.Participants {
		p := &t.Participants[i]
		p.TotalMoneyPerUser = owed[p.UserId]
		p.IsPaid = p.PaidAmount >= p.TotalMoneyPerUser
	}
	t.Payers = t.Payers[:0]
	for userId, amount := range spent {
		t.Payers = append(t.Payers, Payer{UserId: userId, SpentMoney: amount})
	}
	sort.Slice(t.Payers, func(i, j int) bool { return t.Payers[i].UserId < t.Payers[j].UserId })
	s.trips[tripId] = t
}

func cloneTrip(t Trip) Trip {
	t.Participants = slices.Clone(t.Participants)
	t.Payers = slices.Clone(t.Payers)
	t.PaymentHistory = slices.Clone(t.PaymentHistory)
	return t
}

func cloneActivity(a Activity) Activity {
	a.Participants = slices.Clone(a.Participants)
	return a
}
