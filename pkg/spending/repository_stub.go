package spending

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adamkim-dev/tripsaver/internal/utils"
)

type stubKey struct {
	userId int
	date   string
}

type StubRepository struct {
	mu   sync.Mutex
	logs map[stubKey]DailySpendingLog
}

func NewStubRepository() *StubRepository {
	return &StubRepository{logs: map[stubKey]DailySpendingLog{}}
}

func (s *StubRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = map[stubKey]DailySpendingLog{}
}

func key(userId int, date time.Time) stubKey {
	return stubKey{userId: userId, date: date.Format(utils.DateLayout)}
}

func (s *StubRepository) Upsert(ctx context.Context, entry DailySpendingLog) (DailySpendingLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(entry.UserId, entry.Date)
	if existing, ok := s.logs[k]; ok {
		entry.Id = existing.Id
	}
	s.logs[k] = entry
	return entry, nil
}

func (s *StubRepository) Get(ctx context.Context, userId int, date time.Time) (DailySpendingLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.logs[key(userId, date)]
	if !ok {
		return DailySpendingLog{}, ErrNotFound
	}
	return entry, nil
}

func (s *StubRepository) List(ctx context.Context, userId int, from, to time.Time) ([]DailySpendingLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DailySpendingLog
	for _, entry := range s.logs {
		if entry.UserId == userId && !entry.Date.Before(from) && !entry.Date.After(to) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *StubRepository) Delete(ctx context.Context, userId int, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userId, date)
	if _, ok := s.logs[k]; !ok {
		return ErrNotFound
	}
	delete(s.logs, k)
	return nil
}

func (s *StubRepository) SumBetween(ctx context.Context, userId int, from, until time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, entry := range s.logs {
		if entry.UserId == userId && !entry.Date.Before(from) && entry.Date.Before(until) {
			total += entry.AmountSpent
		}
	}
	return total, nil
}
