package user

import (
	"context"
	"sort"
	"sync"
)

type StubUserRepository struct {
	mu     sync.Mutex
	nextId int
	data   map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{nextId: 2, data: map[int]User{}}
}

func (s *StubUserRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId = 2
	s.data = map[int]User{}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data {
		if u.Uid == uid {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) UpdateUser(ctx context.Context, userId int, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.data[userId]
	if !ok {
		return User{}, ErrUserNotFound
	}
	stored.DisplayName = user.DisplayName
	s.data[userId] = stored
	return stored, nil
}

func (s *StubUserRepository) DeleteUser(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *StubUserRepository) GetAllUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]User, 0, len(s.data))
	for _, user := range s.data {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
	return users, nil
}

func (s *StubUserRepository) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data {
		if u.Username == username {
			return false, nil
		}
	}
	return true, nil
}

func (s *StubUserRepository) UpdateSalary(ctx context.Context, userId int, salary *float64) error {
	return s.update(userId, func(u *User) { u.Salary = salary })
}

func (s *StubUserRepository) UpdatePayday(ctx context.Context, userId int, payday *int) error {
	return s.update(userId, func(u *User) { u.Payday = payday })
}

func (s *StubUserRepository) UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error {
	return s.update(userId, func(u *User) { u.DailyAllowance = allowance })
}

func (s *StubUserRepository) update(userId int, fn func(u *User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[userId]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	s.data[userId] = u
	return nil
}
