package user

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/adamkim-dev/tripsaver/internal/event_bus"
	"github.com/adamkim-dev/tripsaver/pkg/payday"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id int) error
	GetAllUsers(ctx context.Context) ([]User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	// UpdateSalary sets or clears (nil) the current user's monthly salary.
	UpdateSalary(ctx context.Context, salary *float64) (User, error)
	// UpdatePayday sets or clears (nil) the current user's payday.
	UpdatePayday(ctx context.Context, day *int) (User, error)
	UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error
}

// Provider is the narrow read side other packages depend on.
type Provider interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
}

type UserServiceImpl struct {
	repo     Repo
	eventBus *event_bus.EventBus
}

func NewUserService(repo Repo, eventBus *event_bus.EventBus) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, eventBus: eventBus}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.GetUser(ctx, userId)
}

func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	user.Username = strings.TrimSpace(user.Username)
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.Username == "" || user.DisplayName == "" {
		return User{}, fmt.Errorf("%w: username and display name are required", ErrUserDataInvalid)
	}
	if err := validateBudgetInputs(user.Salary, user.Payday); err != nil {
		return User{}, err
	}
	available, err := u.repo.IsUsernameAvailable(ctx, user.Username)
	if err != nil {
		return User{}, err
	}
	if !available {
		return User{}, fmt.Errorf("%w: username %q is taken", ErrUserDataInvalid, user.Username)
	}
	if user.Uid == "" {
		user.Uid = uuid.NewString()
	}

	userId, err := u.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.Id = userId
	return user, nil
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) UpdateUser(ctx context.Context, user User) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if strings.TrimSpace(user.DisplayName) == "" {
		return User{}, fmt.Errorf("%w: display name is required", ErrUserDataInvalid)
	}
	return u.repo.UpdateUser(ctx, userId, user)
}

func (u *UserServiceImpl) DeleteUser(ctx context.Context, id int) error {
	return u.repo.DeleteUser(ctx, id)
}

func (u *UserServiceImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	return u.repo.GetAllUsers(ctx)
}

func (u *UserServiceImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	return u.repo.IsUsernameAvailable(ctx, username)
}

func (u *UserServiceImpl) UpdateSalary(ctx context.Context, salary *float64) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validateBudgetInputs(salary, nil); err != nil {
		return User{}, err
	}
	if err := u.repo.UpdateSalary(ctx, userId, salary); err != nil {
		return User{}, err
	}
	u.publishInputsChanged(ctx, userId)
	return u.repo.GetUser(ctx, userId)
}

func (u *UserServiceImpl) UpdatePayday(ctx context.Context, day *int) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validateBudgetInputs(nil, day); err != nil {
		return User{}, err
	}
	if err := u.repo.UpdatePayday(ctx, userId, day); err != nil {
		return User{}, err
	}
	u.publishInputsChanged(ctx, userId)
	return u.repo.GetUser(ctx, userId)
}

func (u *UserServiceImpl) UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error {
	return u.repo.UpdateDailyAllowance(ctx, userId, allowance)
}

// publishInputsChanged lets the planner refresh the cached allowance. The new
// salary or payday is already stored, so a failing subscriber is only logged.
func (u *UserServiceImpl) publishInputsChanged(ctx context.Context, userId int) {
	if u.eventBus == nil {
		return
	}
	err := u.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.BudgetInputsChanged,
		event_bus.UserBudgetInputsChanged{UserId: userId}))
	if err != nil {
		log.Warnf("budget inputs of user %d changed but subscribers failed: %v", userId, err)
	}
}

func validateBudgetInputs(salary *float64, day *int) error {
	if salary != nil && (math.IsNaN(*salary) || math.IsInf(*salary, 0) || *salary < 0) {
		return fmt.Errorf("%w: salary must be a non-negative number", ErrUserDataInvalid)
	}
	if day != nil {
		if *day == 0 {
			return fmt.Errorf("%w: payday must be between 1 and 31", ErrUserDataInvalid)
		}
		if err := payday.Validate(*day); err != nil {
			return err
		}
	}
	return nil
}
