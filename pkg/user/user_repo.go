package user

import (
	"context"
	"errors"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, userId int, user User) (User, error)
	DeleteUser(ctx context.Context, id int) error
	GetAllUsers(ctx context.Context) ([]User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	UpdateSalary(ctx context.Context, userId int, salary *float64) error
	UpdatePayday(ctx context.Context, userId int, payday *int) error
	UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = `id, uid, username, display_name, salary, payday, daily_allowance`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.Id, &u.Uid, &u.Username, &u.DisplayName, &u.Salary, &u.Payday, &u.DailyAllowance)
	return u, err
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, salary, payday) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query, user.Uid, user.Username, user.DisplayName, user.Salary, user.Payday).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, apperr.Dependency("create user", err)
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with id %d not found", id)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, apperr.Dependency("get user", err)
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("user with uid %s not found", uid)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, apperr.Dependency("get user", err)
	}
	return user, nil
}

func (u *UserRepoImpl) UpdateUser(ctx context.Context, userId int, user User) (User, error) {
	result, err := u.db.Exec(ctx, `UPDATE users SET display_name = $1 WHERE id = $2`, user.DisplayName, userId)
	if err != nil {
		return User{}, apperr.Dependency("update user", err)
	}
	if result.RowsAffected() == 0 {
		log.Info("no rows affected of updating user")
		return User{}, ErrUserNotFound
	}
	return u.GetUser(ctx, userId)
}

func (u *UserRepoImpl) DeleteUser(ctx context.Context, id int) error {
	result, err := u.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Dependency("delete user", err)
	}
	if result.RowsAffected() == 0 {
		log.Info("no rows affected of deleting user")
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	rows, err := u.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		log.Errorf("failed to get users: %v", err)
		return nil, apperr.Dependency("list users", err)
	}
	defer rows.Close()
	users := make([]User, 0, 10)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Errorf("failed to scan user: %v", err)
			return nil, apperr.Dependency("list users", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, apperr.Dependency("list users", err)
	}
	return users, nil
}

func (u *UserRepoImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int
	err := u.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, username).Scan(&count)
	if err != nil {
		log.Errorf("failed to check username availability: %v", err)
		return false, apperr.Dependency("check username", err)
	}
	return count == 0, nil
}

func (u *UserRepoImpl) UpdateSalary(ctx context.Context, userId int, salary *float64) error {
	return u.updateColumn(ctx, "update salary", `UPDATE users SET salary = $1 WHERE id = $2`, salary, userId)
}

func (u *UserRepoImpl) UpdatePayday(ctx context.Context, userId int, payday *int) error {
	return u.updateColumn(ctx, "update payday", `UPDATE users SET payday = $1 WHERE id = $2`, payday, userId)
}

// UpdateDailyAllowance writes only the cached allowance column so it never races a salary or payday edit.
func (u *UserRepoImpl) UpdateDailyAllowance(ctx context.Context, userId int, allowance float64) error {
	return u.updateColumn(ctx, "update daily allowance", `UPDATE users SET daily_allowance = $1 WHERE id = $2`, allowance, userId)
}

func (u *UserRepoImpl) updateColumn(ctx context.Context, op string, query string, value any, userId int) error {
	result, err := u.db.Exec(ctx, query, value, userId)
	if err != nil {
		log.Errorf("failed to %s: %v", op, err)
		return apperr.Dependency(op, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
