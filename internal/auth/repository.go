// internal/auth/repository.go
package auth

import (
	"context"
	"errors"
	"time"

	"busseat/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateUser(ctx context.Context, user *users.User) error
	GetUserByUsername(ctx context.Context, username string) (*users.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

const (
	queryInsertUser = `INSERT INTO users (id, username, password, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

	querySelectUserByUsername = `SELECT id, username, password, role, created_at, updated_at
FROM users WHERE username = ? LIMIT 1`

	queryUsernameExists = `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`
)

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository expects db to be opened with TranslateError so a
// duplicate username surfaces as gorm.ErrDuplicatedKey
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser relies on the unique index on username; two registrations
// racing past UsernameExists cannot both insert.
func (r *repository) CreateUser(ctx context.Context, user *users.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = users.RoleRider
	}
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now

	err := r.db.WithContext(ctx).Exec(queryInsertUser,
		user.ID, user.Username, user.Password, string(user.Role), user.CreatedAt, user.UpdatedAt,
	).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserAlreadyExists
	}
	return err
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (*users.User, error) {
	var user users.User
	result := r.db.WithContext(ctx).Raw(querySelectUserByUsername, username).Scan(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.db.WithContext(ctx).Raw(queryUsernameExists, username).Scan(&exists).Error; err != nil {
		return false, err
	}
	return exists, nil
}
