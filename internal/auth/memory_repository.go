package auth

import (
	"context"
	"sync"
	"time"

	"busseat/internal/users"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in process for the database-less dev mode
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*users.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*users.User)}
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return ErrUserAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	m.users[user.Username] = &stored
	return nil
}

func (m *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*users.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[username]
	return ok, nil
}
