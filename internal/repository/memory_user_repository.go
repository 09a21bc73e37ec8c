package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-service/internal/domain"
)

// memoryUserRepository keeps users in process memory. It enforces the same
// live-row uniqueness as the Postgres partial indexes and is used when no DSN is configured.
type memoryUserRepository struct {
	mu    sync.RWMutex
	order []string
	users map[string]*domain.User
	now   func() time.Time
}

// NewMemoryUserRepository returns an empty in-memory repository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users: make(map[string]*domain.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique("", user.Email, user.Username); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	now := r.now()
	user.IsActive = true
	user.IsSuperuser = false
	user.DeletedAt = nil
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = cloneUser(user)
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, id string, changes UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, ErrNotFound
	}

	email, username := user.Email, user.Username
	if changes.Email != nil {
		email = *changes.Email
	}
	if changes.Username != nil {
		username = *changes.Username
	}
	if err := r.checkUnique(id, email, username); err != nil {
		return nil, err
	}

	user.Email = email
	user.Username = username
	if changes.FullName != nil {
		user.FullName = *changes.FullName
	}
	if changes.PasswordHash != nil {
		user.PasswordHash = *changes.PasswordHash
	}
	if changes.Role != nil {
		user.Role = *changes.Role
	}
	if changes.IsActive != nil {
		user.IsActive = *changes.IsActive
	}
	user.UpdatedAt = r.now()
	return cloneUser(user), nil
}

func (r *memoryUserRepository) Get(_ context.Context, id string, opts LookupOptions) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || (user.DeletedAt != nil && !opts.IncludeDeleted) {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findLive(func(u *domain.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findLive(func(u *domain.User) bool { return u.Username == username })
}

func (r *memoryUserRepository) List(_ context.Context, filter ListFilter) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit, offset := normalizePage(filter)
	result := []domain.User{}
	skipped := 0
	for _, id := range r.order {
		user := r.users[id]
		if user.DeletedAt != nil && !filter.IncludeDeleted {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, *cloneUser(user))
	}
	return result, nil
}

func (r *memoryUserRepository) SoftDelete(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if user.DeletedAt == nil {
		now := r.now()
		user.DeletedAt = &now
		user.UpdatedAt = now
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepository) HardDelete(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return user, nil
}

func (r *memoryUserRepository) GrantSuperuser(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, ErrNotFound
	}
	user.IsSuperuser = true
	user.Role = domain.RoleSuperAdmin
	user.UpdatedAt = r.now()
	return cloneUser(user), nil
}

func (r *memoryUserRepository) Ping(context.Context) error {
	return nil
}

func (r *memoryUserRepository) findLive(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		user := r.users[id]
		if user.DeletedAt == nil && match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, ErrNotFound
}

// checkUnique must be called with the write lock held. Email is checked before username.
func (r *memoryUserRepository) checkUnique(selfID, email, username string) error {
	if r.liveMatch(selfID, func(u *domain.User) bool { return u.Email == email }) {
		return &DuplicateKeyError{Field: "email"}
	}
	if r.liveMatch(selfID, func(u *domain.User) bool { return u.Username == username }) {
		return &DuplicateKeyError{Field: "username"}
	}
	return nil
}

func (r *memoryUserRepository) liveMatch(selfID string, match func(*domain.User) bool) bool {
	for _, id := range r.order {
		user := r.users[id]
		if id != selfID && user.DeletedAt == nil && match(user) {
			return true
		}
	}
	return false
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	if u.DeletedAt != nil {
		deletedAt := *u.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	return &clone
}
