package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// AdminService backs operator tooling. None of it is reachable over HTTP.
type AdminService struct {
	accounts
	logger *zap.Logger
}

// NewAdminService builds the service.
func NewAdminService(users repository.UserRepository, hasher auth.PasswordHasher, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	return &AdminService{
		accounts: accounts{users: users, hasher: hasher, dispatcher: dispatcher, now: utcNow},
		logger:   logger,
	}
}

// EnsureSuperuser promotes the live user with input.Username, creating it first when absent.
// created reports whether a new account was opened.
func (s *AdminService) EnsureSuperuser(ctx context.Context, input NewAccount) (user *domain.User, created bool, err error) {
	user, err = s.users.GetByUsername(ctx, input.Username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if input.Email == "" || input.Password == "" {
			return nil, false, apperrors.NewValidationError("email and password are required to create a superuser", nil)
		}
		input.Role = domain.RoleSuperAdmin
		user, err = s.open(ctx, input, events.EventUserCreated, nil)
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, fromRepository(err)
	}

	if !user.IsSuperuser || user.Role != domain.RoleSuperAdmin {
		user, err = s.users.GrantSuperuser(ctx, user.ID)
		if err != nil {
			return nil, created, fromRepository(err)
		}
		s.publish(ctx, events.EventUserUpdated, user.ID, nil, events.UserChangedPayload{Fields: []string{"is_superuser", "role"}})
	}
	s.logger.Info("superuser ensured", zap.String("user_id", user.ID), zap.Bool("created", created))
	return user, created, nil
}

// HardDelete permanently removes a user row, deleted or not.
func (s *AdminService) HardDelete(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.HardDelete(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	s.publish(ctx, events.EventUserDeleted, user.ID, nil, map[string]any{"hard": true})
	s.logger.Warn("user permanently deleted", zap.String("user_id", user.ID))
	return user, nil
}
