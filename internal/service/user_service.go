package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// UserService applies the access policy to user account operations.
type UserService struct {
	accounts
	logger *zap.Logger
}

// UserDependencies encapsulates collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ListUsersInput pages through users.
type ListUsersInput struct {
	Offset         int
	Limit          int
	IncludeDeleted bool
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		accounts: accounts{
			users:      deps.UserRepo,
			hasher:     deps.Hasher,
			dispatcher: deps.Dispatcher,
			now:        utcNow,
		},
		logger: logger,
	}
}

// List returns a page of users visible to the requester.
func (s *UserService) List(ctx context.Context, requester *domain.User, input ListUsersInput) ([]domain.User, error) {
	if err := auth.Authorize(requester, auth.AccessRequest{Action: auth.ActionListUsers, IncludeDeleted: input.IncludeDeleted}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repository.ListFilter{
		Offset:         input.Offset,
		Limit:          input.Limit,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// Get returns one user. Missing targets are reported before authorization.
func (s *UserService) Get(ctx context.Context, requester *domain.User, id string, includeDeleted bool) (*domain.User, error) {
	if err := auth.CheckActive(requester); err != nil {
		return nil, err
	}
	target, err := s.users.Get(ctx, id, repository.LookupOptions{IncludeDeleted: includeDeleted})
	if err != nil {
		return nil, fromRepository(err)
	}
	if err := auth.Authorize(requester, auth.AccessRequest{
		Action:         auth.ActionReadUser,
		Target:         target,
		IncludeDeleted: includeDeleted,
	}); err != nil {
		return nil, err
	}
	return target, nil
}

// Create opens an account on behalf of a superuser.
func (s *UserService) Create(ctx context.Context, requester *domain.User, input NewAccount) (*domain.User, error) {
	if err := auth.Authorize(requester, auth.AccessRequest{Action: auth.ActionCreateUser}); err != nil {
		return nil, err
	}
	user, err := s.open(ctx, input, events.EventUserCreated, &requester.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("actor_id", requester.ID))
	return user, nil
}

// Update applies a partial change to a live user.
func (s *UserService) Update(ctx context.Context, requester *domain.User, id string, patch domain.UserPatch) (*domain.User, error) {
	if err := auth.CheckActive(requester); err != nil {
		return nil, err
	}
	target, err := s.users.Get(ctx, id, repository.LookupOptions{})
	if err != nil {
		return nil, fromRepository(err)
	}
	if err := auth.Authorize(requester, auth.AccessRequest{
		Action:     auth.ActionUpdateUser,
		Target:     target,
		RoleChange: patch.ChangesRole(target),
	}); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*patch.Role)})
	}
	if err := s.ensureAvailable(ctx, target.ID, changed(patch.Email, target.Email), changed(patch.Username, target.Username)); err != nil {
		return nil, err
	}

	changes := repository.UserUpdate{
		Email:    patch.Email,
		Username: patch.Username,
		FullName: patch.FullName,
		Role:     patch.Role,
		IsActive: patch.IsActive,
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		changes.PasswordHash = &hash
	}

	updated, err := s.users.Update(ctx, target.ID, changes)
	if err != nil {
		return nil, fromRepository(err)
	}
	s.publish(ctx, events.EventUserUpdated, updated.ID, &requester.ID, events.UserChangedPayload{Fields: patch.Fields()})
	return updated, nil
}

// Delete soft-deletes a live user.
func (s *UserService) Delete(ctx context.Context, requester *domain.User, id string) (*domain.User, error) {
	if err := auth.CheckActive(requester); err != nil {
		return nil, err
	}
	target, err := s.users.Get(ctx, id, repository.LookupOptions{})
	if err != nil {
		return nil, fromRepository(err)
	}
	if err := auth.Authorize(requester, auth.AccessRequest{Action: auth.ActionDeleteUser, Target: target}); err != nil {
		return nil, err
	}

	deleted, err := s.users.SoftDelete(ctx, target.ID)
	if err != nil {
		return nil, fromRepository(err)
	}
	s.publish(ctx, events.EventUserDeleted, deleted.ID, &requester.ID, nil)
	s.logger.Info("user deleted", zap.String("user_id", deleted.ID), zap.String("actor_id", requester.ID))
	return deleted, nil
}

// changed returns v only when it differs from current.
func changed(v *string, current string) *string {
	if v == nil || *v == current {
		return nil
	}
	return v
}
