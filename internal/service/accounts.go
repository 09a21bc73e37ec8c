package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// NewAccount carries the fields needed to open an account.
type NewAccount struct {
	Email    string
	Username string
	FullName string
	Password string
	Role     domain.Role
}

// accounts holds the write path shared by registration and administrative creation.
type accounts struct {
	users      repository.UserRepository
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	now        func() time.Time
}

func (a *accounts) open(ctx context.Context, input NewAccount, eventType events.EventType, actorID *string) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.DefaultRole
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	if err := a.ensureAvailable(ctx, "", &input.Email, &input.Username); err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		FullName:     input.FullName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, fromRepository(err)
	}

	a.publish(ctx, eventType, user.ID, actorID, events.UserCreatedPayload{Username: user.Username, Role: string(user.Role)})
	return user, nil
}

// ensureAvailable checks email before username against live users other than selfID.
// Nil values are skipped.
func (a *accounts) ensureAvailable(ctx context.Context, selfID string, email, username *string) error {
	if email != nil {
		existing, err := a.users.GetByEmail(ctx, *email)
		switch {
		case err == nil && existing.ID != selfID:
			return conflict("email")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return apperrors.NewInternalError(err)
		}
	}
	if username != nil {
		existing, err := a.users.GetByUsername(ctx, *username)
		switch {
		case err == nil && existing.ID != selfID:
			return conflict("username")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return apperrors.NewInternalError(err)
		}
	}
	return nil
}

func (a *accounts) publish(ctx context.Context, eventType events.EventType, userID string, actorID *string, payload any) {
	if a.dispatcher == nil {
		return
	}
	_ = a.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: a.now(),
		Payload:   payload,
	})
}

func conflict(field string) error {
	var message string
	switch field {
	case "email":
		message = "email already registered"
	case "username":
		message = "username already taken"
	default:
		message = "value already in use"
	}
	return apperrors.NewConflict(message, map[string]any{"field": field})
}

// fromRepository maps storage errors onto the API taxonomy.
func fromRepository(err error) error {
	if dup, ok := repository.IsDuplicateKey(err); ok {
		return conflict(dup.Field)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", nil)
	}
	return apperrors.NewInternalError(err)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
