package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// racingRepository hides existing users from lookups, so only the write sees the collision.
type racingRepository struct {
	repository.UserRepository
	createErr error
}

func (r *racingRepository) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *racingRepository) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *racingRepository) Create(ctx context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, user)
}

func newRacingServices(t *testing.T, repo *racingRepository) (*AuthService, *UserService) {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher(nil)
	authSvc, err := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo, Dispatcher: dispatcher})
	require.NoError(t, err)
	users := NewUserService(UserDependencies{UserRepo: repo, Hasher: authSvc.Hasher(), Dispatcher: dispatcher})
	return authSvc, users
}

func TestAccounts_WriteTimeDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepository{UserRepository: repository.NewMemoryUserRepository()}
	authSvc, users := newRacingServices(t, repo)

	ana, err := authSvc.Register(ctx, "ana@example.com", "ana", "Ana", "password-ana")
	require.NoError(t, err)
	bob, err := authSvc.Register(ctx, "bob@example.com", "bob", "Bob", "password-bob")
	require.NoError(t, err)

	t.Run("Should map a duplicate on register", func(t *testing.T) {
		_, err := authSvc.Register(ctx, "ana@example.com", "other", "Other", "password-x")
		assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)
		assert.Equal(t, "email", apperrors.ToDomainError(err).Details["field"])
	})

	t.Run("Should map a duplicate on update", func(t *testing.T) {
		taken := ana.Username
		_, err := users.Update(ctx, bob, bob.ID, domain.UserPatch{Username: &taken})
		assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)
		assert.Equal(t, "username already taken", apperrors.ToDomainError(err).Message)
	})
}

func TestAccounts_UnknownConstraintIsNeutral(t *testing.T) {
	repo := &racingRepository{
		UserRepository: repository.NewMemoryUserRepository(),
		createErr:      &repository.DuplicateKeyError{Field: "users_external_ref_key"},
	}
	authSvc, _ := newRacingServices(t, repo)

	_, err := authSvc.Register(context.Background(), "ana@example.com", "ana", "Ana", "password-ana")
	assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "value already in use", de.Message)
	assert.Equal(t, "users_external_ref_key", de.Details["field"])
}
