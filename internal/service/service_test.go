package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

type fixture struct {
	repo       repository.UserRepository
	dispatcher events.Dispatcher
	authSvc    *AuthService
	users      *UserService
	published  []events.Event
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		JWTAlgorithm:          "HS256",
		AccessTokenTTLMinutes: 30,
		Argon2:                config.Argon2Config{Time: 1, MemoryKB: 1024, Threads: 1, KeyLen: 16},
	}}
}

func newFixture(t *testing.T, opts ...auth.TokenOption) *fixture {
	t.Helper()
	f := &fixture{
		repo:       repository.NewMemoryUserRepository(),
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	for _, eventType := range []events.EventType{events.EventUserRegistered, events.EventUserCreated, events.EventUserUpdated, events.EventUserDeleted} {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	var err error
	f.authSvc, err = NewAuthService(testConfig(), AuthDependencies{
		UserRepo:     f.repo,
		Dispatcher:   f.dispatcher,
		TokenOptions: opts,
	})
	require.NoError(t, err)
	f.users = NewUserService(UserDependencies{
		UserRepo:   f.repo,
		Hasher:     f.authSvc.Hasher(),
		Dispatcher: f.dispatcher,
	})
	return f
}

// account registers a user and then adjusts flags directly in the store.
func (f *fixture) account(t *testing.T, username string, role domain.Role, superuser bool) *domain.User {
	t.Helper()
	ctx := context.Background()
	user, err := f.authSvc.Register(ctx, username+"@example.com", username, username, "secret-"+username)
	require.NoError(t, err)
	if superuser {
		user, err = f.repo.GrantSuperuser(ctx, user.ID)
		require.NoError(t, err)
	}
	if role != user.Role {
		user, err = f.repo.Update(ctx, user.ID, repository.UserUpdate{Role: &role})
		require.NoError(t, err)
	}
	return user
}

func assertCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, code, de.Code)
	assert.Equal(t, status, de.HTTPStatus)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.authSvc.Register(ctx, "ana@example.com", "ana", "Ana Ruiz", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventUserRegistered, f.published[0].Type)
	assert.Nil(t, f.published[0].ActorID)

	token, err := f.authSvc.Login(ctx, "ana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.Subject)

	resolved, err := f.authSvc.ResolveFromToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestAuthService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.authSvc.Register(ctx, "ana@example.com", "ana", "Ana", "pw")
	require.NoError(t, err)

	_, err = f.authSvc.Register(ctx, "ana@example.com", "other", "Other", "pw")
	assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)
	assert.Equal(t, "email already registered", apperrors.ToDomainError(err).Message)

	_, err = f.authSvc.Register(ctx, "other@example.com", "ana", "Other", "pw")
	assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)
	assert.Equal(t, "username", apperrors.ToDomainError(err).Details["field"])
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := f.account(t, "ana", domain.RoleSeller, false)
	bob := f.account(t, "bob", domain.RoleSeller, false)
	inactive := false
	_, err := f.repo.Update(ctx, bob.ID, repository.UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	cases := map[string][2]string{
		"unknown user":   {"nobody", "secret-nobody"},
		"wrong password": {ana.Username, "nope"},
		"inactive user":  {bob.Username, "secret-bob"},
	}
	var messages []string
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.authSvc.Login(ctx, creds[0], creds[1])
			assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
			messages = append(messages, apperrors.ToDomainError(err).Message)
		})
	}
	require.Len(t, messages, 3)
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestAuthService_ResolveFromToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	f := newFixture(t, auth.WithClock(func() time.Time { return clock }))
	ana := f.account(t, "ana", domain.RoleSeller, false)

	token, err := f.authSvc.Login(ctx, "ana", "secret-ana")
	require.NoError(t, err)

	t.Run("Should reject garbage", func(t *testing.T) {
		_, err := f.authSvc.ResolveFromToken(ctx, "not.a.token")
		assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
	})

	t.Run("Should reject expired tokens", func(t *testing.T) {
		clock = now.Add(31 * time.Minute)
		defer func() { clock = now }()
		_, err := f.authSvc.ResolveFromToken(ctx, token.Value)
		assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
	})

	t.Run("Should reject tokens of deleted users", func(t *testing.T) {
		_, err := f.repo.SoftDelete(ctx, ana.ID)
		require.NoError(t, err)
		_, err = f.authSvc.ResolveFromToken(ctx, token.Value)
		assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
		assert.Equal(t, apperrors.CredentialsMessage, apperrors.ToDomainError(err).Message)
	})
}

func TestUserService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seller := f.account(t, "seller", domain.RoleSeller, false)
	other := f.account(t, "other", domain.RoleSeller, false)
	admin := f.account(t, "admin", domain.RoleAdmin, false)

	got, err := f.users.Get(ctx, seller, seller.ID, false)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, got.ID)

	_, err = f.users.Get(ctx, seller, other.ID, false)
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	_, err = f.users.Get(ctx, admin, other.ID, false)
	assert.NoError(t, err)

	_, err = f.users.Get(ctx, seller, "00000000-0000-0000-0000-000000000000", false)
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	_, err = f.repo.SoftDelete(ctx, other.ID)
	require.NoError(t, err)
	_, err = f.users.Get(ctx, admin, other.ID, false)
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
	deleted, err := f.users.Get(ctx, admin, other.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
	_, err = f.users.Get(ctx, seller, other.ID, true)
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seller := f.account(t, "seller", domain.RoleSeller, false)
	admin := f.account(t, "admin", domain.RoleAdmin, false)
	gone := f.account(t, "gone", domain.RoleViewer, false)
	_, err := f.repo.SoftDelete(ctx, gone.ID)
	require.NoError(t, err)

	users, err := f.users.List(ctx, seller, ListUsersInput{})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.users.List(ctx, seller, ListUsersInput{IncludeDeleted: true})
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	all, err := f.users.List(ctx, admin, ListUsersInput{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.account(t, "root", domain.RoleSuperAdmin, true)
	admin := f.account(t, "admin", domain.RoleAdmin, false)
	input := NewAccount{Email: "new@example.com", Username: "new", FullName: "New", Password: "pw", Role: domain.RoleManager}

	_, err := f.users.Create(ctx, admin, input)
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	created, err := f.users.Create(ctx, root, input)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, created.Role)
	assert.False(t, created.IsSuperuser)
	last := f.published[len(f.published)-1]
	assert.Equal(t, events.EventUserCreated, last.Type)
	require.NotNil(t, last.ActorID)
	assert.Equal(t, root.ID, *last.ActorID)

	_, err = f.users.Create(ctx, root, input)
	assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)

	input.Email, input.Username, input.Role = "x@example.com", "x", domain.Role("OWNER")
	_, err = f.users.Create(ctx, root, input)
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.account(t, "root", domain.RoleSuperAdmin, true)
	admin := f.account(t, "admin", domain.RoleAdmin, false)
	seller := f.account(t, "seller", domain.RoleSeller, false)
	other := f.account(t, "other", domain.RoleSeller, false)

	name := "Seller Renamed"
	updated, err := f.users.Update(ctx, seller, seller.ID, domain.UserPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)

	_, err = f.users.Update(ctx, seller, other.ID, domain.UserPatch{FullName: &name})
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	_, err = f.users.Update(ctx, admin, other.ID, domain.UserPatch{FullName: &name})
	assert.NoError(t, err)

	manager := domain.RoleManager
	_, err = f.users.Update(ctx, seller, seller.ID, domain.UserPatch{Role: &manager})
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)
	_, err = f.users.Update(ctx, admin, other.ID, domain.UserPatch{Role: &manager})
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	sameRole := domain.RoleSeller
	_, err = f.users.Update(ctx, seller, seller.ID, domain.UserPatch{Role: &sameRole})
	assert.NoError(t, err, "restating the current role is not a role change")

	promoted, err := f.users.Update(ctx, root, other.ID, domain.UserPatch{Role: &manager})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, promoted.Role)

	taken := other.Email
	_, err = f.users.Update(ctx, root, seller.ID, domain.UserPatch{Email: &taken})
	assertCode(t, err, apperrors.CodeConflict, http.StatusBadRequest)

	own := seller.Username
	_, err = f.users.Update(ctx, seller, seller.ID, domain.UserPatch{Username: &own})
	assert.NoError(t, err)

	password := "rotated"
	_, err = f.users.Update(ctx, seller, seller.ID, domain.UserPatch{Password: &password})
	require.NoError(t, err)
	_, err = f.authSvc.Login(ctx, seller.Username, "rotated")
	assert.NoError(t, err)

	last := f.published[len(f.published)-1]
	assert.Equal(t, events.EventUserUpdated, last.Type)
	assert.Equal(t, events.UserChangedPayload{Fields: []string{"password"}}, last.Payload)

	_, err = f.users.Update(ctx, root, "00000000-0000-0000-0000-000000000000", domain.UserPatch{FullName: &name})
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.account(t, "root", domain.RoleSuperAdmin, true)
	admin := f.account(t, "admin", domain.RoleAdmin, false)
	target := f.account(t, "target", domain.RoleSeller, false)

	_, err := f.users.Delete(ctx, admin, target.ID)
	assertCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	_, err = f.users.Delete(ctx, root, root.ID)
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	deleted, err := f.users.Delete(ctx, root, target.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	_, err = f.users.Delete(ctx, root, target.ID)
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	again, err := f.authSvc.Register(ctx, target.Email, target.Username, "Again", "pw")
	require.NoError(t, err, "identifiers of deleted users can be reused")
	assert.NotEqual(t, target.ID, again.ID)
}

func TestUserService_InactiveRequester(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.account(t, "root", domain.RoleSuperAdmin, true)
	root.IsActive = false

	_, err := f.users.List(ctx, root, ListUsersInput{})
	assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
	_, err = f.users.Get(ctx, root, root.ID, false)
	assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
	_, err = f.users.Delete(ctx, root, "missing")
	assertCode(t, err, apperrors.CodeUnauthenticated, http.StatusUnauthorized)
}

func TestAuditService_RecordsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	actor := "actor-1"
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:      "evt-1",
		Type:    events.EventUserUpdated,
		UserID:  "user-1",
		ActorID: &actor,
		Payload: events.UserChangedPayload{Fields: []string{"email"}},
	}))

	entries := logs.FilterMessage("user event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "user_updated", fields["event_type"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "actor-1", fields["actor_id"])
}
