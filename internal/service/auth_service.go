package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// AuthService coordinates registration, login and token resolution.
type AuthService struct {
	accounts
	tokenMgr *auth.TokenManager
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
// Hasher and TokenOptions are optional; the configured argon2id hasher is used by default.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	Hasher       auth.PasswordHasher
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	TokenOptions []auth.TokenOption
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.Auth, deps.TokenOptions...)
	if err != nil {
		return nil, err
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewArgon2Hasher(cfg.Auth.Argon2)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts: accounts{
			users:      deps.UserRepo,
			hasher:     hasher,
			dispatcher: deps.Dispatcher,
			now:        utcNow,
		},
		tokenMgr: tokenMgr,
		metrics:  deps.Metrics,
		logger:   logger,
	}, nil
}

// Hasher exposes the password hasher so other services share one configuration.
func (s *AuthService) Hasher() auth.PasswordHasher {
	return s.hasher
}

// AuthenticateByPassword returns the live, active user matching the credentials.
// Unknown users, inactive users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) AuthenticateByPassword(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewBadCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewBadCredentials()
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.NewBadCredentials()
	}
	return user, nil
}

// Login authenticates and issues an access token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.AccessToken, error) {
	user, err := s.AuthenticateByPassword(ctx, username, password)
	if err != nil {
		if apperrors.IsStatus(err, http.StatusUnauthorized) {
			s.metrics.RecordLogin(observability.LoginRejected)
			s.logger.Info("login rejected", zap.String("username", username))
		}
		return domain.AccessToken{}, err
	}

	token, err := s.tokenMgr.Issue(user.ID, s.tokenMgr.TTL())
	if err != nil {
		return domain.AccessToken{}, apperrors.NewInternalError(err)
	}
	s.metrics.RecordLogin(observability.LoginSucceeded)
	return token, nil
}

// ResolveFromToken returns the live user the token was issued for.
func (s *AuthService) ResolveFromToken(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.tokenMgr.Verify(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticated()
	}
	user, err := s.users.Get(ctx, subject, repository.LookupOptions{})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated()
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Register opens a self-service account. The role is always the default one.
func (s *AuthService) Register(ctx context.Context, email, username, fullName, password string) (*domain.User, error) {
	user, err := s.open(ctx, NewAccount{
		Email:    email,
		Username: username,
		FullName: fullName,
		Password: password,
		Role:     domain.DefaultRole,
	}, events.EventUserRegistered, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}
