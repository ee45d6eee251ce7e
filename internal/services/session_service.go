package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/redis"
	"mystore/pkg/logger"

	"github.com/google/uuid"
)

// SessionStore keeps bearer tokens. *redis.Client implements it.
type SessionStore interface {
	SetSession(ctx context.Context, token string, data *redis.SessionData, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*redis.SessionData, error)
	DeleteSession(ctx context.Context, token string) error
}

// Identity is a resolved caller: the user row as of this request plus its principal.
type Identity struct {
	User      *models.User
	Customer  *models.Customer
	Principal policy.Principal
}

type SessionService interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*Identity, error)
}

type sessionService struct {
	store     SessionStore
	users     UserService
	customers CustomerService
	ttl       time.Duration
	logger    *logger.Logger
}

func NewSessionService(store SessionStore, users UserService, customers CustomerService, ttl time.Duration, log *logger.Logger) SessionService {
	return &sessionService{
		store:     store,
		users:     users,
		customers: customers,
		ttl:       ttl,
		logger:    log.WithComponent("session_service"),
	}
}

func (s *sessionService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	token := uuid.NewString()
	data := &redis.SessionData{UserID: user.ID, CreatedAt: time.Now().UTC()}
	if err := s.store.SetSession(ctx, token, data, s.ttl); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return token, user, nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Resolve maps a bearer token to the caller. The user is reloaded on every call so
// deactivation and staff changes apply immediately.
func (s *sessionService) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
		}
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthenticated)
	}

	customer, err := s.customers.EnsureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	return &Identity{
		User:     user,
		Customer: customer,
		Principal: policy.Principal{
			UserID:     user.ID,
			IsStaff:    user.IsStaff,
			CustomerID: customer.ID,
		},
	}, nil
}
