package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/events"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/repository"
)

type UsersService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	VerifyUser(ctx context.Context, email, password string) (*domain.User, error)
}

type usersService struct {
	userRepo repository.UserRepository
	hasher   auth.PasswordHasher
	events   events.Publisher
	now      func() time.Time
}

func NewUsersService(userRepo repository.UserRepository, hasher auth.PasswordHasher, publisher events.Publisher) UsersService {
	return &usersService{
		userRepo: userRepo,
		hasher:   hasher,
		events:   publisher,
		now:      time.Now,
	}
}

// Register stores a new account. A duplicate email is reported as
// domain.ErrEmailTaken, which still matches store.ErrConstraintViolation.
func (s *usersService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	req.Normalize()

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, domain.User{
		Email:        req.Email,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, store.ErrConstraintViolation) {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmailTaken, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)

	ev := events.UserRegisteredEvent{UserID: user.ID, Email: user.Email, RegisteredAt: user.CreatedAt}
	if err := s.events.Publish(ctx, events.UserRegistered, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish user registered event", "error", err, "user_id", user.ID)
	}

	return user, nil
}

func (s *usersService) List(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *usersService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// VerifyUser checks a password against the stored digest. Unknown email,
// wrong password and unreadable digest all end in the same
// auth.ErrUnauthorizedCredentials. Store outages are returned as they are.
func (s *usersService) VerifyUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = s.hasher.Verify(password, auth.DummyDigest())
		logger.WarnContext(ctx, "Login failed", "reason", "unknown_email")
		return nil, auth.ErrUnauthorizedCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		logger.ErrorContext(ctx, "Stored digest unreadable", "error", err, "user_id", user.ID)
		return nil, auth.ErrUnauthorizedCredentials
	}
	if !ok {
		logger.WarnContext(ctx, "Login failed", "reason", "password_mismatch", "user_id", user.ID)
		return nil, auth.ErrUnauthorizedCredentials
	}

	return user, nil
}
