package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/domain"
)

type LoginResult struct {
	User    *domain.User
	Session auth.Session
}

type AuthService interface {
	Login(ctx context.Context, req *domain.LoginRequest) (*LoginResult, error)
}

type authService struct {
	users    UsersService
	sessions *auth.Sessions
}

func NewAuthService(users UsersService, sessions *auth.Sessions) AuthService {
	return &authService{users: users, sessions: sessions}
}

// Login verifies the credentials and only then issues a session.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*LoginResult, error) {
	req.Normalize()

	user, err := s.users.VerifyUser(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	logger.InfoContext(ctx, "User logged in", "user_id", user.ID, "expires_at", session.ExpiresAt)
	return &LoginResult{User: user, Session: session}, nil
}
