package service

import (
	"context"
	"log/slog"

	"github.com/patcharin/splitbill/internal/auth"
	"github.com/patcharin/splitbill/internal/models"
)

// AuthService handles registration and login, issuing session tokens.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates an AuthService with the given authenticator and
// token manager.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// Session is an authenticated user together with their bearer token.
type Session struct {
	User  *models.User
	Token string
}

// Register creates an account and returns a ready-to-use session.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*Session, error) {
	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Token generation failed after registration", "user_id", user.ID, "error", err)
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and returns a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Token generation failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}
