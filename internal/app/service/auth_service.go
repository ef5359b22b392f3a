package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/common/security"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type AuthService struct {
	userRepo repository.UserRepository
	sessions repository.SessionRepository
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, sessions repository.SessionRepository, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions, log: logger.OrNop(log).Named("auth")}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account. Roles are never taken from the request.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Validationf("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, common.Validationf("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.Validationf("password must be at least %d characters", minPasswordLength)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("user with this email already exists: %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Validationf("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}
	return s.issue(user)
}

// Logout revokes the caller's session for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, id *model.Identity) error {
	if id == nil {
		return common.ErrUnauthorized
	}
	if err := s.sessions.Revoke(ctx, id.SessionID, time.Until(id.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.log.Info("user logged out", zap.String("user_id", id.UserID))
	return nil
}

func (s *AuthService) Profile(ctx context.Context, id *model.Identity) (*model.User, error) {
	if id == nil {
		return nil, common.ErrUnauthorized
	}
	return s.userRepo.FindByID(ctx, id.UserID)
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, _, expiresAt, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
