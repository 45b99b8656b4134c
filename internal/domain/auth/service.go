package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/martly/martly-api/internal/domain/user"
	"github.com/martly/martly-api/internal/pkg/jwt"
	"github.com/martly/martly-api/internal/pkg/password"
)

// Service handles registration and login
type Service struct {
	users  user.Repository
	tokens *jwt.Service
}

// NewService creates auth service
func NewService(users user.Repository, tokens *jwt.Service) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a user account and issues a token pair
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if !user.IsValidRole(req.Role) {
		return nil, user.ErrInvalidRole
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         user.Role(req.Role),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user registered")
	return s.issueTokens(u)
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrInvalidCreds
		}
		return nil, err
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, user.ErrInvalidCreds
	}

	return s.issueTokens(u)
}

// Refresh exchanges a refresh token for a new pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(u)
}

func (s *Service) issueTokens(u *user.User) (*TokenResponse, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		UserID:       u.ID,
		Role:         string(u.Role),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
