package services

import (
	"context"
	"strings"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/jwt"
	"sponsornet/internal/pkg/password"

	"go.uber.org/zap"
)

// AuthService handles authentication business logic
type AuthService struct {
	memberRepo    repositories.MemberRepository
	secret        string
	expiryMinutes int
	log           *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(memberRepo repositories.MemberRepository, secret string, expiryMinutes int, log *zap.Logger) *AuthService {
	return &AuthService{
		memberRepo:    memberRepo,
		secret:        secret,
		expiryMinutes: expiryMinutes,
		log:           log.Named("auth"),
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Member      *models.MemberResponse `json:"member"`
	AccessToken string                 `json:"access_token"`
}

// Login authenticates a member by email and password.
// Unknown emails, bad passwords and non-active members all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	member, err := s.memberRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, notFound(err, domain.ErrInvalidCredentials)
	}

	if !password.Verify(input.Password, member.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	if !member.IsActive() {
		s.log.Info("login refused for inactive member",
			zap.Uint("member_id", member.ID),
			zap.String("status", member.Status),
		)
		return nil, domain.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(member.ID, member.Email, member.Role, s.secret, s.expiryMinutes)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Member:      member.ToResponse(),
		AccessToken: token,
	}, nil
}
