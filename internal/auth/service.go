package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth/jwt"
	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffExists        = errors.New("email already registered")
)

// Service handles staff authentication.
type Service struct {
	staffRepo *repository.StaffRepository
	tokenMgr  *jwt.Manager
	logger    zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

// NewService creates an authentication service.
func NewService(staffRepo *repository.StaffRepository, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		staffRepo: staffRepo,
		tokenMgr:  jwt.NewManager(opts.TokenConfig),
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

// CreateStaff registers a staff account with a bcrypt-hashed password.
func (s *Service) CreateStaff(ctx context.Context, req CreateStaffRequest) (Session, error) {
	if strings.TrimSpace(req.Email) == "" {
		return Session{}, fmt.Errorf("email required")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return Session{}, fmt.Errorf("display name required")
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	staff, err := s.staffRepo.Create(ctx, model.CreateStaffParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Institution:  strings.TrimSpace(req.Institution),
	})
	if errors.Is(err, model.ErrConflict) {
		return Session{}, ErrStaffExists
	}
	if err != nil {
		return Session{}, fmt.Errorf("create staff: %w", err)
	}

	s.logger.Info().Str("staff_id", staff.StaffID.String()).Msg("staff account created")
	return sessionOf(staff), nil
}

// Login authenticates a staff member with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, *TokenPair, error) {
	staff, err := s.staffRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, nil, fmt.Errorf("lookup staff: %w", err)
	}

	if err := VerifyPassword(staff.PasswordHash, req.Password); errors.Is(err, ErrInvalidPassword) {
		return Session{}, nil, ErrInvalidCredentials
	} else if err != nil {
		return Session{}, nil, fmt.Errorf("verify staff %s: %w", staff.StaffID, err)
	}

	if err := s.staffRepo.UpdateLogin(ctx, staff.StaffID); err != nil {
		s.logger.Warn().Err(err).Str("staff_id", staff.StaffID.String()).Msg("record login failed")
	}

	session := sessionOf(staff)
	tokens, err := s.generateTokenPair(session)
	if err != nil {
		return Session{}, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("staff_id", staff.StaffID.String()).Msg("staff logged in")

	return session, tokens, nil
}

// RefreshToken generates a new token pair from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	// the account must still exist
	staff, err := s.staffRepo.GetByID(ctx, claims.StaffID)
	if err != nil {
		return nil, fmt.Errorf("staff not found")
	}

	return s.generateTokenPair(sessionOf(staff))
}

// ValidateToken validates an access token and returns the session it carries.
func (s *Service) ValidateToken(tokenString string) (Session, error) {
	claims, err := s.tokenMgr.ValidateAccessToken(tokenString)
	if err != nil {
		return Session{}, err
	}
	return Session{
		StaffID:     claims.StaffID,
		DisplayName: claims.DisplayName,
		Institution: claims.Institution,
	}, nil
}

func (s *Service) generateTokenPair(session Session) (*TokenPair, error) {
	staff := jwt.Staff{
		ID:          session.StaffID,
		DisplayName: session.DisplayName,
		Institution: session.Institution,
	}

	accessToken, err := s.tokenMgr.GenerateAccessToken(staff)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(staff)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

func sessionOf(staff model.Staff) Session {
	return Session{
		StaffID:     staff.StaffID,
		DisplayName: staff.DisplayName,
		Institution: staff.Institution,
	}
}
