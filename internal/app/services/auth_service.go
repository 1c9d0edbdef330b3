package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/auth"
)

// LoginResult carries an issued access token
type LoginResult struct {
	Student   *models.Student // nil for teacher logins
	Token     string
	ExpiresIn int
}

// AuthService handles student and teacher logins
type AuthService struct {
	students            StudentService
	jwtService          *auth.JWTService
	teacherPasswordHash string
	logger              zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	students StudentService,
	jwtService *auth.JWTService,
	teacherPasswordHash string,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		students:            students,
		jwtService:          jwtService,
		teacherPasswordHash: teacherPasswordHash,
		logger:              logger.With().Str("component", "auth").Logger(),
	}
}

// StudentLogin checks a student's password and issues a student token
func (s *AuthService) StudentLogin(ctx context.Context, studentID int64, password string) (*LoginResult, error) {
	student, err := s.students.Authenticate(ctx, studentID, password)
	if err != nil {
		return nil, err
	}

	token, expiresIn, err := s.jwtService.GenerateStudentToken(student)
	if err != nil {
		return nil, fmt.Errorf("error generating student token: %w", err)
	}

	s.logger.Info().Int64("studentID", student.ID).Msg("Student logged in")
	return &LoginResult{Student: student, Token: token, ExpiresIn: expiresIn}, nil
}

// TeacherLogin checks the shared teacher password and issues a teacher token
func (s *AuthService) TeacherLogin(ctx context.Context, password string) (*LoginResult, error) {
	if password == "" || !auth.CheckPassword(s.teacherPasswordHash, password) {
		s.logger.Warn().Msg("Failed teacher login")
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresIn, err := s.jwtService.GenerateTeacherToken()
	if err != nil {
		return nil, fmt.Errorf("error generating teacher token: %w", err)
	}

	s.logger.Info().Msg("Teacher logged in")
	return &LoginResult{Token: token, ExpiresIn: expiresIn}, nil
}

// ValidateToken parses an access token and returns its claims
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAndExtractClaims(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}
	return claims, nil
}
