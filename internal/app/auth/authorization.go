package auth

import (
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/marketday/internal/pkg/auth"
)

// AuthorizationService decides who may invoke ledger operations
type AuthorizationService struct{}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{}
}

// IsTeacher reports whether claims belong to a teacher
func (s *AuthorizationService) IsTeacher(claims *pkgAuth.Claims) bool {
	return claims != nil && claims.IsTeacher()
}

// CanActForStudent allows teachers, and students acting on their own account
func (s *AuthorizationService) CanActForStudent(claims *pkgAuth.Claims, studentID int64) error {
	if claims == nil {
		return apperrors.NewCustomError(apperrors.ErrTokenInvalid, "Please log in first")
	}
	if s.IsTeacher(claims) {
		return nil
	}
	if models.RoleType(claims.RoleType) == models.RoleStudent && claims.StudentID == studentID {
		return nil
	}
	return apperrors.NewForbiddenError("You can only buy items for your own account")
}
