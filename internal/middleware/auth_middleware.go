package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ClaimsKey    = "claims"
	StudentIDKey = "studentID"
	RoleTypeKey  = "roleType"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// tokenFromRequest reads a bearer token, tolerating raw and quoted tokens
func tokenFromRequest(c *gin.Context) (string, error) {
	header := strings.Trim(strings.TrimSpace(c.GetHeader("Authorization")), "\"'")
	if header == "" {
		return "", auth.ErrInvalidFormat
	}
	return auth.ExtractBearerToken(header)
}

func (m *AuthMiddleware) authenticate(c *gin.Context) (*auth.Claims, error) {
	token, err := tokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtService.ValidateAndExtractClaims(token)
	if err != nil {
		return nil, err
	}

	c.Set(ClaimsKey, claims)
	c.Set(RoleTypeKey, claims.RoleType)
	if claims.StudentID > 0 {
		c.Set(StudentIDKey, claims.StudentID)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	code := dto.ErrorCodeInvalidToken
	details := "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrorCodeExpiredToken
		details = "Token has expired"
	case errors.Is(err, auth.ErrInvalidFormat):
		code = dto.ErrorCodeUnauthorized
		details = "Authorization header missing"
	}
	AbortWithError(c, http.StatusUnauthorized, code, "Authentication required", details)
}

// JWTAuth requires a valid student or teacher token
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := m.authenticate(c); err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and never rejects
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			_, _ = m.authenticate(c)
		}
		c.Next()
	}
}

// RoleRequired rejects callers whose token does not carry role. Run after JWTAuth.
func (m *AuthMiddleware) RoleRequired(role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleTypeKey) != string(role) {
			AbortWithError(c, http.StatusForbidden, dto.ErrorCodeForbidden, "Access denied",
				"You don't have sufficient permissions for this operation")
			return
		}
		c.Next()
	}
}

// TeacherRequired is JWTAuth followed by RoleRequired(teacher)
func (m *AuthMiddleware) TeacherRequired() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.JWTAuth(), m.RoleRequired(models.RoleTeacher)}
}

// ClaimsFrom returns the claims stored by the auth middleware, if any
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
