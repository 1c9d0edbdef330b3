package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorDetailFor(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    dto.ErrorCode
		wantMessage string
	}{
		{"student not found", fmt.Errorf("loading: %w", apperrors.ErrStudentNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "student not found"},
		{"out of stock", apperrors.ErrOutOfStock, http.StatusBadRequest, dto.ErrorCodeOutOfStock, "Item out of stock"},
		{"insufficient balance", fmt.Errorf("purchase: %w", apperrors.ErrInsufficientBalance), http.StatusBadRequest, dto.ErrorCodeInsufficientBalance, "Not enough tickets"},
		{"validation reason", fmt.Errorf("%w: cost must be positive", apperrors.ErrValidationFailed), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "validation failed: cost must be positive"},
		{"policy", apperrors.NewPolicyError("purchase was already delivered"), http.StatusConflict, dto.ErrorCodePolicyViolation, "purchase was already delivered"},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
		{"forbidden", apperrors.NewForbiddenError("not your account"), http.StatusForbidden, dto.ErrorCodeForbidden, "not your account"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := ErrorDetailFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.Equal(t, tt.wantMessage, detail.Message)
		})
	}
}

func TestHandleAPIErrorWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/purchase/", nil)

	HandleAPIError(c, apperrors.ErrOutOfStock)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.StatusError, body["status"])
	assert.Equal(t, "Item out of stock", body["message"])
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills per second at 60/min")

	now = now.Add(idleLimiterTTL + time.Second)
	l.Allow("10.0.0.3")
	assert.NotContains(t, l.clients, "10.0.0.2", "idle clients are forgotten")
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.POST("/login", NewIPRateLimiter(1, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTeacherRequired(t *testing.T) {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "middleware-test",
		StudentTokenExp: time.Hour,
		TeacherTokenExp: time.Hour,
		TokenIssuer:     "marketday.test",
	})
	teacherToken, _, err := jwtService.GenerateTeacherToken()
	require.NoError(t, err)
	studentToken, _, err := jwtService.GenerateStudentToken(&models.Student{ID: 7, Name: "Bomi", Grade: models.Grade4})
	require.NoError(t, err)

	m := NewAuthMiddleware(jwtService)
	router := gin.New()
	router.GET("/teacher", append(m.TeacherRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"student", "Bearer " + studentToken, http.StatusForbidden},
		{"teacher", "Bearer " + teacherToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/teacher", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestOptionalAuthStoresClaims(t *testing.T) {
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "s", StudentTokenExp: time.Hour, TeacherTokenExp: time.Hour})
	token, _, err := jwtService.GenerateStudentToken(&models.Student{ID: 3})
	require.NoError(t, err)

	var seen *auth.Claims
	router := gin.New()
	router.POST("/purchase", NewAuthMiddleware(jwtService).OptionalAuth(), func(c *gin.Context) {
		seen, _ = ClaimsFrom(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/purchase", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)

	req := httptest.NewRequest(http.MethodPost, "/purchase", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, int64(3), seen.StudentID)
}
