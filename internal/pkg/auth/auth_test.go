package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		StudentTokenExp: time.Hour,
		TeacherTokenExp: 2 * time.Hour,
		TokenIssuer:     "marketday.test",
	})
}

func TestStudentTokenRoundTrip(t *testing.T) {
	svc := newTestService()

	token, expiresIn, err := svc.GenerateStudentToken(&models.Student{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.StudentID)
	assert.False(t, claims.IsTeacher())
	assert.Equal(t, "student:42", claims.Subject)
}

func TestTeacherToken(t *testing.T) {
	svc := newTestService()

	token, expiresIn, err := svc.GenerateTeacherToken()
	require.NoError(t, err)
	assert.Equal(t, 7200, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.True(t, claims.IsTeacher())
	assert.Zero(t, claims.StudentID)
}

func TestExpiredToken(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	token, _, err := svc.GenerateStudentToken(&models.Student{ID: 1})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAndExtractClaims(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	other := NewJWTService(JWTConfig{SecretKey: "other", StudentTokenExp: time.Hour, TokenIssuer: "marketday.test"})
	token, _, err := other.GenerateStudentToken(&models.Student{ID: 1})
	require.NoError(t, err)

	_, err = newTestService().ValidateAndExtractClaims(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = ExtractBearerToken("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}
