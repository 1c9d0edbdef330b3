package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/auth"
)

func TestCreateStudentRecordsOpeningBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.students.CreateStudent(ctx, CreateStudentInput{Name: " Hana ", Grade: models.Grade5, Password: "1234", TicketCount: 6})
	require.NoError(t, err)
	assert.Equal(t, "Hana", s.Name)
	assert.NotEqual(t, "1234", s.Password)

	entries, err := f.query.LedgerHistory(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerSet, entries[0].Kind)
	assert.Equal(t, 6, entries[0].BalanceAfter)
}

func TestCreateStudentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateStudentInput
	}{
		{"blank name", CreateStudentInput{Name: "  ", Grade: models.Grade3, Password: "1234"}},
		{"bad grade", CreateStudentInput{Name: "Hana", Grade: 7, Password: "1234"}},
		{"short password", CreateStudentInput{Name: "Hana", Grade: models.Grade3, Password: "12"}},
		{"negative tickets", CreateStudentInput{Name: "Hana", Grade: models.Grade3, Password: "1234", TicketCount: -1}},
		{"too many tickets", CreateStudentInput{Name: "Hana", Grade: models.Grade3, Password: "1234", TicketCount: math.MaxInt32 + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.students.CreateStudent(ctx, tt.input)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}

	all, err := f.query.ListStudents(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.students.CreateStudent(ctx, CreateStudentInput{Name: "Hana", Grade: models.Grade5, Password: "1234", TicketCount: 2})
	require.NoError(t, err)

	updated, err := f.students.UpdateStudent(ctx, s.ID, UpdateStudentInput{Grade: gradePtr(models.Grade6), Password: strPtr("5678")})
	require.NoError(t, err)
	assert.Equal(t, models.Grade6, updated.Grade)
	assert.Equal(t, "Hana", updated.Name)
	assert.Equal(t, 2, updated.TicketCount)

	_, err = f.students.Authenticate(ctx, s.ID, "1234")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = f.students.Authenticate(ctx, s.ID, "5678")
	assert.NoError(t, err)

	_, err = f.students.UpdateStudent(ctx, s.ID, UpdateStudentInput{Grade: gradePtr(2)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.students.UpdateStudent(ctx, 404, UpdateStudentInput{Name: strPtr("Nobody")})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestDeleteStudentCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.addStudent(t, "Hana", models.Grade4, 5)
	i := f.addItem(t, "Pen", 2, 3)

	_, err := f.ledger.Purchase(ctx, s.ID, i.ID)
	require.NoError(t, err)

	require.NoError(t, f.students.DeleteStudent(ctx, s.ID))
	assert.Zero(t, f.purchaseCount(t))
	// the unit is not returned to stock
	assert.Equal(t, 2, f.item(t, i.ID).Quantity)

	_, err = f.query.GetStudent(ctx, s.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.ErrorIs(t, f.students.DeleteStudent(ctx, s.ID), apperrors.ErrResourceNotFound)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.students.CreateStudent(ctx, CreateStudentInput{Name: "Hana", Grade: models.Grade5, Password: "1234"})
	require.NoError(t, err)

	got, err := f.students.Authenticate(ctx, s.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = f.students.Authenticate(ctx, s.ID, "4321")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.students.Authenticate(ctx, 404, "1234")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAuthServiceLogins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.students.CreateStudent(ctx, CreateStudentInput{Name: "Hana", Grade: models.Grade5, Password: "1234"})
	require.NoError(t, err)

	teacherHash, err := f.students.hash("letmein")
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		StudentTokenExp: time.Hour,
		TeacherTokenExp: time.Hour,
		TokenIssuer:     "marketday.test",
	})
	svc := NewAuthService(f.students, jwtService, teacherHash, zerolog.Nop())

	studentLogin, err := svc.StudentLogin(ctx, s.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, s.ID, studentLogin.Student.ID)
	assert.Equal(t, 3600, studentLogin.ExpiresIn)

	claims, err := svc.ValidateToken(studentLogin.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, claims.StudentID)
	assert.False(t, claims.IsTeacher())

	_, err = svc.StudentLogin(ctx, s.ID, "nope")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	teacherLogin, err := svc.TeacherLogin(ctx, "letmein")
	require.NoError(t, err)
	assert.Nil(t, teacherLogin.Student)
	claims, err = svc.ValidateToken(teacherLogin.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsTeacher())

	_, err = svc.TeacherLogin(ctx, "guess")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}
