package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/auth"
	"github.com/yigit/marketday/internal/pkg/validation"
)

// CreateStudentInput holds the fields a teacher fills in for a new student
type CreateStudentInput struct {
	Name        string
	Grade       models.Grade
	Password    string
	TicketCount int
}

// UpdateStudentInput changes only the fields that are set
type UpdateStudentInput struct {
	Name     *string
	Grade    *models.Grade
	Password *string
}

// StudentService manages the student roster and student credentials
type StudentService interface {
	CreateStudent(ctx context.Context, input CreateStudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, studentID int64, input UpdateStudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, studentID int64) error
	Authenticate(ctx context.Context, studentID int64, password string) (*models.Student, error)
}

type studentServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
	hash   func(string) (string, error)
}

// NewStudentService creates a new student service instance
func NewStudentService(store repositories.Store, logger zerolog.Logger) StudentService {
	return &studentServiceImpl{
		store:  store,
		logger: logger.With().Str("component", "students").Logger(),
		hash:   auth.HashPassword,
	}
}

func validateStudentName(name string) error {
	if !validation.ValidName(name) {
		return fmt.Errorf("%w: name must be 1 to %d printable characters", apperrors.ErrValidationFailed, validation.NameMaxLength)
	}
	return nil
}

func validateStudentPassword(password string) error {
	if !validation.ValidPassword(password) {
		return fmt.Errorf("%w: password must be %d to %d characters", apperrors.ErrValidationFailed,
			validation.PasswordMinLength, validation.PasswordMaxLength)
	}
	return nil
}

// CreateStudent adds a student and records the opening balance in the ledger
func (s *studentServiceImpl) CreateStudent(ctx context.Context, input CreateStudentInput) (*models.Student, error) {
	if err := validateStudentName(input.Name); err != nil {
		return nil, err
	}
	if err := validGrade(input.Grade); err != nil {
		return nil, err
	}
	if err := validateStudentPassword(input.Password); err != nil {
		return nil, err
	}
	if input.TicketCount < 0 || input.TicketCount > validation.MaxCount {
		return nil, fmt.Errorf("%w: ticket count must be between 0 and %d", apperrors.ErrValidationFailed, validation.MaxCount)
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	student := &models.Student{
		Name:        strings.TrimSpace(input.Name),
		Grade:       input.Grade,
		TicketCount: input.TicketCount,
		Password:    hashed,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := tx.Students().Create(ctx, student); err != nil {
			return err
		}
		_, err := tx.Ledger().Append(ctx, &models.LedgerEntry{
			StudentID:    student.ID,
			Kind:         models.LedgerSet,
			TicketDelta:  student.TicketCount,
			BalanceAfter: student.TicketCount,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating student: %w", err)
	}

	s.logger.Info().Int64("studentID", student.ID).Int("grade", int(student.Grade)).Msg("Student created")
	return student, nil
}

// UpdateStudent changes a student's name, grade or password
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, studentID int64, input UpdateStudentInput) (*models.Student, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := validateStudentName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Grade != nil {
		if err := validGrade(*input.Grade); err != nil {
			return nil, err
		}
	}

	var hashed string
	if input.Password != nil {
		if err := validateStudentPassword(*input.Password); err != nil {
			return nil, err
		}
		var err error
		if hashed, err = s.hash(*input.Password); err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
	}

	var student *models.Student
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			student.Name = strings.TrimSpace(*input.Name)
		}
		if input.Grade != nil {
			student.Grade = *input.Grade
		}
		if hashed != "" {
			student.Password = hashed
		}
		return tx.Students().Update(ctx, student)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", studentID).Msg("Student updated")
	return student, nil
}

// DeleteStudent removes a student together with their purchases and ledger
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, studentID int64) error {
	if err := validateID(studentID, "student"); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().Delete(ctx, studentID)
	})
	if err != nil {
		return err
	}

	s.logger.Warn().Int64("studentID", studentID).Msg("Student deleted with purchase history")
	return nil
}

// Authenticate checks a student's password
func (s *studentServiceImpl) Authenticate(ctx context.Context, studentID int64, password string) (*models.Student, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}

	var student *models.Student
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetByID(ctx, studentID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error loading student: %w", err)
	}

	if !auth.CheckPassword(student.Password, password) {
		s.logger.Warn().Int64("studentID", studentID).Msg("Failed student login")
		return nil, apperrors.ErrInvalidCredentials
	}

	return student, nil
}
