package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/dberrors"
	"github.com/yigit/marketday/internal/pkg/logger"
)

var studentColumns = []string{"id", "name", "grade", "ticket_count", "password", "created_at"}

// StudentRepository handles student database operations
type StudentRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

var _ IStudentRepository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: psql,
	}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	s := &models.Student{}
	err := row.Scan(&s.ID, &s.Name, &s.Grade, &s.TicketCount, &s.Password, &s.CreatedAt)
	return s, err
}

// studentWriteError translates constraint violations into application errors
func studentWriteError(err error) error {
	switch {
	case dberrors.IsCheckViolation(err, "students_ticket_count_check"):
		return apperrors.NewPolicyError("ticket balance cannot be negative")
	case dberrors.IsCheckViolation(err, "students_grade_check"):
		return apperrors.NewValidationError("grade must be one of 3, 4, 5 or 6")
	case dberrors.IsNumericOutOfRange(err):
		return apperrors.NewValidationError("ticket balance is too large")
	}
	return nil
}

// Create inserts a student and returns its ID
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	sql, args, err := r.sb.Insert("students").
		Columns("name", "grade", "ticket_count", "password").
		Values(student.Name, student.Grade, student.TicketCount, student.Password).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create student SQL")
		return 0, fmt.Errorf("failed to build create student query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&student.ID, &student.CreatedAt); err != nil {
		if appErr := studentWriteError(err); appErr != nil {
			return 0, appErr
		}
		logger.Error().Err(err).Msg("Error executing create student query")
		return 0, fmt.Errorf("error creating student: %w", err)
	}

	return student.ID, nil
}

func (r *StudentRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Student, error) {
	q := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Int64("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}

	return student, nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a student by ID and locks the row
func (r *StudentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.get(ctx, id, true)
}

// List retrieves students ordered by grade, name and id
func (r *StudentRepository) List(ctx context.Context, grade *models.Grade) ([]*models.Student, error) {
	q := r.sb.Select(studentColumns...).
		From("students").
		OrderBy("grade ASC", "name ASC", "id ASC")
	if grade != nil {
		q = q.Where(squirrel.Eq{"grade": *grade})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list students SQL")
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning student row during list")
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating student rows")
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	return students, nil
}

// Update changes a student's name, grade and password hash
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	sql, args, err := r.sb.Update("students").
		SetMap(map[string]interface{}{
			"name":     student.Name,
			"grade":    student.Grade,
			"password": student.Password,
		}).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update student SQL")
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	return r.exec(ctx, student.ID, "update student", sql, args)
}

// SetTicketCount overwrites a student's balance
func (r *StudentRepository) SetTicketCount(ctx context.Context, id int64, ticketCount int) error {
	sql, args, err := r.sb.Update("students").
		Set("ticket_count", ticketCount).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building set ticket count SQL")
		return fmt.Errorf("failed to build set ticket count query: %w", err)
	}

	return r.exec(ctx, id, "set ticket count", sql, args)
}

// Delete removes a student; purchases and ledger entries cascade
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("students").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete student SQL")
		return fmt.Errorf("failed to build delete student query: %w", err)
	}

	return r.exec(ctx, id, "delete student", sql, args)
}

func (r *StudentRepository) exec(ctx context.Context, id int64, op, sql string, args []interface{}) error {
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if appErr := studentWriteError(err); appErr != nil {
			return appErr
		}
		logger.Error().Err(err).Int64("studentID", id).Msgf("Error executing %s query", op)
		return fmt.Errorf("error executing %s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}
