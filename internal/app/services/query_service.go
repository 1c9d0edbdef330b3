package services

import (
	"context"
	"fmt"

	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/helpers"
)

// TopItemsLimit is how many popular items the dashboard shows
const TopItemsLimit = 3

// StudentProfile is a student together with their purchase history
type StudentProfile struct {
	Student   *models.Student
	Purchases []*models.PurchaseView
}

// PurchasePage is one page of the delivery queue
type PurchasePage struct {
	Purchases []*models.PurchaseView
	Total     int
	Page      int
	Size      int
}

// QueryService answers read-only questions about the market. It never mutates.
type QueryService interface {
	GetStudent(ctx context.Context, studentID int64) (*models.Student, error)
	RosterByGrade(ctx context.Context, grade models.Grade) ([]*models.Student, error)
	ListStudents(ctx context.Context, grade *models.Grade) ([]*models.Student, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	AggregateStats(ctx context.Context, grade *models.Grade) (*models.Stats, error)
	GradeBreakdown(ctx context.Context) ([]models.GradeStats, error)
	PurchaseHistory(ctx context.Context, studentID int64) ([]*models.PurchaseView, error)
	StudentProfile(ctx context.Context, studentID int64) (*StudentProfile, error)
	ListPurchases(ctx context.Context, filter models.DeliveryFilter, page, size int) (*PurchasePage, error)
	LedgerHistory(ctx context.Context, studentID int64) ([]*models.LedgerEntry, error)
}

type queryServiceImpl struct {
	store repositories.Store
}

// NewQueryService creates a new query service instance
func NewQueryService(store repositories.Store) QueryService {
	return &queryServiceImpl{store: store}
}

func validGrade(grade models.Grade) error {
	if !grade.Valid() {
		return fmt.Errorf("%w: grade must be one of 3, 4, 5 or 6", apperrors.ErrValidationFailed)
	}
	return nil
}

// GetStudent returns one student
func (s *queryServiceImpl) GetStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}

	var student *models.Student
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetByID(ctx, studentID)
		return err
	})
	return student, err
}

// RosterByGrade returns the students of one grade sorted by name
func (s *queryServiceImpl) RosterByGrade(ctx context.Context, grade models.Grade) ([]*models.Student, error) {
	if err := validGrade(grade); err != nil {
		return nil, err
	}
	return s.ListStudents(ctx, &grade)
}

// ListStudents returns every student ordered by grade then name, or one roster
func (s *queryServiceImpl) ListStudents(ctx context.Context, grade *models.Grade) ([]*models.Student, error) {
	if grade != nil {
		if err := validGrade(*grade); err != nil {
			return nil, err
		}
	}

	var students []*models.Student
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		students, err = tx.Students().List(ctx, grade)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving students: %w", err)
	}
	return students, nil
}

// ListItems returns the catalogue ordered by name
func (s *queryServiceImpl) ListItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		items, err = tx.Items().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving items: %w", err)
	}
	return items, nil
}

// AggregateStats summarises all students, or one grade when grade is set
func (s *queryServiceImpl) AggregateStats(ctx context.Context, grade *models.Grade) (*models.Stats, error) {
	if grade != nil {
		if err := validGrade(*grade); err != nil {
			return nil, err
		}
	}

	var stats *models.Stats
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		stats, err = tx.Stats().Summary(ctx, grade, TopItemsLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error computing stats: %w", err)
	}
	return stats, nil
}

// GradeBreakdown returns one entry per supported grade, including empty ones
func (s *queryServiceImpl) GradeBreakdown(ctx context.Context) ([]models.GradeStats, error) {
	var rows []models.GradeStats
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		rows, err = tx.Stats().GradeBreakdown(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error computing grade breakdown: %w", err)
	}

	byGrade := make(map[models.Grade]models.GradeStats, len(rows))
	for _, r := range rows {
		byGrade[r.Grade] = r
	}

	out := make([]models.GradeStats, 0, len(models.AllGrades))
	for _, g := range models.AllGrades {
		r, ok := byGrade[g]
		if !ok {
			r = models.GradeStats{Grade: g}
		}
		out = append(out, r)
	}
	return out, nil
}

// PurchaseHistory returns a student's purchases newest first with current item data
func (s *queryServiceImpl) PurchaseHistory(ctx context.Context, studentID int64) ([]*models.PurchaseView, error) {
	profile, err := s.StudentProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return profile.Purchases, nil
}

// StudentProfile returns a student and their purchase history read in one view
func (s *queryServiceImpl) StudentProfile(ctx context.Context, studentID int64) (*StudentProfile, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}

	profile := &StudentProfile{}
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if profile.Student, err = tx.Students().GetByID(ctx, studentID); err != nil {
			return err
		}
		profile.Purchases, err = tx.Purchases().ListByStudent(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListPurchases returns one page of the delivery queue, newest first
func (s *queryServiceImpl) ListPurchases(ctx context.Context, filter models.DeliveryFilter, page, size int) (*PurchasePage, error) {
	if filter == "" {
		filter = models.DeliveryAll
	}
	if !filter.Valid() {
		return nil, fmt.Errorf("%w: status must be one of pending, delivered or all", apperrors.ErrValidationFailed)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	if page < 1 {
		page = helpers.DefaultPage
	}

	result := &PurchasePage{Page: page, Size: limit}
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		result.Purchases, result.Total, err = tx.Purchases().List(ctx, repositories.PurchaseFilter{
			Delivery: filter,
			Offset:   offset,
			Limit:    limit,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving purchases: %w", err)
	}
	return result, nil
}

// LedgerHistory returns a student's audit trail newest first
func (s *queryServiceImpl) LedgerHistory(ctx context.Context, studentID int64) ([]*models.LedgerEntry, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}

	var entries []*models.LedgerEntry
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := tx.Students().GetByID(ctx, studentID); err != nil {
			return err
		}
		var err error
		entries, err = tx.Ledger().ListByStudent(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
