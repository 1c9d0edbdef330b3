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

var purchaseColumns = []string{"id", "student_id", "item_id", "timestamp", "is_delivered", "cost_paid"}

// PurchaseRepository handles purchase database operations
type PurchaseRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

var _ IPurchaseRepository = (*PurchaseRepository)(nil)

// NewPurchaseRepository creates a new PurchaseRepository
func NewPurchaseRepository(db DBTX) *PurchaseRepository {
	return &PurchaseRepository{
		db: db,
		sb: psql,
	}
}

func scanPurchase(row pgx.Row) (*models.Purchase, error) {
	p := &models.Purchase{}
	err := row.Scan(&p.ID, &p.StudentID, &p.ItemID, &p.Timestamp, &p.IsDelivered, &p.CostPaid)
	return p, err
}

// Create inserts a purchase and returns its ID
func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) (int64, error) {
	sql, args, err := r.sb.Insert("purchases").
		Columns("student_id", "item_id", "timestamp", "is_delivered", "cost_paid").
		Values(purchase.StudentID, purchase.ItemID, purchase.Timestamp, purchase.IsDelivered, purchase.CostPaid).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create purchase SQL")
		return 0, fmt.Errorf("failed to build create purchase query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&purchase.ID); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.NewResourceNotFoundError("student or item not found")
		}
		logger.Error().Err(err).Msg("Error executing create purchase query")
		return 0, fmt.Errorf("error creating purchase: %w", err)
	}

	return purchase.ID, nil
}

func (r *PurchaseRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Purchase, error) {
	q := r.sb.Select(purchaseColumns...).
		From("purchases").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get purchase SQL")
		return nil, fmt.Errorf("failed to build get purchase query: %w", err)
	}

	purchase, err := scanPurchase(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPurchaseNotFound
		}
		logger.Error().Err(err).Int64("purchaseID", id).Msg("Error scanning purchase row")
		return nil, fmt.Errorf("error getting purchase by ID: %w", err)
	}

	return purchase, nil
}

// GetByID retrieves a purchase by ID
func (r *PurchaseRepository) GetByID(ctx context.Context, id int64) (*models.Purchase, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a purchase by ID and locks the row
func (r *PurchaseRepository) GetForUpdate(ctx context.Context, id int64) (*models.Purchase, error) {
	return r.get(ctx, id, true)
}

// SetDelivered updates the delivery flag
func (r *PurchaseRepository) SetDelivered(ctx context.Context, id int64, delivered bool) error {
	sql, args, err := r.sb.Update("purchases").
		Set("is_delivered", delivered).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building set delivered SQL")
		return fmt.Errorf("failed to build set delivered query: %w", err)
	}

	return r.exec(ctx, id, "set delivered", sql, args)
}

// Delete removes a purchase record
func (r *PurchaseRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("purchases").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete purchase SQL")
		return fmt.Errorf("failed to build delete purchase query: %w", err)
	}

	return r.exec(ctx, id, "delete purchase", sql, args)
}

func (r *PurchaseRepository) exec(ctx context.Context, id int64, op, sql string, args []interface{}) error {
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("purchaseID", id).Msgf("Error executing %s query", op)
		return fmt.Errorf("error executing %s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrPurchaseNotFound
	}
	return nil
}

// viewQuery selects purchases joined with their student and current item data
func (r *PurchaseRepository) viewQuery() squirrel.SelectBuilder {
	return r.sb.Select(
		"p.id", "p.student_id", "p.item_id", "p.timestamp", "p.is_delivered", "p.cost_paid",
		"i.name", "i.cost", "s.name", "s.grade",
	).
		From("purchases p").
		Join("items i ON i.id = p.item_id").
		Join("students s ON s.id = p.student_id")
}

func (r *PurchaseRepository) queryViews(ctx context.Context, q squirrel.SelectBuilder) ([]*models.PurchaseView, error) {
	sql, args, err := q.OrderBy("p.timestamp DESC", "p.id DESC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list purchases SQL")
		return nil, fmt.Errorf("failed to build list purchases query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list purchases query")
		return nil, fmt.Errorf("error querying purchases: %w", err)
	}
	defer rows.Close()

	views := []*models.PurchaseView{}
	for rows.Next() {
		v := &models.PurchaseView{}
		if err := rows.Scan(
			&v.ID, &v.StudentID, &v.ItemID, &v.Timestamp, &v.IsDelivered, &v.CostPaid,
			&v.ItemName, &v.ItemCost, &v.StudentName, &v.StudentGrade,
		); err != nil {
			logger.Error().Err(err).Msg("Error scanning purchase row during list")
			return nil, fmt.Errorf("error scanning purchase row: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating purchase rows")
		return nil, fmt.Errorf("error iterating purchase rows: %w", err)
	}

	return views, nil
}

// ListByStudent returns a student's purchases newest first
func (r *PurchaseRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.PurchaseView, error) {
	return r.queryViews(ctx, r.viewQuery().Where(squirrel.Eq{"p.student_id": studentID}))
}

func deliveryPredicate(filter models.DeliveryFilter) squirrel.Sqlizer {
	switch filter {
	case models.DeliveryPending:
		return squirrel.Eq{"is_delivered": false}
	case models.DeliveryDelivered:
		return squirrel.Eq{"is_delivered": true}
	}
	return nil
}

// List returns one page of purchases and the total matching the filter
func (r *PurchaseRepository) List(ctx context.Context, filter PurchaseFilter) ([]*models.PurchaseView, int, error) {
	countQ := r.sb.Select("COUNT(*)").From("purchases")
	q := r.viewQuery()
	if pred := deliveryPredicate(filter.Delivery); pred != nil {
		countQ = countQ.Where(pred)
		q = q.Where(squirrel.Eq{"p.is_delivered": filter.Delivery == models.DeliveryDelivered})
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count purchases SQL")
		return nil, 0, fmt.Errorf("failed to build count purchases query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error executing count purchases query")
		return nil, 0, fmt.Errorf("error counting purchases: %w", err)
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	views, err := r.queryViews(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}
