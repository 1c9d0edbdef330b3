package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// StatsRepository computes dashboard aggregates in SQL
type StatsRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

var _ IStatsRepository = (*StatsRepository)(nil)

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db DBTX) *StatsRepository {
	return &StatsRepository{
		db: db,
		sb: psql,
	}
}

// Summary aggregates the whole market or a single grade
func (r *StatsRepository) Summary(ctx context.Context, grade *models.Grade, topItems int) (*models.Stats, error) {
	stats := &models.Stats{Grade: grade, TopItems: []models.TopItem{}}

	var studentScope, purchaseScope squirrel.Sqlizer = squirrel.Expr("TRUE"), squirrel.Expr("TRUE")
	if grade != nil {
		studentScope = squirrel.Eq{"grade": *grade}
		purchaseScope = squirrel.Eq{"s.grade": *grade}
	}

	totalsSQL, totalsArgs, err := r.sb.Select("COUNT(*)", "COALESCE(SUM(ticket_count), 0)").
		From("students").
		Where(studentScope).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student totals query: %w", err)
	}
	if err := r.db.QueryRow(ctx, totalsSQL, totalsArgs...).Scan(&stats.StudentCount, &stats.TotalTickets); err != nil {
		logger.Error().Err(err).Msg("Error executing student totals query")
		return nil, fmt.Errorf("error computing student totals: %w", err)
	}

	purchasesSQL, purchasesArgs, err := r.sb.Select("COUNT(*)", "COUNT(*) FILTER (WHERE NOT p.is_delivered)").
		From("purchases p").
		Join("students s ON s.id = p.student_id").
		Where(purchaseScope).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build purchase totals query: %w", err)
	}
	if err := r.db.QueryRow(ctx, purchasesSQL, purchasesArgs...).Scan(&stats.TotalPurchases, &stats.PendingDeliveries); err != nil {
		logger.Error().Err(err).Msg("Error executing purchase totals query")
		return nil, fmt.Errorf("error computing purchase totals: %w", err)
	}

	if topItems > 0 {
		stats.TopItems, err = r.topItems(ctx, purchaseScope, topItems)
		if err != nil {
			return nil, err
		}
	}

	topSQL, topArgs, err := r.sb.Select(studentColumns...).
		From("students").
		Where(studentScope).
		OrderBy("ticket_count DESC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build top student query: %w", err)
	}
	top, err := scanStudent(r.db.QueryRow(ctx, topSQL, topArgs...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		logger.Error().Err(err).Msg("Error executing top student query")
		return nil, fmt.Errorf("error finding top student: %w", err)
	default:
		stats.TopStudent = top
	}

	return stats, nil
}

func (r *StatsRepository) topItems(ctx context.Context, scope squirrel.Sqlizer, limit int) ([]models.TopItem, error) {
	sql, args, err := r.sb.Select("i.id", "i.name", "COUNT(*) AS purchase_count").
		From("purchases p").
		Join("items i ON i.id = p.item_id").
		Join("students s ON s.id = p.student_id").
		Where(scope).
		GroupBy("i.id", "i.name").
		OrderBy("purchase_count DESC", "i.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build top items query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing top items query")
		return nil, fmt.Errorf("error querying top items: %w", err)
	}
	defer rows.Close()

	items := []models.TopItem{}
	for rows.Next() {
		var t models.TopItem
		if err := rows.Scan(&t.ItemID, &t.Name, &t.PurchaseCount); err != nil {
			return nil, fmt.Errorf("error scanning top item row: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top item rows: %w", err)
	}
	return items, nil
}

// GradeBreakdown groups student counts and balances by grade
func (r *StatsRepository) GradeBreakdown(ctx context.Context) ([]models.GradeStats, error) {
	sql, args, err := r.sb.Select("grade", "COUNT(*)", "COALESCE(SUM(ticket_count), 0)").
		From("students").
		GroupBy("grade").
		OrderBy("grade ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build grade breakdown query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing grade breakdown query")
		return nil, fmt.Errorf("error querying grade breakdown: %w", err)
	}
	defer rows.Close()

	var out []models.GradeStats
	for rows.Next() {
		var g models.GradeStats
		if err := rows.Scan(&g.Grade, &g.StudentCount, &g.TotalTickets); err != nil {
			return nil, fmt.Errorf("error scanning grade breakdown row: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grade breakdown rows: %w", err)
	}
	return out, nil
}
