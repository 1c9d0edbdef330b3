package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// LedgerRepository handles ledger entry database operations
type LedgerRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

var _ ILedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{
		db: db,
		sb: psql,
	}
}

// Append writes an entry and fills in its ID and creation time
func (r *LedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	sql, args, err := r.sb.Insert("ledger_entries").
		Columns("student_id", "item_id", "purchase_id", "kind", "ticket_delta", "stock_delta", "balance_after").
		Values(entry.StudentID, entry.ItemID, entry.PurchaseID, entry.Kind, entry.TicketDelta, entry.StockDelta, entry.BalanceAfter).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building append ledger entry SQL")
		return 0, fmt.Errorf("failed to build append ledger entry query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		logger.Error().Err(err).
			Int64("studentID", entry.StudentID).
			Str("kind", string(entry.Kind)).
			Msg("Error executing append ledger entry query")
		return 0, fmt.Errorf("error appending ledger entry: %w", err)
	}

	return entry.ID, nil
}

// ListByStudent returns a student's ledger newest first
func (r *LedgerRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.LedgerEntry, error) {
	sql, args, err := r.sb.Select(
		"id", "student_id", "item_id", "purchase_id", "kind",
		"ticket_delta", "stock_delta", "balance_after", "created_at",
	).
		From("ledger_entries").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list ledger entries SQL")
		return nil, fmt.Errorf("failed to build list ledger entries query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error executing list ledger entries query")
		return nil, fmt.Errorf("error querying ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.LedgerEntry{}
	for rows.Next() {
		e := &models.LedgerEntry{}
		if err := rows.Scan(
			&e.ID, &e.StudentID, &e.ItemID, &e.PurchaseID, &e.Kind,
			&e.TicketDelta, &e.StockDelta, &e.BalanceAfter, &e.CreatedAt,
		); err != nil {
			logger.Error().Err(err).Msg("Error scanning ledger entry row")
			return nil, fmt.Errorf("error scanning ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating ledger entry rows")
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}

	return entries, nil
}
