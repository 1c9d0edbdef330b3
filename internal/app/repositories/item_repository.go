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

var itemColumns = []string{"id", "name", "cost", "link", "image_url", "quantity"}

// ItemRepository handles item database operations
type ItemRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

var _ IItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository
func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{
		db: db,
		sb: psql,
	}
}

func scanItem(row pgx.Row) (*models.Item, error) {
	i := &models.Item{}
	err := row.Scan(&i.ID, &i.Name, &i.Cost, &i.Link, &i.ImageURL, &i.Quantity)
	return i, err
}

func itemWriteError(err error) error {
	switch {
	case dberrors.IsCheckViolation(err, "items_quantity_check"):
		return apperrors.NewPolicyError("item quantity cannot be negative")
	case dberrors.IsCheckViolation(err, "items_cost_check"):
		return apperrors.NewValidationError("item cost must be positive")
	case dberrors.IsNumericOutOfRange(err):
		return apperrors.NewValidationError("item cost or quantity is too large")
	}
	return nil
}

// Create inserts an item and returns its ID
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) (int64, error) {
	sql, args, err := r.sb.Insert("items").
		Columns("name", "cost", "link", "image_url", "quantity").
		Values(item.Name, item.Cost, item.Link, item.ImageURL, item.Quantity).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create item SQL")
		return 0, fmt.Errorf("failed to build create item query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&item.ID); err != nil {
		if appErr := itemWriteError(err); appErr != nil {
			return 0, appErr
		}
		logger.Error().Err(err).Msg("Error executing create item query")
		return 0, fmt.Errorf("error creating item: %w", err)
	}

	return item.ID, nil
}

func (r *ItemRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Item, error) {
	q := r.sb.Select(itemColumns...).
		From("items").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get item SQL")
		return nil, fmt.Errorf("failed to build get item query: %w", err)
	}

	item, err := scanItem(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrItemNotFound
		}
		logger.Error().Err(err).Int64("itemID", id).Msg("Error scanning item row")
		return nil, fmt.Errorf("error getting item by ID: %w", err)
	}

	return item, nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves an item by ID and locks the row
func (r *ItemRepository) GetForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	return r.get(ctx, id, true)
}

// List retrieves all items ordered by name
func (r *ItemRepository) List(ctx context.Context) ([]*models.Item, error) {
	sql, args, err := r.sb.Select(itemColumns...).
		From("items").
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list items SQL")
		return nil, fmt.Errorf("failed to build list items query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list items query")
		return nil, fmt.Errorf("error querying items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning item row during list")
			return nil, fmt.Errorf("error scanning item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating item rows")
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// Update overwrites every editable item column
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	sql, args, err := r.sb.Update("items").
		SetMap(map[string]interface{}{
			"name":      item.Name,
			"cost":      item.Cost,
			"link":      item.Link,
			"image_url": item.ImageURL,
			"quantity":  item.Quantity,
		}).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update item SQL")
		return fmt.Errorf("failed to build update item query: %w", err)
	}

	return r.exec(ctx, item.ID, "update item", sql, args)
}

// SetQuantity overwrites the remaining stock of an item
func (r *ItemRepository) SetQuantity(ctx context.Context, id int64, quantity int) error {
	sql, args, err := r.sb.Update("items").
		Set("quantity", quantity).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building set quantity SQL")
		return fmt.Errorf("failed to build set quantity query: %w", err)
	}

	return r.exec(ctx, id, "set item quantity", sql, args)
}

// SetImageURL stores or clears the image reference of an item
func (r *ItemRepository) SetImageURL(ctx context.Context, id int64, imageURL *string) error {
	sql, args, err := r.sb.Update("items").
		Set("image_url", imageURL).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building set image URL SQL")
		return fmt.Errorf("failed to build set image URL query: %w", err)
	}

	return r.exec(ctx, id, "set item image", sql, args)
}

// Delete removes an item; its purchases cascade
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete item SQL")
		return fmt.Errorf("failed to build delete item query: %w", err)
	}

	return r.exec(ctx, id, "delete item", sql, args)
}

func (r *ItemRepository) exec(ctx context.Context, id int64, op, sql string, args []interface{}) error {
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if appErr := itemWriteError(err); appErr != nil {
			return appErr
		}
		logger.Error().Err(err).Int64("itemID", id).Msgf("Error executing %s query", op)
		return fmt.Errorf("error executing %s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrItemNotFound
	}
	return nil
}
