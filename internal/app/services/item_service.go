package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/filestorage"
	"github.com/yigit/marketday/internal/pkg/validation"
)

// utf8BOM lets spreadsheet programs detect UTF-8 in exported files
const utf8BOM = "\ufeff"

// itemImagePath is the storage sub directory for item pictures
const itemImagePath = "items"

// ExportColumns is the header row written by ExportCSV
var ExportColumns = []string{"id", "name", "cost", "quantity", "image_url", "link"}

// ItemSettings holds catalogue defaults
type ItemSettings struct {
	DefaultQuantity int
	DefaultCost     int
	MaxImportRows   int
}

// DefaultItemSettings mirrors the configuration defaults
func DefaultItemSettings() ItemSettings {
	return ItemSettings{DefaultQuantity: 10, DefaultCost: 1, MaxImportRows: 500}
}

// CreateItemInput holds the fields for a new item. A nil Quantity uses the default stock.
type CreateItemInput struct {
	Name     string
	Cost     int
	Quantity *int
	Link     *string
	ImageURL *string
}

// UpdateItemInput changes only the fields that are set. An empty Link or ImageURL clears it.
type UpdateItemInput struct {
	Name     *string
	Cost     *int
	Quantity *int
	Link     *string
	ImageURL *string
}

// SkippedRow describes an import row that was not turned into an item
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult reports what an import created
type ImportResult struct {
	Created []*models.Item
	Skipped []SkippedRow
}

// ItemService manages the item catalogue
type ItemService interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, itemID int64) error
	AttachImage(ctx context.Context, itemID int64, file *multipart.FileHeader) (*models.Item, error)
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
	ExportCSV(ctx context.Context, w io.Writer) error
	WriteTemplate(w io.Writer) error
}

type itemServiceImpl struct {
	store    repositories.Store
	storage  filestorage.FileStorage
	settings ItemSettings
	logger   zerolog.Logger
}

// NewItemService creates a new item service instance. storage may be nil, which disables uploads.
func NewItemService(store repositories.Store, storage filestorage.FileStorage, settings ItemSettings, logger zerolog.Logger) ItemService {
	return &itemServiceImpl{
		store:    store,
		storage:  storage,
		settings: settings,
		logger:   logger.With().Str("component", "items").Logger(),
	}
}

func validateItemName(name string) error {
	if !validation.ValidItemName(name) {
		return fmt.Errorf("%w: item name must be 1 to %d printable characters", apperrors.ErrValidationFailed, validation.ItemNameMaxLength)
	}
	return nil
}

func validateCost(cost int) error {
	if cost <= 0 {
		return fmt.Errorf("%w: cost must be at least 1 ticket", apperrors.ErrValidationFailed)
	}
	if cost > validation.MaxCount {
		return fmt.Errorf("%w: cost cannot exceed %d tickets", apperrors.ErrValidationFailed, validation.MaxCount)
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", apperrors.ErrValidationFailed)
	}
	if quantity > validation.MaxCount {
		return fmt.Errorf("%w: quantity cannot exceed %d", apperrors.ErrValidationFailed, validation.MaxCount)
	}
	return nil
}

// optionalString trims s and maps blank values to nil
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// CreateItem adds an item to the catalogue
func (s *itemServiceImpl) CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	if err := validateItemName(input.Name); err != nil {
		return nil, err
	}
	if err := validateCost(input.Cost); err != nil {
		return nil, err
	}

	quantity := s.settings.DefaultQuantity
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:     strings.TrimSpace(input.Name),
		Cost:     input.Cost,
		Quantity: quantity,
		Link:     optionalString(input.Link),
		ImageURL: optionalString(input.ImageURL),
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Items().Create(ctx, item)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating item: %w", err)
	}

	s.logger.Info().Int64("itemID", item.ID).Str("name", item.Name).Int("quantity", item.Quantity).Msg("Item created")
	return item, nil
}

// UpdateItem edits an item. Cost changes do not affect existing purchases.
func (s *itemServiceImpl) UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*models.Item, error) {
	if err := validateID(itemID, "item"); err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := validateItemName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Cost != nil {
		if err := validateCost(*input.Cost); err != nil {
			return nil, err
		}
	}
	if input.Quantity != nil {
		if err := validateQuantity(*input.Quantity); err != nil {
			return nil, err
		}
	}

	var item *models.Item
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		item, err = tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.Cost != nil {
			item.Cost = *input.Cost
		}
		if input.Quantity != nil {
			item.Quantity = *input.Quantity
		}
		if input.Link != nil {
			item.Link = optionalString(input.Link)
		}
		if input.ImageURL != nil {
			item.ImageURL = optionalString(input.ImageURL)
		}
		return tx.Items().Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("itemID", itemID).Msg("Item updated")
	return item, nil
}

// DeleteItem removes an item and its purchases, then its stored image
func (s *itemServiceImpl) DeleteItem(ctx context.Context, itemID int64) error {
	if err := validateID(itemID, "item"); err != nil {
		return err
	}

	var imageURL *string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		item, err := tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		imageURL = item.ImageURL
		return tx.Items().Delete(ctx, itemID)
	})
	if err != nil {
		return err
	}

	s.removeImage(imageURL)
	s.logger.Warn().Int64("itemID", itemID).Msg("Item deleted with purchase history")
	return nil
}

// AttachImage stores an uploaded picture and points the item at it
func (s *itemServiceImpl) AttachImage(ctx context.Context, itemID int64, file *multipart.FileHeader) (*models.Item, error) {
	if err := validateID(itemID, "item"); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, apperrors.NewBadRequestError("Image uploads are not enabled")
	}
	if file == nil {
		return nil, apperrors.NewValidationError("An image file is required")
	}

	url, err := s.storage.SaveFileWithPath(file, itemImagePath)
	if err != nil {
		if errors.Is(err, filestorage.ErrUnsupportedType) {
			return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Unsupported image type").
				WithDetails(map[string]interface{}{"filename": file.Filename})
		}
		return nil, fmt.Errorf("error saving item image: %w", err)
	}

	var item *models.Item
	var previous *string
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		item, err = tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		previous = item.ImageURL
		item.ImageURL = &url
		return tx.Items().SetImageURL(ctx, itemID, &url)
	})
	if err != nil {
		s.removeImage(&url)
		return nil, err
	}

	s.removeImage(previous)
	s.logger.Info().Int64("itemID", itemID).Str("imageURL", url).Msg("Item image attached")
	return item, nil
}

func (s *itemServiceImpl) removeImage(url *string) {
	if s.storage == nil || url == nil {
		return
	}
	if err := s.storage.DeleteFile(*url); err != nil {
		s.logger.Warn().Err(err).Str("imageURL", *url).Msg("Failed to delete item image")
	}
}

// importColumns is the positional layout used when a file has no header row
var importColumns = csvColumns{"name": 0, "cost": 1, "quantity": 2, "image_url": 3, "link": -1}

// csvColumns maps a column title to its index, -1 when absent
type csvColumns map[string]int

func (c csvColumns) cell(row []string, column string) string {
	idx, ok := c[column]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportCSV creates one item per row of name,cost,quantity,image_url.
// A first row whose cost column is not a number is treated as a header, and
// its titles then locate the columns, so exported files import as well.
// Rows without a name are skipped. Unusable cost and quantity values fall back
// to the configured defaults. All rows are created in one transaction.
func (s *itemServiceImpl) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Could not read CSV file").
			WithDetails(map[string]interface{}{"cause": err.Error()})
	}

	start, columns := 0, importColumns
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start, columns = 1, headerColumns(rows[0])
	}
	if limit := s.settings.MaxImportRows; limit > 0 && len(rows)-start > limit {
		return nil, fmt.Errorf("%w: a CSV import may contain at most %d rows", apperrors.ErrValidationFailed, limit)
	}

	result := &ImportResult{}
	var items []*models.Item
	for i := start; i < len(rows); i++ {
		item, reason := s.itemFromRow(columns, rows[i])
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: i + 1, Reason: reason})
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return result, nil
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, item := range items {
			if _, err := tx.Items().Create(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error importing items: %w", err)
	}

	result.Created = items
	s.logger.Info().Int("created", len(items)).Int("skipped", len(result.Skipped)).Msg("Items imported from CSV")
	return result, nil
}

func (s *itemServiceImpl) itemFromRow(columns csvColumns, row []string) (*models.Item, string) {
	name := columns.cell(row, "name")
	if name == "" {
		return nil, "missing name"
	}
	if !validation.ValidItemName(name) {
		return nil, "invalid name"
	}

	cost, err := strconv.Atoi(columns.cell(row, "cost"))
	if errors.Is(err, strconv.ErrRange) || cost > validation.MaxCount {
		return nil, "cost out of range"
	}
	if err != nil || cost <= 0 {
		cost = s.settings.DefaultCost
	}
	quantity, err := strconv.Atoi(columns.cell(row, "quantity"))
	if errors.Is(err, strconv.ErrRange) || quantity > validation.MaxCount {
		return nil, "quantity out of range"
	}
	if err != nil || quantity < 0 {
		quantity = s.settings.DefaultQuantity
	}

	imageURL := columns.cell(row, "image_url")
	link := columns.cell(row, "link")
	return &models.Item{
		Name:     name,
		Cost:     cost,
		Quantity: quantity,
		ImageURL: optionalString(&imageURL),
		Link:     optionalString(&link),
	}, ""
}

// isHeaderRow reports whether row looks like column titles rather than an item
func isHeaderRow(row []string) bool {
	if len(row) < 2 {
		return len(row) == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "name")
	}
	_, err := strconv.Atoi(strings.TrimSpace(row[1]))
	return err != nil && !errors.Is(err, strconv.ErrRange)
}

// headerColumns locates the known titles in header. Unknown headers keep the positional layout.
func headerColumns(header []string) csvColumns {
	columns := csvColumns{}
	for i, title := range header {
		key := strings.ToLower(strings.TrimSpace(title))
		if _, known := importColumns[key]; known {
			columns[key] = i
		}
	}
	if _, ok := columns["name"]; !ok {
		return importColumns
	}
	return columns
}

// stripBOM drops a leading UTF-8 byte order mark, as written by spreadsheet exports
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, []byte(utf8BOM)) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ExportCSV writes the whole catalogue ordered by name
func (s *itemServiceImpl) ExportCSV(ctx context.Context, w io.Writer) error {
	var items []*models.Item
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		items, err = tx.Items().List(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("error retrieving items: %w", err)
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			strconv.Itoa(item.Cost),
			strconv.Itoa(item.Quantity),
			deref(item.ImageURL),
			deref(item.Link),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplate writes an example import file
func (s *itemServiceImpl) WriteTemplate(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"name", "cost", "quantity", "image_url"},
		{"Pencil set", "3", "20", ""},
		{"Sticker pack", "1", "50", ""},
		{"Board game", "15", "2", ""},
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
