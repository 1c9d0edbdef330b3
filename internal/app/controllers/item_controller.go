package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/middleware"
)

// maxImportBytes bounds the size of an uploaded CSV file
const maxImportBytes = 2 << 20

// ItemController serves the teacher catalogue endpoints
type ItemController struct {
	itemService  services.ItemService
	queryService services.QueryService
	logger       zerolog.Logger
}

// NewItemController creates a new ItemController
func NewItemController(itemService services.ItemService, queryService services.QueryService, logger zerolog.Logger) *ItemController {
	return &ItemController{
		itemService:  itemService,
		queryService: queryService,
		logger:       logger,
	}
}

// ListItems handles GET /api/teacher/items
func (c *ItemController) ListItems(ctx *gin.Context) {
	items, err := c.queryService.ListItems(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(items, ""))
}

// CreateItem handles POST /api/teacher/items
func (c *ItemController) CreateItem(ctx *gin.Context) {
	var req dto.CreateItemRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	item, err := c.itemService.CreateItem(ctx.Request.Context(), services.CreateItemInput{
		Name:     req.Name,
		Cost:     req.Cost,
		Quantity: req.Quantity,
		Link:     req.Link,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(item, "Item created"))
}

// UpdateItem handles PUT /api/teacher/items/:id
func (c *ItemController) UpdateItem(ctx *gin.Context) {
	itemID, ok := parseIDParam(ctx, "id", "item")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	item, err := c.itemService.UpdateItem(ctx.Request.Context(), itemID, services.UpdateItemInput{
		Name:     req.Name,
		Cost:     req.Cost,
		Quantity: req.Quantity,
		Link:     req.Link,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(item, "Item updated"))
}

// DeleteItem handles DELETE /api/teacher/items/:id
func (c *ItemController) DeleteItem(ctx *gin.Context) {
	itemID, ok := parseIDParam(ctx, "id", "item")
	if !ok {
		return
	}

	if err := c.itemService.DeleteItem(ctx.Request.Context(), itemID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Item deleted"))
}

// UploadImage handles POST /api/teacher/items/:id/image (multipart field "image")
func (c *ItemController) UploadImage(ctx *gin.Context) {
	itemID, ok := parseIDParam(ctx, "id", "item")
	if !ok {
		return
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "An image file is required").
			WithField("image").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	item, err := c.itemService.AttachImage(ctx.Request.Context(), itemID, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(item, "Image uploaded"))
}

// ImportItems handles POST /api/teacher/items/import with a raw CSV body or a multipart "file"
func (c *ItemController) ImportItems(ctx *gin.Context) {
	var body io.Reader
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, err := ctx.FormFile("file")
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "A CSV file is required").
				WithField("file").
				WithDetails(err.Error())
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		f, err := fh.Open()
		if err != nil {
			middleware.HandleAPIError(ctx, fmt.Errorf("error opening uploaded CSV: %w", err))
			return
		}
		defer f.Close()
		body = f
	} else {
		body = ctx.Request.Body
	}

	result, err := c.itemService.ImportCSV(ctx.Request.Context(), io.LimitReader(body, maxImportBytes))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.ImportResultResponse{
		Created: len(result.Created),
		Items:   result.Created,
		Skipped: make([]dto.ImportSkippedRow, 0, len(result.Skipped)),
	}
	for _, s := range result.Skipped {
		resp.Skipped = append(resp.Skipped, dto.ImportSkippedRow{Line: s.Line, Reason: s.Reason})
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, fmt.Sprintf("%d items imported", resp.Created)))
}

// ExportItems handles GET /api/teacher/items/export; ?template=true returns an example file
func (c *ItemController) ExportItems(ctx *gin.Context) {
	filename := fmt.Sprintf("items_%s.csv", time.Now().Format("2006-01-02"))
	write := func(w io.Writer) error { return c.itemService.ExportCSV(ctx.Request.Context(), w) }
	if ctx.Query("template") == "true" {
		filename = "items_template.csv"
		write = c.itemService.WriteTemplate
	}

	var buf strings.Builder
	if err := write(&buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(buf.String()))
}
