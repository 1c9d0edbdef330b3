package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/middleware"
	"github.com/yigit/marketday/internal/pkg/helpers"
)

// PurchaseController serves the teacher delivery queue
type PurchaseController struct {
	queryService  services.QueryService
	ledgerService services.LedgerService
	logger        zerolog.Logger
}

// NewPurchaseController creates a new PurchaseController
func NewPurchaseController(queryService services.QueryService, ledgerService services.LedgerService, logger zerolog.Logger) *PurchaseController {
	return &PurchaseController{
		queryService:  queryService,
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// ListPurchases handles GET /api/teacher/purchases?status=&page=&size=
func (c *PurchaseController) ListPurchases(ctx *gin.Context) {
	var query dto.PurchaseListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	page, err := c.queryService.ListPurchases(ctx.Request.Context(), models.DeliveryFilter(query.Status), query.Page, query.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      page.Purchases,
		Pagination: helpers.NewPaginationInfo(page.Total, page.Page, page.Size),
	}, ""))
}

func (c *PurchaseController) setDelivered(ctx *gin.Context, delivered bool) {
	purchaseID, ok := parseIDParam(ctx, "id", "purchase")
	if !ok {
		return
	}

	purchase, err := c.ledgerService.SetDelivered(ctx.Request.Context(), purchaseID, delivered)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(purchase, "Delivery status updated"))
}

// Deliver handles POST /api/teacher/purchases/:id/deliver
func (c *PurchaseController) Deliver(ctx *gin.Context) {
	c.setDelivered(ctx, true)
}

// Undeliver handles POST /api/teacher/purchases/:id/undeliver
func (c *PurchaseController) Undeliver(ctx *gin.Context) {
	c.setDelivered(ctx, false)
}

// Reverse handles POST /api/teacher/purchases/:id/reverse?force=true
func (c *PurchaseController) Reverse(ctx *gin.Context) {
	purchaseID, ok := parseIDParam(ctx, "id", "purchase")
	if !ok {
		return
	}

	var query dto.ReverseQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	outcome, err := c.ledgerService.ReverseAndRestock(ctx.Request.Context(), purchaseID, services.ReverseOptions{
		AllowDelivered: query.Force,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ReversalResponse{
		PurchaseID: outcome.PurchaseID,
		Refunded:   outcome.Refunded,
		Student:    outcome.Student,
		Item:       outcome.Item,
	}, "Purchase reversed and item restocked"))
}

// DeletePurchase handles DELETE /api/teacher/purchases/:id without refund or restock
func (c *PurchaseController) DeletePurchase(ctx *gin.Context) {
	purchaseID, ok := parseIDParam(ctx, "id", "purchase")
	if !ok {
		return
	}

	if err := c.ledgerService.DeletePurchase(ctx.Request.Context(), purchaseID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Purchase deleted"))
}
