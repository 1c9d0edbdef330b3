package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appAuth "github.com/yigit/marketday/internal/app/auth"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/middleware"
)

// MarketController serves the student-facing market endpoints
type MarketController struct {
	queryService  services.QueryService
	ledgerService services.LedgerService
	authzService  *appAuth.AuthorizationService
	logger        zerolog.Logger
}

// NewMarketController creates a new MarketController
func NewMarketController(
	queryService services.QueryService,
	ledgerService services.LedgerService,
	authzService *appAuth.AuthorizationService,
	logger zerolog.Logger,
) *MarketController {
	return &MarketController{
		queryService:  queryService,
		ledgerService: ledgerService,
		authzService:  authzService,
		logger:        logger,
	}
}

// ListStudents handles GET /api/students/?grade=N
func (c *MarketController) ListStudents(ctx *gin.Context) {
	var query dto.StudentListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	var grade *models.Grade
	if query.Grade != nil {
		g := models.Grade(*query.Grade)
		grade = &g
	}

	students, err := c.queryService.ListStudents(ctx.Request.Context(), grade)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, students)
}

// ListItems handles GET /api/items/
func (c *MarketController) ListItems(ctx *gin.Context) {
	items, err := c.queryService.ListItems(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// StudentDetail handles GET /api/student/:id/
func (c *MarketController) StudentDetail(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	profile, err := c.queryService.StudentProfile(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.StudentDetailResponse{
		Student:   profile.Student,
		Purchases: profile.Purchases,
	})
}

// Purchase handles POST /api/purchase/. The caller must be the buying student or a teacher.
func (c *MarketController) Purchase(ctx *gin.Context) {
	var req dto.PurchaseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	claims, _ := middleware.ClaimsFrom(ctx)
	if err := c.authzService.CanActForStudent(claims, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	outcome, err := c.ledgerService.Purchase(ctx.Request.Context(), req.StudentID, req.ItemID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Debug().Int64("studentID", req.StudentID).Int64("itemID", req.ItemID).Msg("Purchase served")
	ctx.JSON(http.StatusOK, dto.PurchaseResponse{
		Status:  dto.StatusSuccess,
		Message: fmt.Sprintf("%s purchased!", outcome.Item.Name),
		Student: outcome.Student,
	})
}
