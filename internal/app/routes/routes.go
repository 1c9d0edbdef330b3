package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/marketday/internal/app/controllers"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/middleware"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	marketController *controllers.MarketController,
	teacherController *controllers.TeacherController,
	itemController *controllers.ItemController,
	purchaseController *controllers.PurchaseController,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter *middleware.IPRateLimiter,
	store Pinger,
) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": dto.StatusSuccess})
	})

	api := router.Group("/api")
	api.GET("/health", healthHandler(store))

	// --- Student-facing routes (paths kept compatible with the existing frontend) ---
	{
		api.GET("/students/", marketController.ListStudents)
		api.GET("/items/", marketController.ListItems)
		api.GET("/student/:id/", marketController.StudentDetail)
		api.POST("/login/", loginLimiter.Middleware(), authController.StudentLogin)
		api.POST("/logout/", authController.Logout)
		api.POST("/purchase/", authMiddleware.OptionalAuth(), marketController.Purchase)
	}

	// --- Teacher console ---
	teacher := api.Group("/teacher")
	teacher.POST("/login", loginLimiter.Middleware(), authController.TeacherLogin)

	protected := teacher.Group("")
	protected.Use(authMiddleware.TeacherRequired()...)
	{
		protected.GET("/dashboard", teacherController.Dashboard)
		protected.GET("/grades/:grade", teacherController.GradeRoster)

		students := protected.Group("/students")
		{
			students.POST("", teacherController.CreateStudent)
			students.PUT("/:id", teacherController.UpdateStudent)
			students.DELETE("/:id", teacherController.DeleteStudent)
			students.POST("/:id/tickets", teacherController.AdjustTickets)
			students.PUT("/:id/tickets", teacherController.SetTickets)
			students.GET("/:id/ledger", teacherController.LedgerHistory)
		}

		items := protected.Group("/items")
		{
			items.GET("", itemController.ListItems)
			items.POST("", itemController.CreateItem)
			items.POST("/import", itemController.ImportItems)
			items.GET("/export", itemController.ExportItems)
			items.PUT("/:id", itemController.UpdateItem)
			items.DELETE("/:id", itemController.DeleteItem)
			items.POST("/:id/image", itemController.UploadImage)
		}

		purchases := protected.Group("/purchases")
		{
			purchases.GET("", purchaseController.ListPurchases)
			purchases.POST("/:id/deliver", purchaseController.Deliver)
			purchases.POST("/:id/undeliver", purchaseController.Undeliver)
			purchases.POST("/:id/reverse", purchaseController.Reverse)
			purchases.DELETE("/:id", purchaseController.DeletePurchase)
		}
	}
}

func healthHandler(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			middleware.AbortWithError(c, http.StatusServiceUnavailable, dto.ErrorCodeInternalServer, "Storage is unavailable", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": dto.StatusSuccess, "storage": "ok"})
	}
}
