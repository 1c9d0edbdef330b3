// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/middleware"
)

// AuthController handles student and teacher logins
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// StudentLogin handles POST /api/login/
func (c *AuthController) StudentLogin(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.authService.StudentLogin(ctx.Request.Context(), req.StudentID, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.LoginResponse{
		Status:    dto.StatusSuccess,
		Student:   result.Student,
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	})
}

// Logout handles POST /api/logout/. Tokens are stateless, so the client simply drops it.
func (c *AuthController) Logout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.StatusResponse{Status: dto.StatusSuccess, Message: "Logged out"})
}

// TeacherLogin handles POST /api/teacher/login
func (c *AuthController) TeacherLogin(ctx *gin.Context) {
	var req dto.TeacherLoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.authService.TeacherLogin(ctx.Request.Context(), req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.TokenResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	}, "Login successful"))
}
