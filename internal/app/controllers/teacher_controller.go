package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/middleware"
)

// TeacherController serves the teacher console: dashboard, roster and balances
type TeacherController struct {
	queryService   services.QueryService
	studentService services.StudentService
	ledgerService  services.LedgerService
	logger         zerolog.Logger
}

// NewTeacherController creates a new TeacherController
func NewTeacherController(
	queryService services.QueryService,
	studentService services.StudentService,
	ledgerService services.LedgerService,
	logger zerolog.Logger,
) *TeacherController {
	return &TeacherController{
		queryService:   queryService,
		studentService: studentService,
		ledgerService:  ledgerService,
		logger:         logger,
	}
}

// Dashboard handles GET /api/teacher/dashboard
func (c *TeacherController) Dashboard(ctx *gin.Context) {
	stats, err := c.queryService.AggregateStats(ctx.Request.Context(), nil)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	grades, err := c.queryService.GradeBreakdown(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DashboardResponse{
		Stats:  stats,
		Grades: grades,
	}, ""))
}

// GradeRoster handles GET /api/teacher/grades/:grade
func (c *TeacherController) GradeRoster(ctx *gin.Context) {
	n, err := strconv.Atoi(ctx.Param("grade"))
	if err != nil {
		n = 0
	}
	grade, err := models.ParseGrade(n)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid grade").
			WithField("grade").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	students, err := c.queryService.RosterByGrade(ctx.Request.Context(), grade)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	stats, err := c.queryService.AggregateStats(ctx.Request.Context(), &grade)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.GradeRosterResponse{
		Grade:    grade,
		Label:    grade.String(),
		Students: students,
		Stats:    stats,
	}, ""))
}

// CreateStudent handles POST /api/teacher/students
func (c *TeacherController) CreateStudent(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.CreateStudent(ctx.Request.Context(), services.CreateStudentInput{
		Name:        req.Name,
		Grade:       models.Grade(req.Grade),
		Password:    req.Password,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(student, "Student created"))
}

// UpdateStudent handles PUT /api/teacher/students/:id
func (c *TeacherController) UpdateStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	input := services.UpdateStudentInput{Name: req.Name, Password: req.Password}
	if req.Grade != nil {
		g := models.Grade(*req.Grade)
		input.Grade = &g
	}

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), studentID, input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated"))
}

// DeleteStudent handles DELETE /api/teacher/students/:id
func (c *TeacherController) DeleteStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	if err := c.studentService.DeleteStudent(ctx.Request.Context(), studentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student deleted"))
}

// AdjustTickets handles POST /api/teacher/students/:id/tickets
func (c *TeacherController) AdjustTickets(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	var req dto.AdjustTicketsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	delta, clamp := req.Amount, false
	if req.Action == dto.TicketActionRemove {
		delta = -req.Amount
		clamp = req.Clamp == nil || *req.Clamp
	}

	student, err := c.ledgerService.AdjustTicketBalance(ctx.Request.Context(), studentID, delta, clamp)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Tickets updated"))
}

// SetTickets handles PUT /api/teacher/students/:id/tickets
func (c *TeacherController) SetTickets(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	var req dto.SetTicketsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.ledgerService.SetTicketBalance(ctx.Request.Context(), studentID, *req.TicketCount)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Tickets updated"))
}

// LedgerHistory handles GET /api/teacher/students/:id/ledger
func (c *TeacherController) LedgerHistory(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id", "student")
	if !ok {
		return
	}

	entries, err := c.queryService.LedgerHistory(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(entries, ""))
}
