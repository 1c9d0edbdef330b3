package dto

import "github.com/yigit/marketday/internal/app/models"

// Ticket adjustment actions
const (
	TicketActionAdd    = "add"
	TicketActionRemove = "remove"
)

// TeacherLoginRequest is the body of POST /api/teacher/login
type TeacherLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// DashboardResponse is the teacher overview
type DashboardResponse struct {
	Stats  *models.Stats       `json:"stats"`
	Grades []models.GradeStats `json:"grades"`
}

// GradeRosterResponse lists one grade together with its statistics
type GradeRosterResponse struct {
	Grade    models.Grade      `json:"grade"`
	Label    string            `json:"label"`
	Students []*models.Student `json:"students"`
	Stats    *models.Stats     `json:"stats"`
}

// CreateStudentRequest adds a student to the roster
type CreateStudentRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Grade       int    `json:"grade" binding:"required,grade"`
	Password    string `json:"password" binding:"required,min=4,max=72"`
	TicketCount int    `json:"ticket_count" binding:"gte=0,max=2147483647"`
}

// UpdateStudentRequest edits a student; omitted fields are left alone
type UpdateStudentRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Grade    *int    `json:"grade" binding:"omitempty,grade"`
	Password *string `json:"password" binding:"omitempty,min=4,max=72"`
}

// AdjustTicketsRequest adds or removes tickets. Removing floors at zero unless Clamp is false.
type AdjustTicketsRequest struct {
	Amount int    `json:"amount" binding:"required,gt=0,max=2147483647"`
	Action string `json:"action" binding:"required,oneof=add remove"`
	Clamp  *bool  `json:"clamp"`
}

// SetTicketsRequest overwrites a balance
type SetTicketsRequest struct {
	TicketCount *int `json:"ticket_count" binding:"required,gte=0,max=2147483647"`
}

// CreateItemRequest adds an item; Quantity defaults to the configured stock
type CreateItemRequest struct {
	Name     string  `json:"name" binding:"required,max=200"`
	Cost     int     `json:"cost" binding:"required,gt=0,max=2147483647"`
	Quantity *int    `json:"quantity" binding:"omitempty,gte=0,max=2147483647"`
	Link     *string `json:"link" binding:"omitempty,max=500"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=500"`
}

// UpdateItemRequest edits an item; omitted fields are left alone
type UpdateItemRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Cost     *int    `json:"cost" binding:"omitempty,gt=0,max=2147483647"`
	Quantity *int    `json:"quantity" binding:"omitempty,gte=0,max=2147483647"`
	Link     *string `json:"link" binding:"omitempty,max=500"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=500"`
}

// ImportSkippedRow reports a CSV row that was not imported
type ImportSkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResultResponse summarises a CSV import
type ImportResultResponse struct {
	Created int                `json:"created"`
	Items   []*models.Item     `json:"items"`
	Skipped []ImportSkippedRow `json:"skipped"`
}

// PurchaseListQuery filters the delivery queue
type PurchaseListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=all pending delivered"`
	Page   int    `form:"page" binding:"omitempty,gte=1"`
	Size   int    `form:"size" binding:"omitempty,gte=1,max=100"`
}

// ReverseQuery controls POST /purchases/:id/reverse
type ReverseQuery struct {
	Force bool `form:"force"`
}

// ReversalResponse reports a reversed purchase
type ReversalResponse struct {
	PurchaseID int64           `json:"purchase_id"`
	Refunded   int             `json:"refunded"`
	Student    *models.Student `json:"student"`
	Item       *models.Item    `json:"item"`
}
