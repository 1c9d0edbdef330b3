package dto

import "github.com/yigit/marketday/internal/app/models"

// Student-facing requests and responses. These keep the flat shapes the
// market frontend already consumes instead of the APIResponse envelope.

// StudentListQuery filters GET /api/students/
type StudentListQuery struct {
	Grade *int `form:"grade" binding:"omitempty,grade"`
}

// LoginRequest is the body of POST /api/login/
type LoginRequest struct {
	StudentID int64  `json:"student_id" binding:"required,gt=0"`
	Password  string `json:"password" binding:"required"`
}

// LoginResponse answers a successful student login
type LoginResponse struct {
	Status    string          `json:"status"`
	Student   *models.Student `json:"student"`
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expires_in"`
}

// PurchaseRequest is the body of POST /api/purchase/
type PurchaseRequest struct {
	StudentID int64 `json:"student_id" binding:"required,gt=0"`
	ItemID    int64 `json:"item_id" binding:"required,gt=0"`
}

// PurchaseResponse answers a successful purchase with the updated balance
type PurchaseResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Student *models.Student `json:"student"`
}

// StudentDetailResponse is the body of GET /api/student/:id/
type StudentDetailResponse struct {
	Student   *models.Student        `json:"student"`
	Purchases []*models.PurchaseView `json:"purchases"`
}

// StatusResponse is a bare acknowledgement
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
