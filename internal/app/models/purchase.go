package models

import "time"

// Purchase records one ticket-for-item exchange
type Purchase struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"student" db:"student_id"`
	ItemID      int64     `json:"item" db:"item_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	IsDelivered bool      `json:"is_delivered" db:"is_delivered"`
	CostPaid    int       `json:"cost_paid" db:"cost_paid"` // item cost when bought; refunds use this
}

// PurchaseView is a purchase joined with the current item and student data
type PurchaseView struct {
	Purchase
	ItemName     string `json:"item_name"`
	ItemCost     int    `json:"item_cost"`
	StudentName  string `json:"student_name,omitempty"`
	StudentGrade Grade  `json:"student_grade,omitempty"`
}
