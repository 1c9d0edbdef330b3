package models

// TopItem is an item ranked by how often it was bought
type TopItem struct {
	ItemID        int64  `json:"item_id"`
	Name          string `json:"name"`
	PurchaseCount int    `json:"purchase_count"`
}

// Stats aggregates the market for all students or a single grade
type Stats struct {
	Grade             *Grade    `json:"grade,omitempty"`
	StudentCount      int       `json:"student_count"`
	TotalTickets      int       `json:"total_tickets"`
	TopItems          []TopItem `json:"top_items"`
	TopStudent        *Student  `json:"top_student"`
	TotalPurchases    int       `json:"total_purchases"`
	PendingDeliveries int       `json:"pending_deliveries"`
}

// GradeStats is one card of the per-grade dashboard breakdown
type GradeStats struct {
	Grade        Grade `json:"grade"`
	StudentCount int   `json:"student_count"`
	TotalTickets int   `json:"total_tickets"`
}
