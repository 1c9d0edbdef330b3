package models

import "time"

// Student defines the student model based on the 'students' table
type Student struct {
	ID          int64     `json:"id" db:"id" example:"1"`
	Name        string    `json:"name" db:"name" example:"Ada"`
	Grade       Grade     `json:"grade" db:"grade" example:"4"`
	TicketCount int       `json:"ticket_count" db:"ticket_count" example:"12"` // never negative
	Password    string    `json:"-" db:"password"`                              // bcrypt hash
	CreatedAt   time.Time `json:"-" db:"created_at"`
}
