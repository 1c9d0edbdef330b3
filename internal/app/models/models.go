package models

import "fmt"

// RoleType defines the caller role carried in access tokens
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleTeacher RoleType = "TEACHER"
)

// Grade is a school grade level. Only grades 3 to 6 take part in market day.
type Grade int

const (
	Grade3 Grade = 3
	Grade4 Grade = 4
	Grade5 Grade = 5
	Grade6 Grade = 6
)

// AllGrades lists the supported grades in ascending order
var AllGrades = []Grade{Grade3, Grade4, Grade5, Grade6}

// Valid reports whether g is one of the supported grades
func (g Grade) Valid() bool {
	return g >= Grade3 && g <= Grade6
}

// String returns the display label used by the frontend ("Grade 4")
func (g Grade) String() string {
	return fmt.Sprintf("Grade %d", int(g))
}

// ParseGrade converts n into a Grade, rejecting unsupported levels
func ParseGrade(n int) (Grade, error) {
	g := Grade(n)
	if !g.Valid() {
		return 0, fmt.Errorf("grade must be one of 3, 4, 5 or 6, got %d", n)
	}
	return g, nil
}

// DeliveryFilter selects purchases by their delivery flag
type DeliveryFilter string

const (
	DeliveryAll       DeliveryFilter = "all"
	DeliveryPending   DeliveryFilter = "pending"
	DeliveryDelivered DeliveryFilter = "delivered"
)

// Valid reports whether f is a known filter
func (f DeliveryFilter) Valid() bool {
	switch f {
	case DeliveryAll, DeliveryPending, DeliveryDelivered:
		return true
	}
	return false
}
