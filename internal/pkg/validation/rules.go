package validation

import (
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/marketday/internal/app/models"
)

// Validation limits shared by services and request DTOs
var (
	// Student and item display names
	NameMinLength     = 1
	NameMaxLength     = 100
	ItemNameMaxLength = 200

	// Student passwords are short codes typed by children
	PasswordMinLength = 4
	PasswordMaxLength = 72 // bcrypt ignores anything longer

	// Ticket balances, costs and stock are stored in INTEGER columns
	MaxCount = math.MaxInt32

	// Printable names without control characters
	NamePattern = `^[^\x00-\x1f\x7f]+$`
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Name *regexp.Regexp
}{
	Name: regexp.MustCompile(NamePattern),
}

// StringValidation is a small builder for checking free-text fields
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation; the value is trimmed
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    strings.TrimSpace(value),
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}

	n := len([]rune(v.Value))
	if v.MinLen > 0 && n < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && n > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// ValidName reports whether s is an acceptable student name
func ValidName(s string) bool {
	return NewStringValidation(s).
		WithMinLength(NameMinLength).
		WithMaxLength(NameMaxLength).
		WithPattern(CompiledPatterns.Name).
		Validate()
}

// ValidItemName reports whether s is an acceptable item name
func ValidItemName(s string) bool {
	return NewStringValidation(s).
		WithMaxLength(ItemNameMaxLength).
		WithPattern(CompiledPatterns.Name).
		Validate()
}

// ValidPassword reports whether s is long enough to be a student password
func ValidPassword(s string) bool {
	return len(s) >= PasswordMinLength && len(s) <= PasswordMaxLength
}

// RegisterCustomValidators adds the market day tags to v:
// "grade" accepts the integers 3 to 6.
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return models.Grade(f.Int()).Valid()
		}
		return false
	})
}
