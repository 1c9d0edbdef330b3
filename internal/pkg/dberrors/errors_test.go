package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifiesPostgresErrors(t *testing.T) {
	outOfRange := fmt.Errorf("set ticket count: %w", &pgconn.PgError{Code: "22003"})
	check := &pgconn.PgError{Code: "23514", ConstraintName: "items_cost_check"}
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsNumericOutOfRange(outOfRange))
	assert.False(t, IsNumericOutOfRange(check))
	assert.False(t, IsNumericOutOfRange(errors.New("22003")))

	assert.True(t, IsCheckViolation(check, "items_cost_check"))
	assert.True(t, IsCheckViolation(check, ""))
	assert.False(t, IsCheckViolation(check, "items_quantity_check"))
	assert.False(t, IsCheckViolation(outOfRange, ""))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(check))
}
