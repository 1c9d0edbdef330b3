package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	for _, g := range AllGrades {
		assert.True(t, g.Valid(), "grade %d", g)
	}
	assert.False(t, Grade(2).Valid())
	assert.False(t, Grade(7).Valid())
	assert.Equal(t, "Grade 4", Grade4.String())

	g, err := ParseGrade(5)
	require.NoError(t, err)
	assert.Equal(t, Grade5, g)

	_, err = ParseGrade(0)
	assert.Error(t, err)
}

func TestDeliveryFilter(t *testing.T) {
	assert.True(t, DeliveryPending.Valid())
	assert.True(t, DeliveryDelivered.Valid())
	assert.True(t, DeliveryAll.Valid())
	assert.False(t, DeliveryFilter("shipped").Valid())
}
