package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
)

func TestRosterByGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addStudent(t, "Yuna", models.Grade4, 1)
	f.addStudent(t, "Ara", models.Grade4, 2)
	f.addStudent(t, "Bomi", models.Grade5, 3)
	f.addStudent(t, "Dain", models.Grade4, 0)

	roster, err := f.query.RosterByGrade(ctx, models.Grade4)
	require.NoError(t, err)

	var names []string
	for _, s := range roster {
		assert.Equal(t, models.Grade4, s.Grade)
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Ara", "Dain", "Yuna"}, names)

	_, err = f.query.RosterByGrade(ctx, models.Grade(2))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	empty, err := f.query.RosterByGrade(ctx, models.Grade6)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListStudentsOrdersByGradeThenName(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Bomi", models.Grade5, 3)
	f.addStudent(t, "Yuna", models.Grade3, 1)
	f.addStudent(t, "Ara", models.Grade5, 2)

	all, err := f.query.ListStudents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Yuna", all[0].Name)
	assert.Equal(t, "Ara", all[1].Name)
	assert.Equal(t, "Bomi", all[2].Name)
}

func TestAggregateStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ara := f.addStudent(t, "Ara", models.Grade4, 20)
	bomi := f.addStudent(t, "Bomi", models.Grade4, 20)
	chan5 := f.addStudent(t, "Chan", models.Grade5, 30)

	pen := f.addItem(t, "Pen", 1, 10)
	cup := f.addItem(t, "Cup", 2, 10)
	hat := f.addItem(t, "Hat", 3, 10)
	toy := f.addItem(t, "Toy", 1, 10)

	buy := func(studentID, itemID int64) {
		_, err := f.ledger.Purchase(ctx, studentID, itemID)
		require.NoError(t, err)
	}
	buy(ara.ID, cup.ID)
	buy(bomi.ID, cup.ID)
	buy(ara.ID, hat.ID)
	buy(bomi.ID, pen.ID)
	buy(chan5.ID, toy.ID)
	buy(chan5.ID, toy.ID)
	buy(chan5.ID, toy.ID)

	all, err := f.query.AggregateStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.StudentCount)
	assert.Equal(t, 7, all.TotalPurchases)
	assert.Equal(t, 7, all.PendingDeliveries)
	require.Len(t, all.TopItems, TopItemsLimit)
	assert.Equal(t, toy.ID, all.TopItems[0].ItemID)
	assert.Equal(t, 3, all.TopItems[0].PurchaseCount)
	assert.Equal(t, cup.ID, all.TopItems[1].ItemID)
	// pen and hat tie on one purchase; the lower id wins
	assert.Equal(t, pen.ID, all.TopItems[2].ItemID)
	require.NotNil(t, all.TopStudent)
	assert.Equal(t, chan5.ID, all.TopStudent.ID)

	g4 := models.Grade4
	byGrade, err := f.query.AggregateStats(ctx, &g4)
	require.NoError(t, err)
	assert.Equal(t, 2, byGrade.StudentCount)
	// Ara spent 5 and Bomi 3 out of 20 each
	assert.Equal(t, 32, byGrade.TotalTickets)
	assert.Equal(t, 4, byGrade.TotalPurchases)
	require.NotNil(t, byGrade.TopStudent)
	assert.Equal(t, bomi.ID, byGrade.TopStudent.ID)
	assert.Equal(t, cup.ID, byGrade.TopItems[0].ItemID)
}

func TestAggregateStatsTopStudentTieBreaksOnID(t *testing.T) {
	f := newFixture(t)
	first := f.addStudent(t, "Zed", models.Grade3, 9)
	f.addStudent(t, "Amy", models.Grade3, 9)

	stats, err := f.query.AggregateStats(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, stats.TopStudent)
	assert.Equal(t, first.ID, stats.TopStudent.ID)
	assert.Empty(t, stats.TopItems)
}

func TestGradeBreakdownZeroFills(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Ara", models.Grade4, 3)
	f.addStudent(t, "Bomi", models.Grade4, 4)
	f.addStudent(t, "Chan", models.Grade6, 5)

	rows, err := f.query.GradeBreakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.GradeStats{
		{Grade: models.Grade3},
		{Grade: models.Grade4, StudentCount: 2, TotalTickets: 7},
		{Grade: models.Grade5},
		{Grade: models.Grade6, StudentCount: 1, TotalTickets: 5},
	}, rows)
}

func TestPurchaseHistoryShowsCurrentItemData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.addStudent(t, "Ara", models.Grade4, 10)
	pen := f.addItem(t, "Pen", 1, 5)
	cup := f.addItem(t, "Cup", 2, 5)

	_, err := f.ledger.Purchase(ctx, s.ID, pen.ID)
	require.NoError(t, err)
	_, err = f.ledger.Purchase(ctx, s.ID, cup.ID)
	require.NoError(t, err)

	_, err = f.items.UpdateItem(ctx, pen.ID, UpdateItemInput{Name: strPtr("Gel pen"), Cost: intPtr(3)})
	require.NoError(t, err)

	history, err := f.query.PurchaseHistory(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Cup", history[0].ItemName)
	assert.Equal(t, "Gel pen", history[1].ItemName)
	assert.Equal(t, 3, history[1].ItemCost)
	assert.Equal(t, 1, history[1].CostPaid)

	_, err = f.query.PurchaseHistory(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestListPurchasesPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.addStudent(t, "Ara", models.Grade4, 10)
	pen := f.addItem(t, "Pen", 1, 10)

	var ids []int64
	for n := 0; n < 5; n++ {
		out, err := f.ledger.Purchase(ctx, s.ID, pen.ID)
		require.NoError(t, err)
		ids = append(ids, out.Purchase.ID)
	}
	_, err := f.ledger.SetDelivered(ctx, ids[0], true)
	require.NoError(t, err)

	page, err := f.query.ListPurchases(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Purchases, 2)
	assert.Equal(t, ids[2], page.Purchases[0].ID)
	assert.Equal(t, "Ara", page.Purchases[0].StudentName)

	pending, err := f.query.ListPurchases(ctx, models.DeliveryPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, pending.Total)

	delivered, err := f.query.ListPurchases(ctx, models.DeliveryDelivered, 1, 10)
	require.NoError(t, err)
	require.Len(t, delivered.Purchases, 1)
	assert.Equal(t, ids[0], delivered.Purchases[0].ID)

	_, err = f.query.ListPurchases(ctx, "lost", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
