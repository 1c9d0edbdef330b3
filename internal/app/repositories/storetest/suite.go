// Package storetest holds the conformance suite every repositories.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
)

// Factory returns an empty store for one subtest
type Factory func(t *testing.T) repositories.Store

// Run executes the conformance suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, store repositories.Store)
	}{
		{"StudentLifecycle", testStudentLifecycle},
		{"StudentOrdering", testStudentOrdering},
		{"StudentConstraints", testStudentConstraints},
		{"ItemLifecycle", testItemLifecycle},
		{"PurchaseViews", testPurchaseViews},
		{"PurchaseRequiresReferences", testPurchaseRequiresReferences},
		{"CascadeDeletes", testCascadeDeletes},
		{"RollbackOnError", testRollbackOnError},
		{"LedgerOrdering", testLedgerOrdering},
		{"Stats", testStats},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// Seed inserts a student and an item in one transaction
func Seed(t *testing.T, store repositories.Store, student models.Student, item models.Item) (*models.Student, *models.Item) {
	t.Helper()
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		if student.Password == "" {
			student.Password = "x"
		}
		if _, err := tx.Students().Create(ctx, &student); err != nil {
			return err
		}
		_, err := tx.Items().Create(ctx, &item)
		return err
	}))
	return &student, &item
}

func strPtr(s string) *string { return &s }

func testStudentLifecycle(t *testing.T, store repositories.Store) {
	ctx := context.Background()

	var id int64
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		id, err = tx.Students().Create(ctx, &models.Student{Name: "Ada", Grade: models.Grade4, TicketCount: 7, Password: "hash"})
		return err
	}))
	require.NotZero(t, id)

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		s, err := tx.Students().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ada", s.Name)
		assert.Equal(t, models.Grade4, s.Grade)
		assert.Equal(t, 7, s.TicketCount)
		assert.Equal(t, "hash", s.Password)
		return nil
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Students().Update(ctx, &models.Student{ID: id, Name: "Ada L", Grade: models.Grade5, Password: "hash2"}); err != nil {
			return err
		}
		return tx.Students().SetTicketCount(ctx, id, 3)
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		s, err := tx.Students().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ada L", s.Name)
		assert.Equal(t, models.Grade5, s.Grade)
		assert.Equal(t, 3, s.TicketCount)
		return nil
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().Delete(ctx, id)
	}))

	err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Students().GetByID(ctx, id)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().SetTicketCount(ctx, id, 1)
	})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func testStudentOrdering(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, s := range []models.Student{
			{Name: "Zoe", Grade: models.Grade4},
			{Name: "Ben", Grade: models.Grade5},
			{Name: "Amy", Grade: models.Grade4},
			{Name: "Amy", Grade: models.Grade3},
		} {
			s.Password = "x"
			if _, err := tx.Students().Create(ctx, &s); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		all, err := tx.Students().List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, []string{"Amy", "Amy", "Zoe", "Ben"}, names(all))
		assert.Equal(t, models.Grade3, all[0].Grade)

		g := models.Grade4
		roster, err := tx.Students().List(ctx, &g)
		require.NoError(t, err)
		assert.Equal(t, []string{"Amy", "Zoe"}, names(roster))
		return nil
	}))
}

func names(students []*models.Student) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.Name
	}
	return out
}

func testStudentConstraints(t *testing.T, store repositories.Store) {
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Students().Create(ctx, &models.Student{Name: "Old", Grade: 7, Password: "x"})
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	student, _ := Seed(t, store, models.Student{Name: "Kim", Grade: models.Grade3, TicketCount: 2}, models.Item{Name: "Pen", Cost: 1, Quantity: 1})

	err = store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().SetTicketCount(ctx, student.ID, -1)
	})
	assert.ErrorIs(t, err, apperrors.ErrPolicyViolation)
}

func testItemLifecycle(t *testing.T, store repositories.Store) {
	ctx := context.Background()

	var pencil, eraser models.Item
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		pencil = models.Item{Name: "Pencil", Cost: 2, Quantity: 10, Link: strPtr("https://example.com/p")}
		eraser = models.Item{Name: "Eraser", Cost: 1, Quantity: 0}
		if _, err := tx.Items().Create(ctx, &pencil); err != nil {
			return err
		}
		_, err := tx.Items().Create(ctx, &eraser)
		return err
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Items().SetQuantity(ctx, pencil.ID, 4); err != nil {
			return err
		}
		return tx.Items().SetImageURL(ctx, eraser.ID, strPtr("/uploads/items/e.png"))
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		items, err := tx.Items().List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Eraser", items[0].Name)
		require.NotNil(t, items[0].ImageURL)
		assert.Equal(t, "/uploads/items/e.png", *items[0].ImageURL)
		assert.False(t, items[0].InStock())
		assert.Equal(t, 4, items[1].Quantity)
		require.NotNil(t, items[1].Link)
		return nil
	}))

	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Items().SetQuantity(ctx, pencil.ID, -1)
	})
	assert.ErrorIs(t, err, apperrors.ErrPolicyViolation)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		pencil.Cost = 0
		return tx.Items().Update(ctx, &pencil)
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Items().Delete(ctx, 999999)
	})
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}

func testPurchaseViews(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	student, item := Seed(t, store, models.Student{Name: "Lee", Grade: models.Grade6, TicketCount: 10}, models.Item{Name: "Ball", Cost: 3, Quantity: 5})

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var ids []int64
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for i := 0; i < 3; i++ {
			p := &models.Purchase{StudentID: student.ID, ItemID: item.ID, Timestamp: base.Add(time.Duration(i) * time.Minute), CostPaid: 3}
			if _, err := tx.Purchases().Create(ctx, p); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return tx.Purchases().SetDelivered(ctx, ids[0], true)
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		history, err := tx.Purchases().ListByStudent(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, ids[2], history[0].ID)
		assert.Equal(t, ids[0], history[2].ID)
		assert.Equal(t, "Ball", history[0].ItemName)
		assert.Equal(t, 3, history[0].ItemCost)
		assert.Equal(t, "Lee", history[0].StudentName)
		assert.Equal(t, models.Grade6, history[0].StudentGrade)
		assert.True(t, history[2].IsDelivered)

		pending, total, err := tx.Purchases().List(ctx, repositories.PurchaseFilter{Delivery: models.DeliveryPending, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, pending, 1)
		assert.Equal(t, ids[2], pending[0].ID)

		page2, total, err := tx.Purchases().List(ctx, repositories.PurchaseFilter{Delivery: models.DeliveryPending, Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page2, 1)
		assert.Equal(t, ids[1], page2[0].ID)

		delivered, total, err := tx.Purchases().List(ctx, repositories.PurchaseFilter{Delivery: models.DeliveryDelivered})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, delivered, 1)

		all, total, err := tx.Purchases().List(ctx, repositories.PurchaseFilter{Delivery: models.DeliveryAll, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, all)
		return nil
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Purchases().Delete(ctx, ids[1])
	}))
	err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Purchases().GetByID(ctx, ids[1])
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrPurchaseNotFound)
}

func testPurchaseRequiresReferences(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	student, _ := Seed(t, store, models.Student{Name: "Max", Grade: models.Grade3}, models.Item{Name: "Cap", Cost: 1, Quantity: 1})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Purchases().Create(ctx, &models.Purchase{StudentID: student.ID, ItemID: 424242, Timestamp: time.Now(), CostPaid: 1})
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func testCascadeDeletes(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	student, item := Seed(t, store, models.Student{Name: "Ivy", Grade: models.Grade5, TicketCount: 9}, models.Item{Name: "Kite", Cost: 2, Quantity: 3})
	other, otherItem := Seed(t, store, models.Student{Name: "Jon", Grade: models.Grade5, TicketCount: 9}, models.Item{Name: "Yoyo", Cost: 2, Quantity: 3})

	var studentPurchase, itemPurchase int64
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		p1 := &models.Purchase{StudentID: student.ID, ItemID: otherItem.ID, Timestamp: time.Now(), CostPaid: 2}
		if _, err := tx.Purchases().Create(ctx, p1); err != nil {
			return err
		}
		studentPurchase = p1.ID
		p2 := &models.Purchase{StudentID: other.ID, ItemID: item.ID, Timestamp: time.Now(), CostPaid: 2}
		if _, err := tx.Purchases().Create(ctx, p2); err != nil {
			return err
		}
		itemPurchase = p2.ID
		_, err := tx.Ledger().Append(ctx, &models.LedgerEntry{StudentID: student.ID, Kind: models.LedgerAdjust, TicketDelta: 1, BalanceAfter: 10})
		return err
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Students().Delete(ctx, student.ID); err != nil {
			return err
		}
		return tx.Items().Delete(ctx, item.ID)
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Purchases().GetByID(ctx, studentPurchase)
		assert.ErrorIs(t, err, apperrors.ErrPurchaseNotFound)
		_, err = tx.Purchases().GetByID(ctx, itemPurchase)
		assert.ErrorIs(t, err, apperrors.ErrPurchaseNotFound)

		entries, err := tx.Ledger().ListByStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	}))
}

func testRollbackOnError(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	student, item := Seed(t, store, models.Student{Name: "Ray", Grade: models.Grade4, TicketCount: 5}, models.Item{Name: "Cup", Cost: 5, Quantity: 1})

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Students().SetTicketCount(ctx, student.ID, 0); err != nil {
			return err
		}
		if err := tx.Items().SetQuantity(ctx, item.ID, 0); err != nil {
			return err
		}
		if _, err := tx.Purchases().Create(ctx, &models.Purchase{StudentID: student.ID, ItemID: item.ID, Timestamp: time.Now(), CostPaid: 5}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		s, err := tx.Students().GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, s.TicketCount)
		i, err := tx.Items().GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, i.Quantity)
		history, err := tx.Purchases().ListByStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
		return nil
	}))
}

func testLedgerOrdering(t *testing.T, store repositories.Store) {
	ctx := context.Background()
	student, item := Seed(t, store, models.Student{Name: "Uma", Grade: models.Grade3, TicketCount: 4}, models.Item{Name: "Gum", Cost: 1, Quantity: 9})

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := tx.Ledger().Append(ctx, &models.LedgerEntry{StudentID: student.ID, Kind: models.LedgerSet, TicketDelta: 4, BalanceAfter: 4}); err != nil {
			return err
		}
		itemID := item.ID
		_, err := tx.Ledger().Append(ctx, &models.LedgerEntry{StudentID: student.ID, ItemID: &itemID, Kind: models.LedgerPurchase, TicketDelta: -1, StockDelta: -1, BalanceAfter: 3})
		return err
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		entries, err := tx.Ledger().ListByStudent(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.LedgerPurchase, entries[0].Kind)
		require.NotNil(t, entries[0].ItemID)
		assert.Equal(t, item.ID, *entries[0].ItemID)
		assert.Nil(t, entries[0].PurchaseID)
		assert.Equal(t, -1, entries[0].StockDelta)
		assert.Equal(t, models.LedgerSet, entries[1].Kind)
		assert.False(t, entries[1].CreatedAt.IsZero())
		return nil
	}))
}

func testStats(t *testing.T, store repositories.Store) {
	ctx := context.Background()

	var students []*models.Student
	var items []*models.Item
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, s := range []models.Student{
			{Name: "A", Grade: models.Grade4, TicketCount: 8},
			{Name: "B", Grade: models.Grade4, TicketCount: 8},
			{Name: "C", Grade: models.Grade5, TicketCount: 20},
		} {
			s := s
			s.Password = "x"
			if _, err := tx.Students().Create(ctx, &s); err != nil {
				return err
			}
			students = append(students, &s)
		}
		for _, name := range []string{"i1", "i2", "i3", "i4"} {
			it := &models.Item{Name: name, Cost: 1, Quantity: 10}
			if _, err := tx.Items().Create(ctx, it); err != nil {
				return err
			}
			items = append(items, it)
		}

		buy := func(s *models.Student, it *models.Item, delivered bool) error {
			p := &models.Purchase{StudentID: s.ID, ItemID: it.ID, Timestamp: time.Now(), IsDelivered: delivered, CostPaid: 1}
			_, err := tx.Purchases().Create(ctx, p)
			return err
		}
		// grade 4: i2 x2, i1 x1, i3 x1, i4 x1; grade 5: i4 x3
		for _, b := range []struct {
			s, i      int
			delivered bool
		}{
			{0, 1, true}, {1, 1, false}, {0, 0, false}, {1, 2, false}, {0, 3, true},
			{2, 3, false}, {2, 3, false}, {2, 3, false},
		} {
			if err := buy(students[b.s], items[b.i], b.delivered); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		all, err := tx.Stats().Summary(ctx, nil, 3)
		require.NoError(t, err)
		assert.Nil(t, all.Grade)
		assert.Equal(t, 3, all.StudentCount)
		assert.Equal(t, 36, all.TotalTickets)
		assert.Equal(t, 8, all.TotalPurchases)
		assert.Equal(t, 6, all.PendingDeliveries)
		require.Len(t, all.TopItems, 3)
		assert.Equal(t, items[3].ID, all.TopItems[0].ItemID)
		assert.Equal(t, 4, all.TopItems[0].PurchaseCount)
		assert.Equal(t, items[1].ID, all.TopItems[1].ItemID)
		assert.Equal(t, items[0].ID, all.TopItems[2].ItemID)
		require.NotNil(t, all.TopStudent)
		assert.Equal(t, students[2].ID, all.TopStudent.ID)

		g4 := models.Grade4
		grade, err := tx.Stats().Summary(ctx, &g4, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, grade.StudentCount)
		assert.Equal(t, 16, grade.TotalTickets)
		assert.Equal(t, 5, grade.TotalPurchases)
		require.Len(t, grade.TopItems, 3)
		assert.Equal(t, items[1].ID, grade.TopItems[0].ItemID)
		assert.Equal(t, items[0].ID, grade.TopItems[1].ItemID)
		assert.Equal(t, items[2].ID, grade.TopItems[2].ItemID)
		require.NotNil(t, grade.TopStudent)
		assert.Equal(t, students[0].ID, grade.TopStudent.ID, "ties break on the lowest id")

		g6 := models.Grade6
		empty, err := tx.Stats().Summary(ctx, &g6, 3)
		require.NoError(t, err)
		assert.Zero(t, empty.StudentCount)
		assert.Nil(t, empty.TopStudent)
		assert.Empty(t, empty.TopItems)

		breakdown, err := tx.Stats().GradeBreakdown(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.GradeStats{
			{Grade: models.Grade4, StudentCount: 2, TotalTickets: 16},
			{Grade: models.Grade5, StudentCount: 1, TotalTickets: 20},
		}, breakdown)
		return nil
	}))
}
