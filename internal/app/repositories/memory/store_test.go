package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/app/repositories/memory"
	"github.com/yigit/marketday/internal/app/repositories/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repositories.Store {
		return memory.NewStore()
	})
}

func TestViewDoesNotLeakWrites(t *testing.T) {
	store := memory.NewStore()
	student, _ := storetest.Seed(t, store, models.Student{Name: "Ada", Grade: models.Grade3, TicketCount: 1}, models.Item{Name: "Pen", Cost: 1, Quantity: 1})

	ctx := context.Background()
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().SetTicketCount(ctx, student.ID, 50)
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		s, err := tx.Students().GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, s.TicketCount)
		return nil
	}))
}

func TestWithinTxSerializesWriters(t *testing.T) {
	store := memory.NewStore()
	student, _ := storetest.Seed(t, store, models.Student{Name: "Ada", Grade: models.Grade3}, models.Item{Name: "Pen", Cost: 1, Quantity: 1})

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
				s, err := tx.Students().GetForUpdate(ctx, student.ID)
				if err != nil {
					return err
				}
				return tx.Students().SetTicketCount(ctx, s.ID, s.TicketCount+1)
			})
		}()
	}
	wg.Wait()

	require.NoError(t, store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		s, err := tx.Students().GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, s.TicketCount)
		return nil
	}))
}

func TestCanceledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithinTx(ctx, func(context.Context, repositories.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
