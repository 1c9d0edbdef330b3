package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/app/repositories/memory"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	ledger   *ledgerServiceImpl
	query    QueryService
	students *studentServiceImpl
	items    *itemServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore(memory.WithClock(func() time.Time { return fixedNow }))
	logger := zerolog.Nop()

	ledger := NewLedgerService(store, logger).(*ledgerServiceImpl)
	tick := fixedNow
	ledger.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	students := NewStudentService(store, logger).(*studentServiceImpl)
	students.hash = func(p string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(b), err
	}

	return &fixture{
		store:    store,
		ledger:   ledger,
		query:    NewQueryService(store),
		students: students,
		items:    NewItemService(store, nil, DefaultItemSettings(), logger).(*itemServiceImpl),
	}
}

func (f *fixture) addStudent(t *testing.T, name string, grade models.Grade, tickets int) *models.Student {
	t.Helper()
	s := &models.Student{Name: name, Grade: grade, TicketCount: tickets, Password: "hash"}
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Students().Create(ctx, s)
		return err
	}))
	return s
}

func (f *fixture) addItem(t *testing.T, name string, cost, quantity int) *models.Item {
	t.Helper()
	i := &models.Item{Name: name, Cost: cost, Quantity: quantity}
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Items().Create(ctx, i)
		return err
	}))
	return i
}

func (f *fixture) student(t *testing.T, id int64) *models.Student {
	t.Helper()
	s, err := f.query.GetStudent(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) item(t *testing.T, id int64) *models.Item {
	t.Helper()
	var item *models.Item
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		item, err = tx.Items().GetByID(ctx, id)
		return err
	}))
	return item
}

func (f *fixture) purchaseCount(t *testing.T) int {
	t.Helper()
	page, err := f.query.ListPurchases(context.Background(), models.DeliveryAll, 1, 100)
	require.NoError(t, err)
	return page.Total
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func gradePtr(g models.Grade) *models.Grade { return &g }
