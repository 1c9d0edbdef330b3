package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/marketday/internal/db"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// psql is the statement builder shared by all repositories
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repositories holds all the repository instances bound to one connection or transaction
type Repositories struct {
	StudentRepository  *StudentRepository
	ItemRepository     *ItemRepository
	PurchaseRepository *PurchaseRepository
	LedgerRepository   *LedgerRepository
	StatsRepository    *StatsRepository
}

// NewRepositories initializes all repositories over q
func NewRepositories(q DBTX) *Repositories {
	return &Repositories{
		StudentRepository:  NewStudentRepository(q),
		ItemRepository:     NewItemRepository(q),
		PurchaseRepository: NewPurchaseRepository(q),
		LedgerRepository:   NewLedgerRepository(q),
		StatsRepository:    NewStatsRepository(q),
	}
}

func (r *Repositories) Students() IStudentRepository   { return r.StudentRepository }
func (r *Repositories) Items() IItemRepository         { return r.ItemRepository }
func (r *Repositories) Purchases() IPurchaseRepository { return r.PurchaseRepository }
func (r *Repositories) Ledger() ILedgerRepository      { return r.LedgerRepository }
func (r *Repositories) Stats() IStatsRepository        { return r.StatsRepository }

var _ Tx = (*Repositories)(nil)

// PostgresStore is the Store backed by PostgreSQL
type PostgresStore struct {
	db *db.PostgresDB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open connection pool
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{db: database}
}

// WithinTx runs fn in a READ COMMITTED transaction. Ledger operations lock the
// rows they mutate with GetForUpdate, which serializes writers on the same
// student, item or purchase.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// View runs fn directly on the pool
func (s *PostgresStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return fn(ctx, NewRepositories(s.db.Pool))
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Pool.Ping(ctx)
}

// Close closes the underlying pool
func (s *PostgresStore) Close() {
	s.db.Close()
}
