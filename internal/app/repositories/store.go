package repositories

import (
	"context"

	"github.com/yigit/marketday/internal/app/models"
)

// IStudentRepository defines the student operations available inside a store transaction
type IStudentRepository interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	// GetForUpdate reads the student and locks the row until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*models.Student, error)
	// List returns students ordered by grade, name and id; grade narrows to one roster
	List(ctx context.Context, grade *models.Grade) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	SetTicketCount(ctx context.Context, id int64, ticketCount int) error
	Delete(ctx context.Context, id int64) error
}

// IItemRepository defines the item operations available inside a store transaction
type IItemRepository interface {
	Create(ctx context.Context, item *models.Item) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Item, error)
	// List returns items ordered by name and id
	List(ctx context.Context) ([]*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	SetQuantity(ctx context.Context, id int64, quantity int) error
	SetImageURL(ctx context.Context, id int64, imageURL *string) error
	Delete(ctx context.Context, id int64) error
}

// PurchaseFilter narrows the teacher delivery queue
type PurchaseFilter struct {
	Delivery models.DeliveryFilter
	Offset   int
	Limit    int // 0 means no limit
}

// IPurchaseRepository defines the purchase operations available inside a store transaction
type IPurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Purchase, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Purchase, error)
	SetDelivered(ctx context.Context, id int64, delivered bool) error
	Delete(ctx context.Context, id int64) error
	// ListByStudent returns a student's purchases newest first, joined with current item data
	ListByStudent(ctx context.Context, studentID int64) ([]*models.PurchaseView, error)
	// List returns purchases newest first, joined with student and item data, plus the unpaged total
	List(ctx context.Context, filter PurchaseFilter) ([]*models.PurchaseView, int, error)
}

// ILedgerRepository appends and reads audit entries
type ILedgerRepository interface {
	Append(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	// ListByStudent returns a student's entries newest first
	ListByStudent(ctx context.Context, studentID int64) ([]*models.LedgerEntry, error)
}

// IStatsRepository computes read-only aggregates
type IStatsRepository interface {
	// Summary aggregates every student, or one grade when grade is set.
	// Top items rank by purchase count desc then item id; the top student by balance desc then id.
	Summary(ctx context.Context, grade *models.Grade, topItems int) (*models.Stats, error)
	// GradeBreakdown returns student and ticket totals for every grade that has students
	GradeBreakdown(ctx context.Context) ([]models.GradeStats, error)
}

// Tx is the unit of work handed to WithinTx and View callbacks
type Tx interface {
	Students() IStudentRepository
	Items() IItemRepository
	Purchases() IPurchaseRepository
	Ledger() ILedgerRepository
	Stats() IStatsRepository
}

// Store is the entity store shared by the ledger and query services
type Store interface {
	// WithinTx runs fn in a transaction. Returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against a read-only view of the store
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}
