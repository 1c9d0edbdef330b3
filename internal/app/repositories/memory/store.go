// Package memory provides an in-memory implementation of the entity store used
// for tests and demo deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
)

var _ repositories.Store = (*Store)(nil)

type state struct {
	students  map[int64]models.Student
	items     map[int64]models.Item
	purchases map[int64]models.Purchase
	ledger    map[int64]models.LedgerEntry

	nextStudentID  int64
	nextItemID     int64
	nextPurchaseID int64
	nextLedgerID   int64
}

func newState() state {
	return state{
		students:  make(map[int64]models.Student),
		items:     make(map[int64]models.Item),
		purchases: make(map[int64]models.Purchase),
		ledger:    make(map[int64]models.LedgerEntry),
	}
}

func (s state) clone() state {
	c := s
	c.students = make(map[int64]models.Student, len(s.students))
	for k, v := range s.students {
		c.students[k] = v
	}
	c.items = make(map[int64]models.Item, len(s.items))
	for k, v := range s.items {
		c.items[k] = v
	}
	c.purchases = make(map[int64]models.Purchase, len(s.purchases))
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	c.ledger = make(map[int64]models.LedgerEntry, len(s.ledger))
	for k, v := range s.ledger {
		c.ledger[k] = v
	}
	return c
}

// Store keeps every record in maps guarded by a single mutex. A write
// transaction holds the lock for its whole duration and works on a copy of the
// state that replaces the live state only when fn succeeds.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// Option customises a Store
type Option func(*Store)

// WithClock overrides the clock used for created_at columns
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

// NewStore returns an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		nowFn: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn against a private copy of the state and commits it on success
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), now: s.nowFn}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = tx.state
	return nil
}

// View runs fn against a snapshot of the current state
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(ctx, &transaction{state: snapshot, now: s.nowFn})
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() {}

type transaction struct {
	state state
	now   func() time.Time
}

func (tx *transaction) Students() repositories.IStudentRepository   { return studentRepo{tx} }
func (tx *transaction) Items() repositories.IItemRepository         { return itemRepo{tx} }
func (tx *transaction) Purchases() repositories.IPurchaseRepository { return purchaseRepo{tx} }
func (tx *transaction) Ledger() repositories.ILedgerRepository      { return ledgerRepo{tx} }
func (tx *transaction) Stats() repositories.IStatsRepository        { return statsRepo{tx} }

// students

type studentRepo struct{ tx *transaction }

func checkStudent(s *models.Student) error {
	if !s.Grade.Valid() {
		return apperrors.NewValidationError("grade must be one of 3, 4, 5 or 6")
	}
	if s.TicketCount < 0 {
		return apperrors.NewPolicyError("ticket balance cannot be negative")
	}
	return nil
}

func (r studentRepo) Create(_ context.Context, student *models.Student) (int64, error) {
	if err := checkStudent(student); err != nil {
		return 0, err
	}
	st := &r.tx.state
	st.nextStudentID++
	student.ID = st.nextStudentID
	student.CreatedAt = r.tx.now()
	st.students[student.ID] = *student
	return student.ID, nil
}

func (r studentRepo) GetByID(_ context.Context, id int64) (*models.Student, error) {
	s, ok := r.tx.state.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return &s, nil
}

func (r studentRepo) GetForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.GetByID(ctx, id)
}

func (r studentRepo) List(_ context.Context, grade *models.Grade) ([]*models.Student, error) {
	out := []*models.Student{}
	for _, s := range r.tx.state.students {
		if grade != nil && s.Grade != *grade {
			continue
		}
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r studentRepo) Update(_ context.Context, student *models.Student) error {
	cur, ok := r.tx.state.students[student.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	cur.Name = student.Name
	cur.Grade = student.Grade
	cur.Password = student.Password
	if err := checkStudent(&cur); err != nil {
		return err
	}
	r.tx.state.students[cur.ID] = cur
	return nil
}

func (r studentRepo) SetTicketCount(_ context.Context, id int64, ticketCount int) error {
	cur, ok := r.tx.state.students[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	cur.TicketCount = ticketCount
	if err := checkStudent(&cur); err != nil {
		return err
	}
	r.tx.state.students[id] = cur
	return nil
}

func (r studentRepo) Delete(_ context.Context, id int64) error {
	st := &r.tx.state
	if _, ok := st.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	delete(st.students, id)
	for pid, p := range st.purchases {
		if p.StudentID == id {
			delete(st.purchases, pid)
		}
	}
	for lid, e := range st.ledger {
		if e.StudentID == id {
			delete(st.ledger, lid)
		}
	}
	return nil
}

// items

type itemRepo struct{ tx *transaction }

func checkItem(i *models.Item) error {
	if i.Cost <= 0 {
		return apperrors.NewValidationError("item cost must be positive")
	}
	if i.Quantity < 0 {
		return apperrors.NewPolicyError("item quantity cannot be negative")
	}
	return nil
}

func (r itemRepo) Create(_ context.Context, item *models.Item) (int64, error) {
	if err := checkItem(item); err != nil {
		return 0, err
	}
	st := &r.tx.state
	st.nextItemID++
	item.ID = st.nextItemID
	st.items[item.ID] = *item
	return item.ID, nil
}

func (r itemRepo) GetByID(_ context.Context, id int64) (*models.Item, error) {
	i, ok := r.tx.state.items[id]
	if !ok {
		return nil, apperrors.ErrItemNotFound
	}
	return &i, nil
}

func (r itemRepo) GetForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	return r.GetByID(ctx, id)
}

func (r itemRepo) List(context.Context) ([]*models.Item, error) {
	out := make([]*models.Item, 0, len(r.tx.state.items))
	for _, i := range r.tx.state.items {
		i := i
		out = append(out, &i)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (r itemRepo) Update(_ context.Context, item *models.Item) error {
	if _, ok := r.tx.state.items[item.ID]; !ok {
		return apperrors.ErrItemNotFound
	}
	if err := checkItem(item); err != nil {
		return err
	}
	r.tx.state.items[item.ID] = *item
	return nil
}

func (r itemRepo) SetQuantity(_ context.Context, id int64, quantity int) error {
	cur, ok := r.tx.state.items[id]
	if !ok {
		return apperrors.ErrItemNotFound
	}
	cur.Quantity = quantity
	if err := checkItem(&cur); err != nil {
		return err
	}
	r.tx.state.items[id] = cur
	return nil
}

func (r itemRepo) SetImageURL(_ context.Context, id int64, imageURL *string) error {
	cur, ok := r.tx.state.items[id]
	if !ok {
		return apperrors.ErrItemNotFound
	}
	cur.ImageURL = imageURL
	r.tx.state.items[id] = cur
	return nil
}

func (r itemRepo) Delete(_ context.Context, id int64) error {
	st := &r.tx.state
	if _, ok := st.items[id]; !ok {
		return apperrors.ErrItemNotFound
	}
	delete(st.items, id)
	for pid, p := range st.purchases {
		if p.ItemID == id {
			delete(st.purchases, pid)
		}
	}
	return nil
}

// purchases

type purchaseRepo struct{ tx *transaction }

func (r purchaseRepo) Create(_ context.Context, purchase *models.Purchase) (int64, error) {
	st := &r.tx.state
	_, studentOK := st.students[purchase.StudentID]
	_, itemOK := st.items[purchase.ItemID]
	if !studentOK || !itemOK {
		return 0, apperrors.NewResourceNotFoundError("student or item not found")
	}
	st.nextPurchaseID++
	purchase.ID = st.nextPurchaseID
	st.purchases[purchase.ID] = *purchase
	return purchase.ID, nil
}

func (r purchaseRepo) GetByID(_ context.Context, id int64) (*models.Purchase, error) {
	p, ok := r.tx.state.purchases[id]
	if !ok {
		return nil, apperrors.ErrPurchaseNotFound
	}
	return &p, nil
}

func (r purchaseRepo) GetForUpdate(ctx context.Context, id int64) (*models.Purchase, error) {
	return r.GetByID(ctx, id)
}

func (r purchaseRepo) SetDelivered(_ context.Context, id int64, delivered bool) error {
	p, ok := r.tx.state.purchases[id]
	if !ok {
		return apperrors.ErrPurchaseNotFound
	}
	p.IsDelivered = delivered
	r.tx.state.purchases[id] = p
	return nil
}

func (r purchaseRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tx.state.purchases[id]; !ok {
		return apperrors.ErrPurchaseNotFound
	}
	delete(r.tx.state.purchases, id)
	return nil
}

// views joins purchases matching keep with their student and item, newest first
func (r purchaseRepo) views(keep func(models.Purchase) bool) []*models.PurchaseView {
	st := &r.tx.state
	out := []*models.PurchaseView{}
	for _, p := range st.purchases {
		if !keep(p) {
			continue
		}
		item, itemOK := st.items[p.ItemID]
		student, studentOK := st.students[p.StudentID]
		if !itemOK || !studentOK {
			continue
		}
		out = append(out, &models.PurchaseView{
			Purchase:     p,
			ItemName:     item.Name,
			ItemCost:     item.Cost,
			StudentName:  student.Name,
			StudentGrade: student.Grade,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	return out
}

func (r purchaseRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.PurchaseView, error) {
	return r.views(func(p models.Purchase) bool { return p.StudentID == studentID }), nil
}

func (r purchaseRepo) List(_ context.Context, filter repositories.PurchaseFilter) ([]*models.PurchaseView, int, error) {
	all := r.views(func(p models.Purchase) bool {
		switch filter.Delivery {
		case models.DeliveryPending:
			return !p.IsDelivered
		case models.DeliveryDelivered:
			return p.IsDelivered
		}
		return true
	})

	total := len(all)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return all[start:end], total, nil
}

// ledger

type ledgerRepo struct{ tx *transaction }

func (r ledgerRepo) Append(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	st := &r.tx.state
	if _, ok := st.students[entry.StudentID]; !ok {
		return 0, apperrors.ErrStudentNotFound
	}
	st.nextLedgerID++
	entry.ID = st.nextLedgerID
	entry.CreatedAt = r.tx.now()
	st.ledger[entry.ID] = *entry
	return entry.ID, nil
}

func (r ledgerRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.LedgerEntry, error) {
	out := []*models.LedgerEntry{}
	for _, e := range r.tx.state.ledger {
		if e.StudentID == studentID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// stats

type statsRepo struct{ tx *transaction }

func (r statsRepo) Summary(_ context.Context, grade *models.Grade, topItems int) (*models.Stats, error) {
	st := &r.tx.state
	inScope := func(studentID int64) bool {
		s, ok := st.students[studentID]
		return ok && (grade == nil || s.Grade == *grade)
	}

	stats := &models.Stats{Grade: grade, TopItems: []models.TopItem{}}
	for _, s := range st.students {
		if grade != nil && s.Grade != *grade {
			continue
		}
		stats.StudentCount++
		stats.TotalTickets += s.TicketCount
		if top := stats.TopStudent; top == nil ||
			s.TicketCount > top.TicketCount ||
			(s.TicketCount == top.TicketCount && s.ID < top.ID) {
			s := s
			stats.TopStudent = &s
		}
	}

	counts := make(map[int64]int)
	for _, p := range st.purchases {
		if !inScope(p.StudentID) {
			continue
		}
		stats.TotalPurchases++
		if !p.IsDelivered {
			stats.PendingDeliveries++
		}
		if _, ok := st.items[p.ItemID]; ok {
			counts[p.ItemID]++
		}
	}

	for id, n := range counts {
		stats.TopItems = append(stats.TopItems, models.TopItem{
			ItemID:        id,
			Name:          st.items[id].Name,
			PurchaseCount: n,
		})
	}
	sort.Slice(stats.TopItems, func(i, j int) bool {
		a, b := stats.TopItems[i], stats.TopItems[j]
		if a.PurchaseCount != b.PurchaseCount {
			return a.PurchaseCount > b.PurchaseCount
		}
		return a.ItemID < b.ItemID
	})
	if topItems < 0 {
		topItems = 0
	}
	if len(stats.TopItems) > topItems {
		stats.TopItems = stats.TopItems[:topItems]
	}

	return stats, nil
}

func (r statsRepo) GradeBreakdown(context.Context) ([]models.GradeStats, error) {
	byGrade := make(map[models.Grade]*models.GradeStats)
	for _, s := range r.tx.state.students {
		g, ok := byGrade[s.Grade]
		if !ok {
			g = &models.GradeStats{Grade: s.Grade}
			byGrade[s.Grade] = g
		}
		g.StudentCount++
		g.TotalTickets += s.TicketCount
	}

	out := make([]models.GradeStats, 0, len(byGrade))
	for _, g := range byGrade {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })
	return out, nil
}
