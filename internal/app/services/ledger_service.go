package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/validation"
)

// PurchaseOutcome is the result of a successful purchase
type PurchaseOutcome struct {
	Student  *models.Student
	Item     *models.Item
	Purchase *models.Purchase
	Entry    *models.LedgerEntry
}

// ReverseOptions controls ReverseAndRestock
type ReverseOptions struct {
	// AllowDelivered permits reversing a purchase whose item was already handed out
	AllowDelivered bool
}

// ReversalOutcome is the result of a successful reversal
type ReversalOutcome struct {
	Student    *models.Student
	Item       *models.Item
	PurchaseID int64
	Refunded   int
	Entry      *models.LedgerEntry
}

// LedgerService is the only writer of ticket balances, item stock and purchases.
// Every method runs in exactly one store transaction and either fully applies or
// leaves the store untouched.
type LedgerService interface {
	Purchase(ctx context.Context, studentID, itemID int64) (*PurchaseOutcome, error)
	ReverseAndRestock(ctx context.Context, purchaseID int64, opts ReverseOptions) (*ReversalOutcome, error)
	SetDelivered(ctx context.Context, purchaseID int64, delivered bool) (*models.Purchase, error)
	AdjustTicketBalance(ctx context.Context, studentID int64, delta int, clampFloor bool) (*models.Student, error)
	SetTicketBalance(ctx context.Context, studentID int64, value int) (*models.Student, error)
	DeletePurchase(ctx context.Context, purchaseID int64) error
}

type ledgerServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewLedgerService creates a new ledger service instance
func NewLedgerService(store repositories.Store, logger zerolog.Logger) LedgerService {
	return &ledgerServiceImpl{
		store:  store,
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
}

func validateID(id int64, what string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid %s ID", apperrors.ErrValidationFailed, what)
	}
	return nil
}

// Purchase debits the student by the item cost and takes one unit of stock.
// Stock is checked before balance.
func (s *ledgerServiceImpl) Purchase(ctx context.Context, studentID, itemID int64) (*PurchaseOutcome, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}
	if err := validateID(itemID, "item"); err != nil {
		return nil, err
	}

	var out *PurchaseOutcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		// lock order is always student, then item
		student, err := tx.Students().GetForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		item, err := tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		if !item.InStock() {
			return apperrors.NewCustomError(apperrors.ErrOutOfStock, "Item out of stock").
				WithDetails(map[string]interface{}{"item_id": item.ID})
		}
		if student.TicketCount < item.Cost {
			return apperrors.NewCustomError(apperrors.ErrInsufficientBalance, "Not enough tickets").
				WithDetails(map[string]interface{}{"ticket_count": student.TicketCount, "cost": item.Cost})
		}

		item.Quantity--
		student.TicketCount -= item.Cost
		if err := tx.Items().SetQuantity(ctx, item.ID, item.Quantity); err != nil {
			return err
		}
		if err := tx.Students().SetTicketCount(ctx, student.ID, student.TicketCount); err != nil {
			return err
		}

		purchase := &models.Purchase{
			StudentID:   student.ID,
			ItemID:      item.ID,
			Timestamp:   s.now().UTC(),
			IsDelivered: false,
			CostPaid:    item.Cost,
		}
		if _, err := tx.Purchases().Create(ctx, purchase); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			StudentID:    student.ID,
			ItemID:       &item.ID,
			PurchaseID:   &purchase.ID,
			Kind:         models.LedgerPurchase,
			TicketDelta:  -item.Cost,
			StockDelta:   -1,
			BalanceAfter: student.TicketCount,
		}
		if _, err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}

		out = &PurchaseOutcome{Student: student, Item: item, Purchase: purchase, Entry: entry}
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Int64("studentID", studentID).Int64("itemID", itemID).Msg("Purchase rejected")
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", studentID).
		Int64("itemID", itemID).
		Int64("purchaseID", out.Purchase.ID).
		Int("cost", out.Purchase.CostPaid).
		Int("balance", out.Student.TicketCount).
		Msg("Purchase completed")
	return out, nil
}

// ReverseAndRestock refunds what was paid, returns the unit to stock and
// deletes the purchase. The ledger keeps a reversal entry.
func (s *ledgerServiceImpl) ReverseAndRestock(ctx context.Context, purchaseID int64, opts ReverseOptions) (*ReversalOutcome, error) {
	if err := validateID(purchaseID, "purchase"); err != nil {
		return nil, err
	}

	var out *ReversalOutcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		purchase, err := tx.Purchases().GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.IsDelivered && !opts.AllowDelivered {
			return apperrors.NewPolicyError("Purchase was already delivered; reversing it must be forced")
		}

		student, err := tx.Students().GetForUpdate(ctx, purchase.StudentID)
		if err != nil {
			return err
		}
		item, err := tx.Items().GetForUpdate(ctx, purchase.ItemID)
		if err != nil {
			return err
		}

		if student.TicketCount > validation.MaxCount-purchase.CostPaid || item.Quantity >= validation.MaxCount {
			return apperrors.NewPolicyError("Refund would exceed the largest balance or stock the market can hold")
		}

		item.Quantity++
		student.TicketCount += purchase.CostPaid
		if err := tx.Items().SetQuantity(ctx, item.ID, item.Quantity); err != nil {
			return err
		}
		if err := tx.Students().SetTicketCount(ctx, student.ID, student.TicketCount); err != nil {
			return err
		}
		if err := tx.Purchases().Delete(ctx, purchase.ID); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			StudentID:    student.ID,
			ItemID:       &item.ID,
			PurchaseID:   &purchase.ID,
			Kind:         models.LedgerReversal,
			TicketDelta:  purchase.CostPaid,
			StockDelta:   1,
			BalanceAfter: student.TicketCount,
		}
		if _, err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}

		out = &ReversalOutcome{
			Student:    student,
			Item:       item,
			PurchaseID: purchase.ID,
			Refunded:   purchase.CostPaid,
			Entry:      entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("purchaseID", purchaseID).
		Int64("studentID", out.Student.ID).
		Int("refunded", out.Refunded).
		Bool("forced", opts.AllowDelivered).
		Msg("Purchase reversed and restocked")
	return out, nil
}

// SetDelivered sets the delivery flag. Setting it to its current value is a no-op.
func (s *ledgerServiceImpl) SetDelivered(ctx context.Context, purchaseID int64, delivered bool) (*models.Purchase, error) {
	if err := validateID(purchaseID, "purchase"); err != nil {
		return nil, err
	}

	var purchase *models.Purchase
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		purchase, err = tx.Purchases().GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.IsDelivered == delivered {
			return nil
		}
		if err := tx.Purchases().SetDelivered(ctx, purchaseID, delivered); err != nil {
			return err
		}
		purchase.IsDelivered = delivered
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("purchaseID", purchaseID).Bool("delivered", delivered).Msg("Delivery flag set")
	return purchase, nil
}

// AdjustTicketBalance adds delta to a balance. A result below zero floors to
// zero when clampFloor is set and is rejected otherwise.
func (s *ledgerServiceImpl) AdjustTicketBalance(ctx context.Context, studentID int64, delta int, clampFloor bool) (*models.Student, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperrors.NewValidationError("Ticket amount must not be zero")
	}

	var student *models.Student
	var applied int
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetForUpdate(ctx, studentID)
		if err != nil {
			return err
		}

		if delta > 0 && student.TicketCount > validation.MaxCount-delta {
			return apperrors.NewCustomError(apperrors.ErrValidationFailed,
				fmt.Sprintf("Ticket balance cannot exceed %d", validation.MaxCount)).
				WithDetails(map[string]interface{}{"ticket_count": student.TicketCount, "delta": delta})
		}

		balance := student.TicketCount + delta
		if balance < 0 {
			if !clampFloor {
				return apperrors.NewCustomError(apperrors.ErrPolicyViolation, "Ticket balance cannot go below zero").
					WithDetails(map[string]interface{}{"ticket_count": student.TicketCount, "delta": delta})
			}
			balance = 0
		}
		applied = balance - student.TicketCount

		if err := tx.Students().SetTicketCount(ctx, student.ID, balance); err != nil {
			return err
		}
		student.TicketCount = balance

		_, err = tx.Ledger().Append(ctx, &models.LedgerEntry{
			StudentID:    student.ID,
			Kind:         models.LedgerAdjust,
			TicketDelta:  applied,
			BalanceAfter: balance,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", studentID).
		Int("requested", delta).
		Int("applied", applied).
		Int("balance", student.TicketCount).
		Msg("Ticket balance adjusted")
	return student, nil
}

// SetTicketBalance overwrites a balance, recording the difference in the ledger
func (s *ledgerServiceImpl) SetTicketBalance(ctx context.Context, studentID int64, value int) (*models.Student, error) {
	if err := validateID(studentID, "student"); err != nil {
		return nil, err
	}
	if value < 0 {
		return nil, apperrors.NewValidationError("Ticket count cannot be negative")
	}
	if value > validation.MaxCount {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Ticket count cannot exceed %d", validation.MaxCount))
	}

	var student *models.Student
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetForUpdate(ctx, studentID)
		if err != nil {
			return err
		}

		delta := value - student.TicketCount
		if err := tx.Students().SetTicketCount(ctx, student.ID, value); err != nil {
			return err
		}
		student.TicketCount = value

		_, err = tx.Ledger().Append(ctx, &models.LedgerEntry{
			StudentID:    student.ID,
			Kind:         models.LedgerSet,
			TicketDelta:  delta,
			BalanceAfter: value,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", studentID).Int("balance", value).Msg("Ticket balance set")
	return student, nil
}

// DeletePurchase removes a purchase without refunding or restocking
func (s *ledgerServiceImpl) DeletePurchase(ctx context.Context, purchaseID int64) error {
	if err := validateID(purchaseID, "purchase"); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Purchases().Delete(ctx, purchaseID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("purchaseID", purchaseID).Msg("Purchase deleted without restock")
	return nil
}
