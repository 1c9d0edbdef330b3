package models

import "time"

// LedgerKind names the operation a ledger entry records
type LedgerKind string

const (
	LedgerPurchase LedgerKind = "purchase"
	LedgerReversal LedgerKind = "reversal"
	LedgerAdjust   LedgerKind = "adjust"
	LedgerSet      LedgerKind = "set"
)

// LedgerEntry is an append-only audit row for every balance or stock change.
// Entries survive purchase reversal so the history stays complete.
type LedgerEntry struct {
	ID           int64      `json:"id" db:"id"`
	StudentID    int64      `json:"student_id" db:"student_id"`
	ItemID       *int64     `json:"item_id,omitempty" db:"item_id"`
	PurchaseID   *int64     `json:"purchase_id,omitempty" db:"purchase_id"`
	Kind         LedgerKind `json:"kind" db:"kind"`
	TicketDelta  int        `json:"ticket_delta" db:"ticket_delta"`
	StockDelta   int        `json:"stock_delta" db:"stock_delta"`
	BalanceAfter int        `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
