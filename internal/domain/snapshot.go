package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single statement row as shown on the balance page.
// Amount stays a string because the bank renders it pre-formatted and the
// value is only ever displayed, never computed with.
type Transaction struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

// BalanceSnapshot is a single balance observation for a card at a point in time.
// A new snapshot supersedes the previous one for the card.
type BalanceSnapshot struct {
	Card            CardNumber      `json:"card_number"`
	Balance         decimal.Decimal `json:"balance"`
	LastTransaction *Transaction    `json:"last_transaction,omitempty"`
	ObservedAt      time.Time       `json:"observed_at"`
}

// BalanceSnapshotRecord bundles a snapshot with the log index it originated from.
type BalanceSnapshotRecord struct {
	Index    uint64
	Snapshot BalanceSnapshot
}
