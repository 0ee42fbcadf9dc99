package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationEvent describes a detected balance change. It is constructed by
// the detector, delivered to the user, and not persisted beyond delivery.
type NotificationEvent struct {
	ID          string
	UserID      int64
	OldBalance  decimal.Decimal
	NewBalance  decimal.Decimal
	Transaction *Transaction
	OccurredAt  time.Time
}

// NewNotificationEvent builds an event for a balance transition.
func NewNotificationEvent(userID int64, oldBalance, newBalance decimal.Decimal, tx *Transaction, occurredAt time.Time) NotificationEvent {
	return NotificationEvent{
		ID:          uuid.NewString(),
		UserID:      userID,
		OldBalance:  oldBalance,
		NewBalance:  newBalance,
		Transaction: tx,
		OccurredAt:  occurredAt,
	}
}

// Diff returns the signed balance change.
func (e *NotificationEvent) Diff() decimal.Decimal {
	return e.NewBalance.Sub(e.OldBalance)
}
