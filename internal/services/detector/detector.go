// Package detector decides whether a fetched balance snapshot warrants a
// notification. The decision is pure so orchestration and locking stay
// entirely with the caller.
package detector

import (
	"github.com/kronevakt/kronevakt/internal/domain"
)

// Outcome is the result of evaluating a fetched snapshot against the last
// stored one. Next is what the store must persist for the card, exactly one
// replace per successful cycle whatever the decision was.
type Outcome struct {
	// Next is the snapshot to persist as the new "last known" state.
	Next domain.BalanceSnapshot
	// Event is non-nil when the balance changed and the user must be notified.
	Event *domain.NotificationEvent
	// Baseline marks the first observation for a card, which never notifies.
	Baseline bool
}

// Evaluate compares the fetched snapshot against the previous stored one.
//
// No previous snapshot: the fetched one becomes the baseline, no event.
// Equal balances (exact decimal equality): no event; the stored snapshot is
// refreshed with the new observation time but keeps its balance and
// transaction fields. Different balances: the fetched snapshot replaces the
// stored one and an event carrying both balances is produced. The comparison
// is always against the immediately preceding snapshot, so a balance that
// returns to an earlier value is still a change.
func Evaluate(userID int64, prev *domain.BalanceSnapshot, cur domain.BalanceSnapshot) Outcome {
	if prev == nil {
		return Outcome{Next: cur, Baseline: true}
	}

	if cur.Balance.Equal(prev.Balance) {
		refreshed := *prev
		refreshed.ObservedAt = cur.ObservedAt
		return Outcome{Next: refreshed}
	}

	event := domain.NewNotificationEvent(userID, prev.Balance, cur.Balance, cur.LastTransaction, cur.ObservedAt)
	return Outcome{Next: cur, Event: &event}
}
