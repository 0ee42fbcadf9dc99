// Package monitor runs the periodic balance checks and wires fetching,
// change detection, persistence and notification together.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kronevakt/kronevakt/internal/domain"
	"github.com/kronevakt/kronevakt/internal/services/detector"
	"github.com/kronevakt/kronevakt/internal/services/fetcher"
	"github.com/kronevakt/kronevakt/internal/services/notifier"
	"github.com/kronevakt/kronevakt/pkg/keylock"
)

// startupDelay postpones the first sweep so the process finishes wiring
// before the portal is hit.
const startupDelay = 10 * time.Second

var (
	// ErrNotRegistered is returned when the user has no card on file.
	ErrNotRegistered = errors.New("no card registered for user")
	// ErrCheckInProgress is returned when a check for the same card is
	// already running.
	ErrCheckInProgress = errors.New("balance check already in progress")
)

// SnapshotStore is the per-card last-known-state storage.
type SnapshotStore interface {
	Last(card domain.CardNumber) (domain.BalanceSnapshot, bool)
	Replace(snapshot domain.BalanceSnapshot) error
	Clear(card domain.CardNumber) error
}

// RegistrationStore holds the user-to-card registrations.
type RegistrationStore interface {
	Get(userID int64) (domain.Registration, bool)
	Upsert(reg domain.Registration) error
	List() []domain.Registration
}

// Monitor owns the check cycle: fetch, evaluate against the stored snapshot,
// persist, notify. Checks for the same card never overlap; different cards
// run concurrently.
type Monitor struct {
	fetcher       fetcher.Fetcher
	notifier      notifier.Notifier
	snapshots     SnapshotStore
	registrations RegistrationStore
	locks         *keylock.KeyLock
	checkInterval time.Duration
	fetchTimeout  time.Duration
	logger        *zap.Logger
}

// New creates a monitor over the given collaborators.
func New(
	f fetcher.Fetcher,
	n notifier.Notifier,
	snapshots SnapshotStore,
	registrations RegistrationStore,
	checkInterval time.Duration,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		fetcher:       f,
		notifier:      n,
		snapshots:     snapshots,
		registrations: registrations,
		locks:         keylock.New(),
		checkInterval: checkInterval,
		fetchTimeout:  fetchTimeout,
		logger:        logger,
	}
}

// Run sweeps all registrations on every tick until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	m.logger.Info("monitor started", zap.Duration("check_interval", m.checkInterval))

	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep checks every registration. Cards are checked concurrently; a card
// whose lock is busy is skipped and picked up on the next tick.
func (m *Monitor) sweep(ctx context.Context) {
	regs := m.registrations.List()
	m.logger.Debug("sweep started", zap.Int("registrations", len(regs)))

	var wg sync.WaitGroup
	for _, reg := range regs {
		wg.Add(1)
		go func(reg domain.Registration) {
			defer wg.Done()

			unlock, ok := m.locks.TryLock(reg.Card.String())
			if !ok {
				m.logger.Debug("card busy, skipping",
					zap.Int64("user_id", reg.UserID),
					zap.String("card", reg.Card.Masked()))
				return
			}
			defer unlock()

			outcome, err := m.check(ctx, reg)
			if err != nil {
				m.logger.Warn("balance check failed",
					zap.Int64("user_id", reg.UserID),
					zap.String("card", reg.Card.Masked()),
					zap.Error(err))
				return
			}

			if outcome.Event != nil {
				m.deliver(ctx, *outcome.Event)
			}
		}(reg)
	}
	wg.Wait()
}

// CheckNow runs one check cycle for the user's card immediately and returns
// the resulting snapshot. The change notification is suppressed because the
// caller shows the fresh balance anyway.
func (m *Monitor) CheckNow(ctx context.Context, userID int64) (domain.BalanceSnapshot, error) {
	reg, ok := m.registrations.Get(userID)
	if !ok {
		return domain.BalanceSnapshot{}, ErrNotRegistered
	}

	unlock, ok := m.locks.TryLock(reg.Card.String())
	if !ok {
		return domain.BalanceSnapshot{}, ErrCheckInProgress
	}
	defer unlock()

	outcome, err := m.check(ctx, reg)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}

	return outcome.Next, nil
}

// Register stores or replaces the user's card and resets the comparison
// baseline, so the first check after an update never notifies.
func (m *Monitor) Register(reg domain.Registration) error {
	unlock := m.locks.Lock(reg.Card.String())
	defer unlock()

	if err := m.registrations.Upsert(reg); err != nil {
		return errors.Wrap(err, "store registration")
	}
	if err := m.snapshots.Clear(reg.Card); err != nil {
		return errors.Wrap(err, "reset snapshot baseline")
	}

	m.logger.Info("card registered",
		zap.Int64("user_id", reg.UserID),
		zap.String("card", reg.Card.Masked()))

	return nil
}

// check performs one fetch-evaluate-store cycle. The caller must hold the
// card lock. A fetch failure leaves the stored snapshot untouched.
func (m *Monitor) check(ctx context.Context, reg domain.Registration) (detector.Outcome, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	cur, err := m.fetcher.FetchBalance(fetchCtx, reg.Card)
	if err != nil {
		return detector.Outcome{}, err
	}

	var prev *domain.BalanceSnapshot
	if last, ok := m.snapshots.Last(reg.Card); ok {
		prev = &last
	}

	outcome := detector.Evaluate(reg.UserID, prev, cur)

	if err := m.snapshots.Replace(outcome.Next); err != nil {
		return detector.Outcome{}, errors.Wrap(err, "persist snapshot")
	}

	if outcome.Baseline {
		m.logger.Info("baseline recorded",
			zap.Int64("user_id", reg.UserID),
			zap.String("card", reg.Card.Masked()),
			zap.String("balance", outcome.Next.Balance.String()))
	}

	return outcome, nil
}

// deliver sends the notification. The snapshot is already persisted, so a
// delivery failure is logged and dropped rather than retried next cycle.
func (m *Monitor) deliver(ctx context.Context, event domain.NotificationEvent) {
	if err := m.notifier.Notify(ctx, event); err != nil {
		m.logger.Error("notification delivery failed",
			zap.Int64("user_id", event.UserID),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	m.logger.Info("balance change notified",
		zap.Int64("user_id", event.UserID),
		zap.String("old_balance", event.OldBalance.String()),
		zap.String("new_balance", event.NewBalance.String()))
}
