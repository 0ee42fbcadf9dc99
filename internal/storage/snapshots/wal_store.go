// Package snapshots persists the last known balance snapshot per card.
package snapshots

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/kronevakt/kronevakt/internal/domain"
)

const (
	snapshotSegmentLimit = 1000
	snapshotMaxSegments  = 100
	snapshotKeyPrefix    = "snapshot_"
)

// WALStore keeps the current snapshot per card in memory and appends every
// mutation to a WAL so state survives restarts. Replay is latest-wins; an
// empty payload is a tombstone written when a baseline is reset.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	current map[domain.CardNumber]domain.BalanceSnapshot
}

// NewWALStore opens the WAL under dir and replays it into memory.
func NewWALStore(dir string) (*WALStore, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "snapshot_",
		SegmentThreshold: snapshotSegmentLimit,
		MaxSegments:      snapshotMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init snapshot WAL")
	}

	s := &WALStore{
		wal:     wal,
		current: make(map[domain.CardNumber]domain.BalanceSnapshot),
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, snapshotKeyPrefix) {
			continue
		}
		card := domain.CardNumber(strings.TrimPrefix(msg.Key, snapshotKeyPrefix))
		if len(msg.Value) == 0 {
			delete(s.current, card)
			continue
		}
		var snapshot domain.BalanceSnapshot
		if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
			return nil, errors.Wrap(err, "decode snapshot during WAL replay")
		}
		s.current[card] = snapshot
	}

	return s, nil
}

// Last returns the current snapshot for the card, if any.
func (s *WALStore) Last(card domain.CardNumber) (domain.BalanceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.current[card]
	return snapshot, ok
}

// Replace makes snapshot the single current snapshot for its card.
func (s *WALStore) Replace(snapshot domain.BalanceSnapshot) error {
	if snapshot.Card == "" {
		return errors.New("snapshot card number is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	key := fmt.Sprintf("%s%s", snapshotKeyPrefix, snapshot.Card)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	s.current[snapshot.Card] = snapshot

	return nil
}

// Clear drops the current snapshot for the card so the next observation
// becomes a fresh baseline.
func (s *WALStore) Clear(card domain.CardNumber) error {
	key := fmt.Sprintf("%s%s", snapshotKeyPrefix, card)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.current[card]; !ok {
		return nil
	}

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, nil); err != nil {
		return errors.Wrap(err, "write snapshot tombstone")
	}
	delete(s.current, card)

	return nil
}

// SnapshotsAfter returns all snapshots written after the provided WAL index.
// Tombstones are skipped.
func (s *WALStore) SnapshotsAfter(index uint64) ([]domain.BalanceSnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.BalanceSnapshotRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, snapshotKeyPrefix) || len(payload) == 0 {
			continue
		}
		var snapshot domain.BalanceSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, errors.Wrap(err, "decode snapshot")
		}
		records = append(records, domain.BalanceSnapshotRecord{
			Index:    idx,
			Snapshot: snapshot,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
