// Package registrations persists the user-to-card registrations.
package registrations

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/kronevakt/kronevakt/internal/domain"
)

const (
	registrationSegmentLimit = 1000
	registrationMaxSegments  = 100
	registrationKeyPrefix    = "registration_"
)

// WALStore keeps registrations in memory, backed by a WAL for durability.
// One registration per user; re-registering replaces the previous record.
type WALStore struct {
	wal    *gowal.Wal
	mu     sync.RWMutex
	byUser map[int64]domain.Registration
}

// NewWALStore opens the WAL under dir and replays it into memory.
func NewWALStore(dir string) (*WALStore, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "registration_",
		SegmentThreshold: registrationSegmentLimit,
		MaxSegments:      registrationMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init registration WAL")
	}

	s := &WALStore{
		wal:    wal,
		byUser: make(map[int64]domain.Registration),
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, registrationKeyPrefix) {
			continue
		}
		userID, err := strconv.ParseInt(strings.TrimPrefix(msg.Key, registrationKeyPrefix), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad registration key %q during WAL replay", msg.Key)
		}
		var reg domain.Registration
		if err := json.Unmarshal(msg.Value, &reg); err != nil {
			return nil, errors.Wrap(err, "decode registration during WAL replay")
		}
		s.byUser[userID] = reg
	}

	return s, nil
}

// Get returns the registration for the user, if any.
func (s *WALStore) Get(userID int64) (domain.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.byUser[userID]
	return reg, ok
}

// Upsert creates or replaces the registration for reg.UserID.
func (s *WALStore) Upsert(reg domain.Registration) error {
	if reg.Card == "" {
		return errors.New("registration card number is required")
	}

	payload, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, "marshal registration")
	}

	key := fmt.Sprintf("%s%d", registrationKeyPrefix, reg.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write registration")
	}
	s.byUser[reg.UserID] = reg

	return nil
}

// List returns all registrations ordered by user id.
func (s *WALStore) List() []domain.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]domain.Registration, 0, len(s.byUser))
	for _, reg := range s.byUser {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].UserID < regs[j].UserID })

	return regs
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
