package registrations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kronevakt/kronevakt/internal/domain"
)

func registrationFor(userID int64, card domain.CardNumber) domain.Registration {
	return domain.Registration{
		UserID:    userID,
		Username:  "kari",
		Card:      card,
		CreatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGet(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Get(42)
	require.False(t, ok)

	require.NoError(t, store.Upsert(registrationFor(42, "123456789012")))

	reg, ok := store.Get(42)
	require.True(t, ok)
	require.Equal(t, domain.CardNumber("123456789012"), reg.Card)

	// re-registering replaces the card on file
	require.NoError(t, store.Upsert(registrationFor(42, "999988887777")))

	reg, ok = store.Get(42)
	require.True(t, ok)
	require.Equal(t, domain.CardNumber("999988887777"), reg.Card)
}

func TestUpsertRequiresCard(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Upsert(domain.Registration{UserID: 42}))
}

func TestListOrderedByUser(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(registrationFor(7, "111111111111")))
	require.NoError(t, store.Upsert(registrationFor(3, "222222222222")))
	require.NoError(t, store.Upsert(registrationFor(11, "333333333333")))

	regs := store.List()
	require.Len(t, regs, 3)
	require.Equal(t, int64(3), regs[0].UserID)
	require.Equal(t, int64(7), regs[1].UserID)
	require.Equal(t, int64(11), regs[2].UserID)
}

func TestReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(registrationFor(42, "123456789012")))
	require.NoError(t, store.Upsert(registrationFor(42, "999988887777")))
	require.NoError(t, store.Upsert(registrationFor(7, "111111111111")))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	reg, ok := reopened.Get(42)
	require.True(t, ok)
	require.Equal(t, domain.CardNumber("999988887777"), reg.Card, "replay must keep the latest registration per user")
	require.Len(t, reopened.List(), 2)
}
