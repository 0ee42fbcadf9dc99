package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyLockMutualExclusion(t *testing.T) {
	kl := New()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("card")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxSeen, "at most one holder per key at a time")
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := New()

	unlockA := kl.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := kl.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent key blocked")
	}
}

func TestKeyLockTryLock(t *testing.T) {
	kl := New()

	unlock := kl.Lock("busy")

	_, ok := kl.TryLock("busy")
	require.False(t, ok, "TryLock must fail while key is held")

	unlock()

	unlock2, ok := kl.TryLock("busy")
	require.True(t, ok, "TryLock must succeed after release")
	unlock2()
}

func TestKeyLockReclaimsEntries(t *testing.T) {
	kl := New()

	unlock := kl.Lock("tmp")
	unlock()

	kl.mu.Lock()
	defer kl.mu.Unlock()
	require.Empty(t, kl.entries, "released keys must not leak")
}
