package geocache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLocksSerializeAndRelease(t *testing.T) {
	kl := newKeyLocks()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := kl.lock(ctx, "k")
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside.Load())
	require.Zero(t, kl.len())
}

func TestKeyLocksCanceled(t *testing.T) {
	kl := newKeyLocks()
	unlock, err := kl.lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = kl.lock(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)

	other, err := kl.lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	unlock()
	require.Zero(t, kl.len())
}
