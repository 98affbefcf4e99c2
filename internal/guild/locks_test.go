package guild

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelLockRegistrySerializesSameKey(t *testing.T) {
	reg := NewChannelLockRegistry()
	go reg.Run()
	defer reg.Stop()

	ctx := context.Background()
	const workers = 20
	counter := 0
	var maxObserved int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := reg.Lock(ctx, "general")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			counter++
			if counter > maxObserved {
				maxObserved = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxObserved, "at most one holder of the same key at a time")
}

func TestChannelLockRegistryIndependentKeys(t *testing.T) {
	reg := NewChannelLockRegistry()
	go reg.Run()
	defer reg.Stop()

	ctx := context.Background()
	unlockA, err := reg.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := reg.Lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an independent key should not block")
	}
}

func TestChannelLockRegistryLockCancelled(t *testing.T) {
	reg := NewChannelLockRegistry()
	go reg.Run()
	defer reg.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Lock(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestChannelLockRegistryCancelledWaiterDoesNotLeakLock covers the case
// TestChannelLockRegistryLockCancelled does not: a waiter that is already
// queued behind a holder (not merely pending on the initial acquire send)
// has its ctx cancelled. The lock it never actually held must not be
// stranded as permanently held.
func TestChannelLockRegistryCancelledWaiterDoesNotLeakLock(t *testing.T) {
	reg := NewChannelLockRegistry()
	go reg.Run()
	defer reg.Stop()

	holderUnlock, err := reg.Lock(context.Background(), "general")
	require.NoError(t, err)

	waiterCtx, cancelWaiter := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := reg.Lock(waiterCtx, "general")
		waiterDone <- err
	}()

	// Give the waiter goroutine time to actually enqueue behind the held
	// lock before cancelling it.
	time.Sleep(20 * time.Millisecond)
	cancelWaiter()

	select {
	case err := <-waiterDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	holderUnlock()

	// If the cancelled waiter had stranded the lock as held, this would
	// block forever.
	thirdCaller := make(chan error, 1)
	go func() {
		unlock, err := reg.Lock(context.Background(), "general")
		if err == nil {
			unlock()
		}
		thirdCaller <- err
	}()

	select {
	case err := <-thirdCaller:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock was leaked by the cancelled waiter")
	}
}
