package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krypton/internal/testutil"
)

func TestDistributedLock_Exclusive(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "a", time.Minute)
	b := NewDistributedLock(client, "k", "b", time.Minute)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b 不是持有者，释放无效
	require.NoError(t, b.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLock_Expires(t *testing.T) {
	client, mr := testutil.NewRedis(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "a", time.Second)
	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewDistributedLock(client, "k", "b", time.Second)
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLock_GivesUp(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	ctx := context.Background()

	held := NewDistributedLock(client, "k", "a", time.Minute)
	_, err := held.TryLock(ctx)
	require.NoError(t, err)

	waiter := NewDistributedLock(client, "k", "b", time.Minute)
	err = waiter.Lock(ctx, time.Millisecond, 3)
	assert.ErrorIs(t, err, ErrLockFailed)
}

func TestBalanceLocker_Serializes(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	locker := NewBalanceLocker(client, time.Minute, time.Millisecond, 5000)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "user-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
