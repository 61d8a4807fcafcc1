package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis 分布式锁
//
// 加锁：SET key owner NX PX ttl
// 释放：Lua 脚本先比较 owner 再删除，锁过期后被别人拿到时不会误删

var ErrLockFailed = errors.New("failed to acquire lock")

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// DistributedLock 单个 key 上的锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	owner      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, owner string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		owner:      owner,
		expiration: expiration,
	}
}

// TryLock 非阻塞，拿不到直接返回 false
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.expiration).Result()
}

// Lock 按 retryInterval 重试，最多 maxRetries 次
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.owner).Err()
}

// BalanceLocker 按用户维度加锁，同一用户的余额变更串行执行
type BalanceLocker struct {
	client        *redis.Client
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewBalanceLocker(client *redis.Client, expiration, retryInterval time.Duration, maxRetries int) *BalanceLocker {
	return &BalanceLocker{
		client:        client,
		expiration:    expiration,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}
}

// Acquire 阻塞直到拿到锁，调用方必须执行返回的 release
func (b *BalanceLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	l := NewBalanceLock(b.client, userID, uuid.NewString(), b.expiration)
	if err := l.Lock(ctx, b.retryInterval, b.maxRetries); err != nil {
		return nil, fmt.Errorf("lock balance of %s: %w", userID, err)
	}
	return func() {
		// 业务 ctx 可能已经超时，释放锁用独立的 ctx
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Unlock(unlockCtx)
	}, nil
}

func NewBalanceLock(client *redis.Client, userID, owner string, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, "balance:lock:user:"+userID, owner, expiration)
}
