package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"krypton/internal/model"
)

var quotesKey = key("market", "quotes")

// ErrCacheMiss 缓存中没有行情
var ErrCacheMiss = errors.New("cache miss")

// QuoteCache 最近一次行情快照
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{client: client, ttl: ttl}
}

func (c *QuoteCache) Store(ctx context.Context, snapshot *model.MarketSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quotesKey, payload, c.ttl).Err()
}

func (c *QuoteCache) Load(ctx context.Context) (*model.MarketSnapshot, error) {
	payload, err := c.client.Get(ctx, quotesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var snapshot model.MarketSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
