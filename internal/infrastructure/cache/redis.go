package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"krypton/internal/config"
)

// keyNamespace 所有缓存 key 的统一前缀，和其他服务共用实例时不冲突
const keyNamespace = "krypton"

const pingTimeout = 5 * time.Second

// InitRedis 建立客户端，启动阶段 ping 不通直接返回错误
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

func options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// key 拼出带命名空间的 key，例如 krypton:session:revoked:<jti>
func key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}
