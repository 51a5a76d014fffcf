package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// Cache is a small byte-oriented key/value cache with per-key TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type cache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	owned  bool
}

func NewCache(log *logger.Logger, cfg Config) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	c := NewCacheFromClient(log, rdb, cfg.Prefix).(*cache)
	c.owned = true
	return c, nil
}

// NewCacheFromClient wraps an existing client. Close does not close it.
func NewCacheFromClient(log *logger.Logger, rdb goredis.UniversalClient, prefix string) Cache {
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "fc"
	}
	return &cache{
		log:    log.With("service", "RedisCache"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func (c *cache) key(k string) string { return c.prefix + ":" + k }

func (c *cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, fmt.Errorf("redis cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *cache) Close() error {
	if c == nil || c.rdb == nil || !c.owned {
		return nil
	}
	return c.rdb.Close()
}
