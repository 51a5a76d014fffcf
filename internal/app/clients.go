package app

import (
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/clients/redis"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type Clients struct {
	// Cache is nil when REDIS_ADDR is unset.
	Cache redis.Cache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var cache redis.Cache
	if cfg.RedisAddr != "" {
		c, err := redis.NewCache(log, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "fc:ndvi",
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		cache = c
	}
	return Clients{Cache: cache}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
