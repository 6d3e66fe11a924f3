package events

import (
	"crypto/tls"
	"net"
	"time"

	"mongo-fixtures/internal/fixtures/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client for the event sink
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}

	if cfg.EnableTLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		options.TLSConfig = &tls.Config{ServerName: host}
	}

	return redis.NewClient(options)
}
