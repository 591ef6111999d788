// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis connects the redis blob backend.

Covers are stored as hashes of a few hundred kilobytes each, so the pool is
small and the read/write deadlines are longer than for typical cache traffic.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/manhwaty/internal/platform/constants"
)

const (
	poolSize     = 4
	dialTimeout  = 3 * time.Second
	ioTimeout    = 10 * time.Second
	pingTimeout  = 2 * time.Second
	defaultBatch = 256
)

/*
NewClient parses redisURL, connects and verifies the connection with a ping.

Parameters:
  - context: Bounds the initial ping
  - redisURL: redis:// or rediss:// URL
  - logger: Receives the "redis_connected" event

Returns:
  - *redis.Client: A connected client owned by the caller
  - error: Invalid URL or unreachable server
*/
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.ClientName = constants.AppName
	options.PoolSize = poolSize
	options.MinIdleConns = 1
	options.DialTimeout = dialTimeout
	options.ReadTimeout = ioTimeout
	options.WriteTimeout = ioTimeout

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_connected", slog.String("addr", options.Addr), slog.Int("db", options.DB))
	return client, nil
}

// Ping checks the server answers within a short deadline.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

// UnlinkMatching removes every key matching pattern using SCAN and UNLINK, so
// the server is never blocked by a single large KEYS or DEL. It returns the
// number of keys removed.
func UnlinkMatching(context stdctx.Context, client *redis.Client, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := client.Scan(context, cursor, pattern, defaultBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := client.Unlink(context, keys...).Err(); err != nil {
				return removed, fmt.Errorf("redis: unlink %q: %w", pattern, err)
			}
			removed += len(keys)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
