// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blob

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/manhwaty/internal/platform/config"
	redisclient "github.com/taibuivan/manhwaty/internal/platform/redis"
)

// OpenerFor returns the [Opener] of the backend selected by cfg.BlobBackend.
func OpenerFor(cfg *config.Config, logger *slog.Logger) Opener {
	return func(context context.Context) (Backend, error) {
		switch cfg.BlobBackend {
		case config.BackendMemory:
			return NewMemoryBackend(), nil
		case config.BackendBolt:
			return OpenBolt(cfg.BoltPath, cfg.BlobNamespace)
		case config.BackendRedis:
			client, err := redisclient.NewClient(context, cfg.RedisURL, logger)
			if err != nil {
				return nil, err
			}
			return NewRedisBackend(client, cfg.BlobNamespace), nil
		default:
			return nil, fmt.Errorf("blob: unknown backend %q", cfg.BlobBackend)
		}
	}
}
