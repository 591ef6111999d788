// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Manhwaty HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration from environment variables.
//  2. Initialize the structured logger.
//  3. Open the key-value store holding the record document (runs migrations).
//  4. Prepare the lazily opened blob store for covers.
//  5. Wire the catalog, backup and asset handlers.
//  6. Start the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/manhwaty/internal/api"
	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/core/backup"
	"github.com/taibuivan/manhwaty/internal/core/blob"
	"github.com/taibuivan/manhwaty/internal/core/shelf"
	"github.com/taibuivan/manhwaty/internal/platform/config"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/kvstore"
	"github.com/taibuivan/manhwaty/internal/platform/logging"
	"github.com/taibuivan/manhwaty/internal/platform/sec"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "manhwaty: load configuration: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log := logging.New(logging.Options{Development: cfg.IsDevelopment(), Debug: cfg.Debug})
	slog.SetDefault(log)

	log.Info("service_initializing",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("kv_backend", cfg.KVBackend),
		slog.String("blob_backend", cfg.BlobBackend),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, constants.StartupTimeout)
	defer startupCancel()

	// ── 3. Record storage ─────────────────────────────────────────────────
	kv, err := kvstore.Open(startupCtx, cfg, log)
	must(log, err, "open key-value store")
	defer func() {
		if cerr := kv.Close(); cerr != nil {
			log.Error("kv_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 4. Image storage ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.AssetTokenSecret, constants.AssetTokenIssuer)
	must(log, err, "initialize asset token service")

	blobs := blob.NewStore(blob.OpenerFor(cfg, log), tokens, cfg.AssetTokenTTL, log)
	defer func() {
		if cerr := blobs.Close(); cerr != nil {
			log.Error("blob_close_failed", slog.Any("error", cerr))
		}
	}()

	normalizer := asset.NewNormalizer(
		asset.JPEGCodec{Quality: constants.ImageQuality},
		asset.NewHTTPFetcher(cfg.FetchTimeout),
		log,
	)

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	records := shelf.NewService(shelf.NewKVRepository(kv, constants.RecordsKey, log), blobs, normalizer, log)
	codec := backup.NewCodec(records, blobs, normalizer, log)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckRecords: kv.Ping,
		CheckImages:  blobs.Ping,
	}, log)

	server := api.NewServer(rootCtx, cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Records:   shelf.NewHandler(records, cfg.MaxUploadBytes),
		Backup:    backup.NewHandler(codec, cfg.MaxUploadBytes),
		Assets:    blob.NewHandler(blobs, tokens),
	})

	// ── 6. Graceful Shutdown ──────────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, errors are returned and handled.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure", slog.String("step", step), slog.Any("error", err))
		os.Exit(1)
	}
}
