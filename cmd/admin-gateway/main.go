package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/auth"
	"github.com/eduvoyage/admin-gateway/internal/gateway"
	"github.com/eduvoyage/admin-gateway/internal/metrics"
	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/internal/registry"
	"github.com/eduvoyage/admin-gateway/internal/repository"
	"github.com/eduvoyage/admin-gateway/internal/session"
	"github.com/eduvoyage/admin-gateway/internal/snapshots"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	"github.com/eduvoyage/admin-gateway/pkg/cache"
	"github.com/eduvoyage/admin-gateway/pkg/config"
	"github.com/eduvoyage/admin-gateway/pkg/database"
	"github.com/eduvoyage/admin-gateway/pkg/logger"
	"github.com/eduvoyage/admin-gateway/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var store session.Store = session.NewMemoryStore()
	if cfg.Session.UseRedis {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		store = session.NewRedisStore(redisClient, cfg.Session.TTL)
	}

	collector := metrics.NewCollector()
	notifier := notify.NewNotifier(cfg.Engine.NotifyRetention, logr)
	validate := validator.New()

	client := transport.NewClient(transport.ClientConfig{
		Timeout:     cfg.Upstream.Timeout,
		Tokens:      store,
		StaticToken: cfg.Upstream.StaticToken,
		Logger:      logr,
		Observer:    collector.ObserveUpstream,
	})

	reg, err := registry.Build(registry.Deps{
		Sender:         client,
		Notifier:       notifier,
		Validate:       validate,
		Logger:         logr,
		BaseURL:        cfg.Upstream.BaseURL,
		TriggerBuffer:  cfg.Engine.TriggerBuffer,
		RefetchWorkers: cfg.Engine.RefetchWorkers,
	})
	if err != nil {
		logr.Sugar().Fatalw("entity registration failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var persister *snapshots.Persister
	if cfg.Snapshots.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("postgres connection failed", "error", err)
		}
		defer db.Close() //nolint:errcheck

		persister = snapshots.NewPersister(repository.NewSnapshotRepository(db), reg.Supervisor, snapshots.Config{
			Workers: cfg.Snapshots.Workers,
			Retries: cfg.Snapshots.Retries,
			Logger:  logr,
		})
		persister.Start(ctx)
		defer persister.Stop()
	}

	reg.Start(ctx)
	defer reg.Stop()

	authService := auth.NewService(client, store, validate, notifier, logr, cfg.Upstream.BaseURL)

	var archive *storage.Archive
	var signer *storage.ShareSigner
	if cfg.Exports.Enabled && cfg.Exports.Dir != "" && cfg.Exports.ShareSecret != "" {
		archive, err = storage.NewArchive(cfg.Exports.Dir)
		if err != nil {
			logr.Sugar().Fatalw("export archive init failed", "error", err)
		}
		signer = storage.NewShareSigner(cfg.Exports.ShareSecret, cfg.Exports.ShareTTL)
		go cleanupArchive(ctx, archive, cfg.Exports.ShareTTL, logr)
	}

	router := gateway.NewRouter(gateway.Deps{
		Config:     cfg,
		Logger:     logr,
		Supervisor: reg.Supervisor,
		Auth:       authService,
		Notifier:   notifier,
		Collector:  collector,
		Archive:    archive,
		Signer:     signer,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("gateway starting", "addr", addr, "env", cfg.Env, "entities", len(reg.Supervisor.Entities()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// cleanupArchive drops archived exports whose share tokens have expired.
func cleanupArchive(ctx context.Context, archive *storage.Archive, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := archive.CleanupOlderThan(ttl)
			if err != nil {
				logr.Sugar().Warnw("archive cleanup failed", "error", err)
				continue
			}
			if len(deleted) > 0 {
				logr.Sugar().Infow("archive cleanup", "deleted", len(deleted))
			}
		}
	}
}
