// Command ledgerd serves the construction ledger: REST command surface,
// rules-guarded entity store, and background reconciliation against the
// remote authoritative service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"buildledger/internal/blob"
	"buildledger/internal/config"
	"buildledger/internal/core"
	"buildledger/internal/events"
	"buildledger/internal/httpapi"
	"buildledger/internal/infra/cache"
	"buildledger/internal/remote"
	ledgersync "buildledger/internal/sync"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store, err := core.OpenPersistentStore(core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Store.Driver),
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Store.PostgresDSN,
	}, nil)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		producer, err := events.NewProducer(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Fatal("connect broker", zap.Error(err))
		}
		publisher = producer
	}
	defer publisher.Close()

	svc := core.NewService(store, logger, publisher)

	var coord *ledgersync.Coordinator
	var scheduler *cron.Cron
	if cfg.Remote.BaseURL != "" {
		collectionCache, err := cache.Open(cfg.Cache)
		if err != nil {
			logger.Fatal("open cache", zap.Error(err))
		}
		defer func() { _ = collectionCache.Close() }()

		client := remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout())
		coord = ledgersync.NewCoordinator(store, client, collectionCache, logger)
		if err := coord.LoadAll(context.Background()); err != nil {
			logger.Fatal("initial load", zap.Error(err))
		}
		svc.SetAfterCommit(coord.Flush)

		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Sync.ReconcileSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout()*2)
			defer cancel()
			coord.Reconcile(ctx)
		}); err != nil {
			logger.Fatal("schedule reconcile", zap.Error(err))
		}
		scheduler.Start()
	} else {
		logger.Info("no remote configured, running standalone")
	}

	blobs, err := blob.Open(context.Background(), blob.Config{
		Driver:     blob.Driver(cfg.Blob.Driver),
		Root:       cfg.Blob.Root,
		S3Region:   cfg.Blob.S3Region,
		S3Bucket:   cfg.Blob.S3Bucket,
		S3Endpoint: cfg.Blob.S3Endpoint,
	})
	if err != nil {
		logger.Fatal("open blob store", zap.Error(err))
	}

	server := httpapi.NewServer(svc, coord, blobs, cfg.Server.JWTSecret, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Engine(),
	}

	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	if coord != nil {
		coord.Reconcile(ctx)
	}
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = parsed
	}
	return cfg.Build()
}
