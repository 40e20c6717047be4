// Package main wires together the pagewatch engine binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pagewatch/pagewatch/internal/api"
	"github.com/pagewatch/pagewatch/internal/capture"
	"github.com/pagewatch/pagewatch/internal/clock/system"
	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/hash/md5"
	"github.com/pagewatch/pagewatch/internal/logging"
	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/notify"
	pubsubpublisher "github.com/pagewatch/pagewatch/internal/publisher/pubsub"
	"github.com/pagewatch/pagewatch/internal/reconcile"
	"github.com/pagewatch/pagewatch/internal/retain"
	"github.com/pagewatch/pagewatch/internal/scheduler"
	"github.com/pagewatch/pagewatch/internal/storage/gcs"
	"github.com/pagewatch/pagewatch/internal/storage/memory"
	"github.com/pagewatch/pagewatch/internal/storage/postgres"
	"github.com/pagewatch/pagewatch/internal/throttle"
	"github.com/pagewatch/pagewatch/internal/watch"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
		DueAfter:        cfg.DueAfter(),
	})
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer repo.Close()

	store, cleanupStore, err := buildArtifactStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("artifact store init failed", zap.Error(err))
	}
	defer cleanupStore()

	captureSvc, err := capture.New(capture.Config{
		MaxParallel:       cfg.Capture.MaxParallel,
		UserAgent:         cfg.Capture.UserAgent,
		DefaultTimeout:    cfg.CaptureTimeout(),
		ScreenshotQuality: cfg.Capture.ScreenshotQuality,
	}, md5.New(), system.New())
	if err != nil {
		logger.Fatal("capture init failed", zap.Error(err))
	}
	defer captureSvc.Close()

	var notifier watch.Notifier
	var renderer watch.Renderer
	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			logger.Fatal("smtp init failed", zap.Error(err))
		}
		notifier = smtp
		renderer = notify.NewRenderer(notify.RendererConfig{
			ScreenshotBaseURL:  cfg.Storage.PublicBaseURL,
			UnsubscribeBaseURL: cfg.Notify.UnsubscribeBaseURL,
			FreeQuota:          cfg.Quota.FreeChecks,
		})
	} else {
		logger.Warn("smtp not configured, change alerts will be dropped")
	}

	var publisher watch.Publisher
	topic := cfg.PubSub.TopicName
	if cfg.PubSub.ProjectID != "" && topic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub init failed", zap.Error(err))
		}
		defer psClient.Close() //nolint:errcheck // best-effort close
		publisher = pubsubpublisher.New(psClient)
	} else {
		topic = ""
	}

	throttler, err := throttle.New(throttle.Config{
		FreeQuota: cfg.Quota.FreeChecks,
		Tiers:     cfg.Quota.Tiers,
	})
	if err != nil {
		logger.Fatal("throttle init failed", zap.Error(err))
	}

	retention := retain.New(repo, store, logger.Named("retain"))
	engine := scheduler.New(
		repo,
		store,
		captureSvc,
		notifier,
		renderer,
		publisher,
		throttler,
		retention,
		system.New(),
		scheduler.Config{
			PollInterval:   cfg.PollInterval(),
			CaptureTimeout: cfg.CaptureTimeout(),
			RecheckWorkers: cfg.Poll.RecheckWorkers,
			StaggerRate:    cfg.Poll.StaggerRate,
			Topic:          topic,
		},
		logger.Named("scheduler"),
	)
	reconciler := reconcile.New(repo, store, cfg.ReconcileInterval(), logger.Named("reconcile"))

	apiServer := api.NewServer(repo.Ping, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("scheduler started", zap.Duration("poll_interval", cfg.PollInterval()))
		engine.Run(ctx)
	}()

	go func() {
		logger.Info("reconciler started", zap.Duration("interval", cfg.ReconcileInterval()))
		reconciler.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildArtifactStore picks GCS when a bucket is configured and falls back
// to the in-memory store for local development.
func buildArtifactStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (watch.ArtifactStore, func(), error) {
	if cfg.Storage.GCSBucket == "" {
		logger.Warn("no gcs bucket configured, artifacts are held in memory")
		return memory.NewArtifactStore(), func() {}, nil
	}
	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs client: %w", err)
	}
	store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	if err != nil {
		client.Close() //nolint:errcheck // best-effort close
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	return store, cleanup, nil
}
