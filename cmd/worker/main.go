package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	category "github.com/printforge/printforge-backend/internal/categories"
	"github.com/printforge/printforge-backend/internal/imports"
	"github.com/printforge/printforge-backend/internal/media"
	mediaconsumer "github.com/printforge/printforge-backend/internal/media/consumer"
	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
	"github.com/printforge/printforge-backend/pkg/pubsub"
	"github.com/printforge/printforge-backend/pkg/storage/gcs"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer gcsClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	mediaRepo := media.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	categoryRepo := category.NewRepository(dbClient.DB())
	importRepo := imports.NewRepository(dbClient.DB())

	uploadConsumer, err := mediaconsumer.NewConsumer(mediaRepo, gcsClient, pubsubClient.MediaSubscription(), logg, cfg.Media)
	requireResource(ctx, logg, "media upload consumer", err)

	runner, err := imports.NewRunner(imports.RunnerParams{
		Logger:     logg,
		Repo:       importRepo,
		Products:   productRepo,
		Categories: categoryRepo,
		Media:      mediaRepo,
		Objects:    gcsClient,
		Bucket:     cfg.GCS.BucketName,
		Config:     cfg.Imports,
		Metrics:    metrics.NewImportMetrics(prometheus.NewRegistry()),
	})
	requireResource(ctx, logg, "import runner", err)

	importConsumer, err := imports.NewConsumer(runner, pubsubClient.ImportsSubscription(), logg)
	requireResource(ctx, logg, "import consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return uploadConsumer.Run(groupCtx)
	})
	group.Go(func() error {
		return importConsumer.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker not working", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
