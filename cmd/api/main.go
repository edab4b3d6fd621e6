package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/printforge/printforge-backend/api/routes"
	"github.com/printforge/printforge-backend/internal/auth"
	category "github.com/printforge/printforge-backend/internal/categories"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/internal/imports"
	"github.com/printforge/printforge-backend/internal/media"
	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/internal/users"
	"github.com/printforge/printforge-backend/pkg/auth/session"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
	"github.com/printforge/printforge-backend/pkg/migrate"
	"github.com/printforge/printforge-backend/pkg/pubsub"
	"github.com/printforge/printforge-backend/pkg/redis"
	"github.com/printforge/printforge-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	userRepo := users.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	categoryRepo := category.NewRepository(dbClient.DB())
	constraintRepo := constraint.NewRepository(dbClient.DB())
	importRepo := imports.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	mediaService, err := media.NewService(mediaRepo, gcsClient, logg, cfg.Media, cfg.GCS)
	requireResource(ctx, logg, "media service", err)

	productService, err := product.NewService(productRepo, dbClient, categoryRepo, mediaRepo)
	requireResource(ctx, logg, "product service", err)

	categoryService, err := category.NewService(categoryRepo, dbClient)
	requireResource(ctx, logg, "category service", err)

	constraintService, err := constraint.NewService(constraintRepo, dbClient, productRepo)
	requireResource(ctx, logg, "constraint service", err)

	registry := prometheus.NewRegistry()

	dispatcher, err := buildDispatcher(cfg, logg, registry, importRepo, productRepo, categoryRepo, mediaRepo, gcsClient, pubsubClient)
	requireResource(ctx, logg, "import dispatcher", err)

	importService, err := imports.NewService(imports.ServiceParams{
		Logger:     logg,
		DB:         dbClient,
		Repo:       importRepo,
		Media:      mediaRepo,
		Products:   productRepo,
		Remover:    productRepo,
		Objects:    gcsClient,
		Dispatcher: dispatcher,
		Bucket:     cfg.GCS.BucketName,
		Config:     cfg.Imports,
	})
	requireResource(ctx, logg, "import service", err)

	router := routes.NewRouter(routes.RouterParams{
		Config:            cfg,
		Logger:            logg,
		DB:                dbClient,
		Redis:             redisClient,
		GCS:               gcsClient,
		SessionManager:    sessionManager,
		AuthService:       authService,
		RegisterService:   registerService,
		MediaService:      mediaService,
		ProductService:    productService,
		CategoryService:   categoryService,
		ConstraintService: constraintService,
		ImportService:     importService,
		Detector:          imaging.NewDetector(cfg.Detection),
		QualityValidator:  imaging.NewValidator(cfg.Quality),
		MetricsRegistry:   registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}

// buildDispatcher picks async Pub/Sub dispatch or an in-process runner
// depending on the feature flag.
func buildDispatcher(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	importRepo *imports.Repository,
	productRepo *product.Repository,
	categoryRepo *category.Repository,
	mediaRepo *media.Repository,
	gcsClient *gcs.Client,
	pubsubClient *pubsub.Client,
) (imports.Dispatcher, error) {
	if cfg.FeatureFlags.AsyncImports {
		return imports.NewPubSubDispatcher(pubsubClient.ImportsPublisher())
	}

	runner, err := imports.NewRunner(imports.RunnerParams{
		Logger:     logg,
		Repo:       importRepo,
		Products:   productRepo,
		Categories: categoryRepo,
		Media:      mediaRepo,
		Objects:    gcsClient,
		Bucket:     cfg.GCS.BucketName,
		Config:     cfg.Imports,
		Metrics:    metrics.NewImportMetrics(registry),
	})
	if err != nil {
		return nil, err
	}
	return imports.NewInlineDispatcher(runner, logg)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
