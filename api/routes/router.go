package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printforge/printforge-backend/api/controllers"
	"github.com/printforge/printforge-backend/api/middleware"
	"github.com/printforge/printforge-backend/internal/auth"
	category "github.com/printforge/printforge-backend/internal/categories"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/internal/imports"
	"github.com/printforge/printforge-backend/internal/media"
	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/pkg/auth/session"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Pinger is the readiness surface each backing store exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config            *config.Config
	Logger            *logger.Logger
	DB                Pinger
	Redis             *redis.Client
	GCS               Pinger
	SessionManager    sessionManager
	AuthService       auth.Service
	RegisterService   auth.RegisterService
	MediaService      media.Service
	ProductService    product.Service
	CategoryService   category.Service
	ConstraintService constraint.Service
	ImportService     imports.Service
	Detector          *imaging.Detector
	QualityValidator  *imaging.Validator
	MetricsRegistry   *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var idemStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	if p.Redis != nil {
		idemStore = p.Redis
		rateStore = p.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	readiness := map[string]controllers.Pinger{
		"database": p.DB,
		"gcs":      p.GCS,
	}
	if p.Redis != nil {
		readiness["redis"] = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if p.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	authed := middleware.Auth(cfg.JWT, p.SessionManager, logg)
	idempotent := middleware.Idempotency(idemStore, logg)
	editors := middleware.RequireRole(logg, string(enums.MemberRoleAdmin), string(enums.MemberRoleEditor))
	admins := middleware.RequireRole(logg, string(enums.MemberRoleAdmin))

	// Register lives under the public auth subtree, so it carries its own
	// auth chain instead of the authed group's.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
		r.With(authed, idempotent, admins).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
	})

	// Unauthenticated storefront reads.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(p.ProductService, logg, true))
		r.Get("/categories", controllers.ListCategories(p.CategoryService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authed)
		r.Use(idempotent)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.ProductService, logg, false))
			r.Get("/export", controllers.ExportProducts(p.ProductService, logg))
			r.With(editors).Post("/", controllers.CreateProduct(p.ProductService, logg))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(p.ProductService, logg))
				r.With(editors).Patch("/", controllers.UpdateProduct(p.ProductService, logg))
				r.With(editors).Delete("/", controllers.DeleteProduct(p.ProductService, logg))

				r.Route("/constraints", func(r chi.Router) {
					r.Get("/", controllers.ListConstraints(p.ConstraintService, logg))
					r.With(editors).Post("/", controllers.CreateConstraint(p.ConstraintService, logg))
				})
				r.Post("/placement/validate", controllers.ValidatePlacement(p.ConstraintService, logg))
			})
		})

		r.Route("/constraints/{constraintID}", func(r chi.Router) {
			r.With(editors).Patch("/", controllers.UpdateConstraint(p.ConstraintService, logg))
			r.With(editors).Delete("/", controllers.DeleteConstraint(p.ConstraintService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(p.CategoryService, logg))
			r.With(editors).Post("/", controllers.CreateCategory(p.CategoryService, logg))
			r.With(editors).Patch("/{categoryID}", controllers.UpdateCategory(p.CategoryService, logg))
			r.With(editors).Delete("/{categoryID}", controllers.DeleteCategory(p.CategoryService, logg))
		})

		r.Route("/media", func(r chi.Router) {
			r.Post("/presign", controllers.MediaPresign(p.MediaService, logg))
			r.Get("/{mediaID}", controllers.GetMedia(p.MediaService, logg))
			r.Get("/{mediaID}/url", controllers.MediaReadURL(p.MediaService, logg))
			r.With(editors).Delete("/{mediaID}", controllers.DeleteMedia(p.MediaService, logg))
		})

		r.With(editors).Post("/detect", controllers.DetectRegion(p.Detector, p.MediaService, p.ConstraintService, logg))
		r.Post("/quality", controllers.ValidateQuality(p.QualityValidator, p.MediaService, p.ConstraintService, logg))

		r.Route("/imports", func(r chi.Router) {
			r.Get("/", controllers.ListImportJobs(p.ImportService, logg))
			r.Get("/template", controllers.ImportTemplate(p.ImportService, logg))
			r.With(editors).Post("/", controllers.CreateImportJob(p.ImportService, logg))
			r.Get("/{jobID}", controllers.GetImportJob(p.ImportService, logg))
			r.With(admins).Post("/{jobID}/rollback", controllers.RollbackImportJob(p.ImportService, logg))
		})
	})

	return r
}
