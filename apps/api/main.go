package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	cataloghandler "github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/handler"
	catalogrepo "github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/repo"
	catalogservice "github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/service"
	deploymentshandler "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/handler"
	deploymentsrepo "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/repo"
	"github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/scan"
	deploymentsservice "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
	tenantshandler "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/handler"
	tenantsrepo "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/repo"
	tenantsservice "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	platformauth "github.com/skillsight-analytics/skillsight-saas/platform/go/auth"
	platformlogging "github.com/skillsight-analytics/skillsight-saas/platform/go/logging"
	platformmiddleware "github.com/skillsight-analytics/skillsight-saas/platform/go/middleware"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"local"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"`

	BIAPIBaseURL  string        `env:"BI_API_BASE_URL,required"`
	BIAPIToken    string        `env:"BI_API_TOKEN"`
	BIScanTimeout time.Duration `env:"BI_SCAN_TIMEOUT" envDefault:"30s"`
	BIScanFanout  int           `env:"BI_SCAN_FANOUT" envDefault:"4"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component:   "api-server",
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	tenantRepo := tenantsrepo.NewPostgresRepository(pool)
	tenantService := tenantsservice.New(tenantRepo)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	catalogRepo := catalogrepo.NewPostgresRepository(pool)
	catalogService := catalogservice.New(catalogRepo, tenantService)
	catalogHTTPHandler := cataloghandler.New(catalogService, logger)

	scanner, err := scan.NewConnector(scan.Config{
		BaseURL:              cfg.BIAPIBaseURL,
		Token:                cfg.BIAPIToken,
		Timeout:              cfg.BIScanTimeout,
		PageFetchConcurrency: cfg.BIScanFanout,
	})
	if err != nil {
		logger.Fatal("init bi scan connector", zap.Error(err))
	}

	deploymentsRepo := deploymentsrepo.NewPostgresRepository(pool)
	deploymentsService := deploymentsservice.New(deploymentsRepo, tenantService, scanner, logger)
	deploymentsHTTPHandler := deploymentshandler.New(deploymentsService, logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, tenantService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformmiddleware.RequestTrace)

	tenantsValidator := mustNewSpecValidator(logger, "contracts/tenants.yaml")
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole("admin"))
		r.Use(tenantsValidator)
		r.Mount("/admin/tenants", tenantHTTPHandler.Routes())
	})

	catalogValidator := mustNewSpecValidator(logger, "contracts/catalog.yaml")
	apiRouter.Group(func(r chi.Router) {
		r.Use(catalogValidator)
		r.Mount("/catalog", catalogHTTPHandler.Routes())
		r.Mount("/tenants/{tenantID}/catalog", catalogHTTPHandler.TenantRoutes())
	})

	deploymentsValidator := mustNewSpecValidator(logger, "contracts/deployments.yaml")
	apiRouter.Group(func(r chi.Router) {
		r.Use(deploymentsValidator)
		r.Mount("/deployments", deploymentsHTTPHandler.Routes())
		r.Mount("/tenants/{tenantID}/deployments", deploymentsHTTPHandler.TenantRoutes())
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// mustNewSpecValidator loads the OpenAPI document and builds request validator
// middleware for one contract group.
func mustNewSpecValidator(logger *zap.Logger, path string) func(http.Handler) http.Handler {
	spec := mustLoadSpec(logger, path)

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	})
}

// mustLoadSpec loads and returns the OpenAPI document for validation and docs
// serving.
func mustLoadSpec(logger *zap.Logger, path string) *openapi3.T {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Fatal("resolve spec path", zap.String("path", path), zap.Error(err))
	}

	baseDir := filepath.Dir(absPath)
	loader.ReadFromURIFunc = func(loader *openapi3.Loader, ref *url.URL) ([]byte, error) {
		if ref == nil {
			return nil, errors.New("nil reference URI")
		}
		if ref.IsAbs() {
			switch ref.Scheme {
			case "file":
				data, err := os.ReadFile(ref.Path)
				if err != nil {
					return nil, fmt.Errorf("read reference %q: %w", ref.Path, err)
				}
				return data, nil
			default:
				return nil, fmt.Errorf("unsupported reference scheme %q", ref.String())
			}
		}
		refPath := filepath.Clean(ref.Path)
		if refPath == "" {
			return nil, fmt.Errorf("empty reference path for %q", ref.String())
		}
		candidate := filepath.Join(baseDir, refPath)
		data, err := os.ReadFile(candidate)
		if err != nil {
			return nil, fmt.Errorf("read reference %q: %w", candidate, err)
		}
		return data, nil
	}

	spec, err := loader.LoadFromFile(absPath)
	if err != nil {
		logger.Fatal("load openapi spec", zap.String("path", path), zap.Error(err))
	}
	logSecuritySchemes(logger, path, spec)
	return spec
}

func logSecuritySchemes(logger *zap.Logger, path string, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("path", path))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for name := range spec.Components.SecuritySchemes {
		names = append(names, name)
	}
	logger.Info("loaded security schemes", zap.String("path", path), zap.Strings("names", names))
}
