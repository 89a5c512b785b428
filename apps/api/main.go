package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/contracts"
	authhandler "github.com/monynha/botecopro/domains/auth/be/handler"
	authservice "github.com/monynha/botecopro/domains/auth/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	onboardinghandler "github.com/monynha/botecopro/domains/onboarding/be/handler"
	"github.com/monynha/botecopro/domains/onboarding/be/metrics"
	onboardingprov "github.com/monynha/botecopro/domains/onboarding/be/provisioning"
	onboardingrepo "github.com/monynha/botecopro/domains/onboarding/be/repo"
	onboardingservice "github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/sessions"
	provisioninghandler "github.com/monynha/botecopro/domains/provisioning/be/handler"
	provisioningdb "github.com/monynha/botecopro/domains/provisioning/be/provisioning"
	provisioningservice "github.com/monynha/botecopro/domains/provisioning/be/service"
	"github.com/monynha/botecopro/platform/go/events"
	platformlogging "github.com/monynha/botecopro/platform/go/logging"
	platformmiddleware "github.com/monynha/botecopro/platform/go/middleware"
	"github.com/monynha/botecopro/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"45s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	DataBackend     string `env:"DATA_BACKEND" envDefault:"postgres"` // postgres | memory
	DatabaseURL     string `env:"DATABASE_URL"`                       // missing URL leaves the gateway unconfigured
	DBMaxConns      int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBConnectTries  int    `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
	SharedSchema    string `env:"SHARED_SCHEMA" envDefault:"public"`
	BootstrapSchema bool   `env:"BOOTSTRAP_SCHEMA" envDefault:"true"`

	ProvisioningURL     string        `env:"PROVISIONING_URL"` // empty targets this server when it mounts the endpoint
	ProvisioningTimeout time.Duration `env:"PROVISIONING_TIMEOUT" envDefault:"30s"`
	ServeProvisioning   bool          `env:"SERVE_PROVISIONING" envDefault:"true"`

	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"memory"` // memory | redis
	RedisURL       string        `env:"REDIS_URL"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"botecopro.onboarding"`
	KafkaClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"botecopro-api"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "botecopro-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var pool *pgxpool.Pool
	var repository gateway.Repository
	switch cfg.DataBackend {
	case "memory":
		logger.Warn("using in-memory data backend, nothing survives a restart")
		repository = onboardingrepo.NewMemoryRepository()
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			// Every gateway operation reports a configuration error until DATABASE_URL is set.
			logger.Error("DATABASE_URL is not set, persistence is unavailable")
			break
		}
		pool, err = persistence.NewPool(ctx, persistence.PoolConfig{
			ConnString:      cfg.DatabaseURL,
			ApplicationName: "botecopro-api",
			MaxConns:        cfg.DBMaxConns,
			ConnectAttempts: cfg.DBConnectTries,
		})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)

		if cfg.BootstrapSchema {
			if err := persistence.BootstrapCoreSchema(ctx, pool); err != nil {
				logger.Fatal("bootstrap core schema", zap.Error(err))
			}
		}
		pgRepo, err := onboardingrepo.NewPostgresRepository(pool)
		if err != nil {
			logger.Fatal("init onboarding repository", zap.Error(err))
		}
		repository = pgRepo
	default:
		logger.Fatal("invalid DATA_BACKEND (use postgres or memory)", zap.String("backend", cfg.DataBackend))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	onboardingMetrics := metrics.New(registry)

	publisher := mustNewPublisher(cfg, logger)
	if closer, ok := publisher.(interface{ Close() }); ok {
		defer closer.Close()
	}

	provisioningTarget := provisioningURL(cfg, cfg.ServeProvisioning && pool != nil)
	logger.Info("provisioning client configured", zap.String("url", provisioningTarget))
	provisioningClient := onboardingprov.NewHTTPClient(onboardingprov.Config{
		URL:     provisioningTarget,
		Timeout: cfg.ProvisioningTimeout,
	}, logger)

	gw := gateway.New(repository, provisioningClient, logger, gateway.WithMetrics(onboardingMetrics))

	wizard := onboardingservice.New(gw, logger,
		onboardingservice.WithPublisher(publisher),
		onboardingservice.WithMetrics(onboardingMetrics),
	)

	var redisClient *redis.Client
	var store sessions.Store
	switch cfg.SessionBackend {
	case "memory":
		store = sessions.NewMemoryStore(cfg.SessionTTL)
	case "redis":
		redisClient, err = sessions.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("init redis client", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		store = sessions.NewRedisStore(redisClient, cfg.SessionTTL)
	default:
		logger.Fatal("invalid SESSION_BACKEND (use memory or redis)", zap.String("backend", cfg.SessionBackend))
	}

	onboardingHTTPHandler := onboardinghandler.New(wizard, gw, store, logger)
	authHTTPHandler := authhandler.New(authservice.New(gw, logger), store, logger)

	rootRouter := chi.NewRouter()

	cors := platformmiddleware.DefaultCORS()
	if len(cfg.CORSOrigins) > 0 {
		cors = platformmiddleware.CORS(cfg.CORSOrigins)
	}

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		cors,
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))
	rootRouter.Use(platformmiddleware.RequestTrace)

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", readinessHandler(pool, redisClient, logger))
	rootRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	onboardingValidator := mustNewSpecValidator(logger, contracts.OnboardingName, contracts.Onboarding)
	apiRouter := chi.NewRouter()
	apiRouter.Use(onboardingValidator)
	authHTTPHandler.Register(apiRouter)
	onboardingHTTPHandler.Register(apiRouter)
	rootRouter.Mount("/api/v1", apiRouter)

	if cfg.ServeProvisioning {
		if pool == nil {
			logger.Warn("provisioning endpoint needs the postgres backend, not mounting it")
		} else {
			provisioningService := provisioningservice.New(
				provisioningdb.NewDBProvisioner(pool, cfg.SharedSchema),
				logger,
				provisioningservice.WithPublisher(publisher),
			)
			provisioningValidator := mustNewSpecValidator(logger, contracts.ProvisioningName, contracts.Provisioning)
			rootRouter.Group(func(r chi.Router) {
				r.Use(provisioningValidator)
				provisioninghandler.New(provisioningService, logger).Register(r)
			})
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server",
			zap.String("port", cfg.Port),
			zap.String("data_backend", cfg.DataBackend),
			zap.String("session_backend", cfg.SessionBackend),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// mustNewSpecValidator loads an embedded contract and builds the request validator for its routes.
func mustNewSpecValidator(logger *zap.Logger, name string, load func() (*openapi3.T, error)) func(http.Handler) http.Handler {
	spec, err := load()
	if err != nil {
		logger.Fatal("load openapi contract", zap.String("name", name), zap.Error(err))
	}
	logSecuritySchemes(logger, name, spec)
	return platformmiddleware.ContractValidator(spec, logger)
}

func logSecuritySchemes(logger *zap.Logger, name string, spec *openapi3.T) {
	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for scheme := range spec.Components.SecuritySchemes {
		names = append(names, scheme)
	}
	logger.Info("loaded security schemes", zap.String("contract", name), zap.Strings("names", names))
}

// provisioningURL resolves the endpoint the gateway calls. Without PROVISIONING_URL it
// points at this server's own route when mounted, else at onboardingprov.DefaultURL.
func provisioningURL(cfg config, servesEndpoint bool) string {
	if u := strings.TrimSpace(cfg.ProvisioningURL); u != "" {
		return u
	}
	if servesEndpoint {
		return "http://localhost:" + cfg.Port + "/api/provision_org"
	}
	return onboardingprov.DefaultURL
}

func mustNewPublisher(cfg config, logger *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}
	}
	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		ClientID: cfg.KafkaClientID,
	}, logger)
	if err != nil {
		logger.Fatal("init kafka publisher", zap.Error(err))
	}
	return publisher
}

// readinessHandler reports 503 while a configured backing store is unreachable.
func readinessHandler(pool *pgxpool.Pool, redisClient *redis.Client, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness: postgres unavailable", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("readiness: redis unavailable", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
