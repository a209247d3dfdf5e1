package server

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-token-auth"
	"github.com/goliatone/go-token-auth/activitymap"
	"github.com/goliatone/go-token-auth/config"
	"github.com/goliatone/go-token-auth/repository"
)

// Server owns the fiber app and every backing connection.
type Server struct {
	cfg         *config.BaseConfig
	app         *fiber.App
	srv         router.Server[*fiber.App]
	db          *bun.DB
	repos       *repository.Manager
	redis       redis.UniversalClient
	revocations auth.RevocationStore
	auther      *auth.Auther
	routing     *auth.RouteAuthenticator
	metrics     *auth.Metrics
	registry    *prometheus.Registry
	logger      *auth.LogrusLogger
}

// New connects to the configured stores, applies migrations when enabled
// and mounts the routes.
func New(ctx context.Context, cfg *config.BaseConfig, base *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required", errors.CategoryInternal)
	}

	s := &Server{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		logger:   auth.NewLogrusLogger(base, "server"),
	}

	client, err := repository.Open(ctx, cfg.Persistence)
	if err != nil {
		return nil, err
	}
	s.db = client.DB()
	s.repos = repository.NewManager(s.db)
	if err := s.repos.Validate(); err != nil {
		s.close()
		return nil, err
	}

	if cfg.Persistence.AutoMigrate {
		report, err := repository.Migrate(ctx, client)
		if err != nil {
			s.close()
			return nil, err
		}
		if report != "" {
			s.logger.Info("migrations applied", "report", report)
		}
	}

	if err := s.setupRevocations(ctx); err != nil {
		s.close()
		return nil, err
	}

	if err := s.setupAuth(); err != nil {
		s.close()
		return nil, err
	}

	s.setupApp()

	return s, nil
}

func (s *Server) setupRevocations(ctx context.Context) error {
	var store auth.RevocationStore

	switch s.cfg.Revocation.Backend {
	case config.RevocationBackendRedis:
		s.redis = NewRedisClient(s.cfg.Redis)
		revocations := repository.NewRedisRevocations(s.redis, s.cfg.Revocation.RedisPrefix)
		if err := revocations.Ping(ctx); err != nil {
			return err
		}
		store = revocations
	case config.RevocationBackendMemory:
		s.logger.Warn("revocations are kept in memory and lost on restart")
		store = auth.NewMemoryRevocationStore()
	default:
		store = s.repos.Revocations()
	}

	if s.cfg.Revocation.CacheSize > 0 {
		cached, err := auth.NewCachedRevocationStore(store, s.cfg.Revocation.CacheSize)
		if err != nil {
			return err
		}
		store = cached
	}

	s.revocations = store
	return nil
}

func (s *Server) setupAuth() error {
	tokens, err := auth.NewTokenServiceFromConfig(s.cfg.Auth, auth.WithTokenLogger(s.logger.Named("tokens")))
	if err != nil {
		return err
	}

	s.metrics = auth.NewMetrics(s.registry)
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	directory := s.repos.Accounts()
	authLogger := s.logger.Named("auth")

	s.auther = auth.NewAuthenticator(directory, tokens, s.revocations, auth.NewBcryptHasher(s.cfg.Auth.BcryptCost)).
		WithLogger(authLogger).
		WithAuthScheme(s.cfg.Auth.GetAuthScheme()).
		WithActivitySink(auth.ActivitySinks{
			s.metrics,
			auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
				record := activitymap.Normalize(event)
				authLogger.Info("activity",
					"verb", record.Verb,
					"actor", record.ActorID,
					"object", record.ObjectType+":"+record.ObjectID,
					"channel", record.Channel,
					"metadata", record.Metadata,
				)
				return nil
			}),
		})

	resolver := auth.NewIdentityResolver(directory, authLogger)

	s.routing = auth.NewHTTPAuthenticator(s.auther, resolver, s.revocations, s.cfg.Auth,
		auth.WithPublicPaths(s.cfg.Server.PublicPaths...),
		auth.WithRouteLogger(s.logger.Named("middleware")),
		auth.WithOutcomeListener(s.metrics.ObserveOutcome),
	)

	return nil
}

func (s *Server) setupApp() {
	s.app = fiber.New(fiber.Config{
		AppName:               s.cfg.Server.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          auth.NewErrorHandler(s.logger.Named("http")),
	})

	s.app.Use(recover.New())
	s.app.Use(s.routing.Middleware())

	s.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return s.app
	})

	s.routes()
}

// NewRedisClient returns a client for the redis section
func NewRedisClient(cfg config.Redis) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Auther() *auth.Auther {
	return s.auther
}

func (s *Server) Revocations() auth.RevocationStore {
	return s.revocations
}

func (s *Server) DB() *bun.DB {
	return s.db
}

func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Listen blocks serving on the configured address
func (s *Server) Listen() error {
	s.logger.Info("listening", "addr", s.cfg.Server.Addr)
	return s.app.Listen(s.cfg.Server.Addr)
}

// Shutdown stops accepting requests and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.app != nil {
		err = s.app.ShutdownWithContext(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close database", "error", err)
		}
	}
}

func (s *Server) check(ctx context.Context, timeout time.Duration) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	if err := s.repos.Ping(ctx); err != nil {
		checks["database"] = err.Error()
	}

	if s.redis != nil {
		checks["redis"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}

	return checks
}
