package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/internal/cache"
	"github.com/warenvoyage/apiserver/internal/credential"
	"github.com/warenvoyage/apiserver/internal/db"
	"github.com/warenvoyage/apiserver/internal/handlers"
	"github.com/warenvoyage/apiserver/internal/metrics"
	"github.com/warenvoyage/apiserver/internal/mq"
	"github.com/warenvoyage/apiserver/internal/services"
	"github.com/warenvoyage/apiserver/internal/storage"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/internal/token"
)

const loginWindow = time.Minute

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	publisher  *mq.Publisher
	logger     *slog.Logger
}

// New opens every configured backend and wires the identity API on top of them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	srv := &Server{db: dbConn, logger: logger}

	var limiter *cache.LoginLimiter
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			srv.closeBackends()
			return nil, err
		}
		srv.redis = client
		limiter = cache.NewLoginLimiter(client, cfg.Redis.LoginAttemptsPerMinute, loginWindow)
	} else {
		logger.Warn("REDIS_URL not set, login rate limiting disabled")
	}

	backend, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		srv.closeBackends()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	srv.publisher = mq.NewPublisher(backend, cfg.MQ.Channel, logger)

	var docs services.DocumentStore
	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		srv.closeBackends()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if objects != nil {
		docs = storage.NewDocuments(objects)
	} else {
		logger.Warn("STORAGE_BACKEND not set, KYC documents disabled")
	}

	repo := store.NewUserRepository(dbConn)
	hasher := credential.NewHasher(cfg.Auth.BcryptCost)
	tokens := token.NewService(cfg.Auth, logger)

	svc := handlers.Services{
		Auth:    services.NewAuthService(repo, hasher, tokens, srv.publisher, logger),
		Users:   services.NewUserService(repo, hasher, srv.publisher, docs, logger),
		KYC:     services.NewKYCService(repo, docs, srv.publisher, logger),
		Limiter: limiter,
	}
	srv.router = newRouter(svc, svc.Users, cfg.CORS.AllowedOrigins, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func newRouter(svc handlers.Services, health handlers.Pinger, origins []string, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)

	router.Get("/healthz", handlers.Healthz(health))
	router.Get("/health", handlers.Healthz(health))
	router.Handle("/metrics", metrics.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		handlers.APIRouter(r, svc, logger)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

func (s *Server) closeBackends() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("close mq", slog.Any("error", err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
