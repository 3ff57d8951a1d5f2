package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/config"
	"github.com/sagar-developer08/idp/internal/db"
	"github.com/sagar-developer08/idp/internal/db/memory"
	dbRedis "github.com/sagar-developer08/idp/internal/db/redis"
	logpkg "github.com/sagar-developer08/idp/internal/logger"
	"github.com/sagar-developer08/idp/internal/metrics"
	"github.com/sagar-developer08/idp/internal/registry"
	"github.com/sagar-developer08/idp/internal/repository/detailcache"
	"github.com/sagar-developer08/idp/internal/resilience"
	"github.com/sagar-developer08/idp/internal/transport/backend"
	chiTransport "github.com/sagar-developer08/idp/internal/transport/chi"
	detailuc "github.com/sagar-developer08/idp/internal/usecase/detail"
	documentuc "github.com/sagar-developer08/idp/internal/usecase/document"
	healthuc "github.com/sagar-developer08/idp/internal/usecase/health"
	searchuc "github.com/sagar-developer08/idp/internal/usecase/search"
	"github.com/sagar-developer08/idp/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting idp client daemon",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.BaseURL),
		zap.String("search_endpoint", cfg.Search.Endpoint()),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register client metrics explicitly (no init())
	metrics.RegisterClientMetrics()

	breaker := resilience.NewBreaker(resilience.Config{
		Enabled:          cfg.Breaker.Enabled,
		MinRequests:      cfg.Breaker.MinRequests,
		FailureRatio:     cfg.Breaker.FailureRatio,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	}, logger)

	requestTimeout := time.Duration(cfg.Backend.RequestTimeoutSec) * time.Second
	backendClient, err := backend.New(cfg.Backend.BaseURL,
		backend.WithRequestTimeout(requestTimeout),
		backend.WithUploadTimeout(time.Duration(cfg.Backend.UploadTimeoutSec)*time.Second),
		backend.WithBreaker(breaker),
		backend.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Invalid backend configuration", zap.Error(err))
	}
	searchTimeout := time.Duration(cfg.Search.RequestTimeoutSec) * time.Second
	searchClient, err := backend.NewSearch(cfg.Search.Endpoint(),
		backend.WithRequestTimeout(searchTimeout),
		backend.WithBreaker(breaker),
		backend.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Invalid search configuration", zap.Error(err))
	}

	// Detail cache store based on driver
	ctx := context.Background()
	store, err := createStore(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to create detail cache store", zap.Error(err))
	}
	var fetcher detailuc.Fetcher = backendClient
	var cachePinger healthuc.CachePinger
	var serverOpts []chiTransport.ServerOption
	if store != nil {
		defer store.Close()
		cached := detailcache.New(backendClient, store,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.DetailCacheTotal, logger)
		fetcher = cached
		cachePinger = store
		serverOpts = append(serverOpts, chiTransport.WithDetailCache(cached))
		logger.Info("Detail cache ready", zap.String("driver", cfg.Cache.Driver))
	}
	serverOpts = append(serverOpts, chiTransport.WithMaxUploadBytes(int64(cfg.HTTP.MaxUploadMB)<<20))

	// Create use case services
	reg := registry.New(registry.WithMaxIncrement(cfg.Progress.MaxIncrement))
	docSvc := documentuc.New(backendClient, reg, logger)
	detailCtl := detailuc.New(fetcher, detailuc.WithTimeout(requestTimeout), detailuc.WithLogger(logger))
	searchCtl := searchuc.New(searchClient, searchuc.WithTimeout(searchTimeout), searchuc.WithLogger(logger))
	healthSvc := healthuc.New(backendClient, searchClient, cachePinger)

	// Background loops: simulated progress and registry gauges
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go docSvc.Run(runCtx, time.Duration(cfg.Progress.TickIntervalMS)*time.Millisecond)

	updates, unsubscribe := reg.Subscribe()
	defer unsubscribe()
	go func() {
		snap := reg.Snapshot()
		metrics.SetRegistry(snap.StatusCounts(), snap.OverallProgress)
		for snap := range updates {
			metrics.SetRegistry(snap.StatusCounts(), snap.OverallProgress)
		}
	}()

	// Initial listing; an unreachable backend leaves an empty registry until the next refresh
	if err := docSvc.Refresh(ctx); err != nil {
		logger.Warn("Initial document refresh failed", zap.Error(err))
	}

	// Create chi server
	server := chiTransport.NewServer(docSvc, detailCtl, searchCtl, healthSvc, logger, serverOpts...)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Background detail fetches did not finish", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// createStore opens the detail cache store. It returns nil when caching is disabled.
func createStore(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return memory.NewStore(memory.DefaultCleanupInterval), nil
	case config.CacheRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ctx, reqLogger := logpkg.WithRequest(r.Context(), logger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
