package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookrecords/db"
	"bookrecords/internal/book"
	"bookrecords/internal/config"
	"bookrecords/internal/httpx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

func main() {
	config.LoadEnvFiles()
	cfg := config.Load()
	slog.SetDefault(cfg.NewLogger())

	if err := run(cfg); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if cfg.AutoMigrate {
		sqlDB := stdlib.OpenDBFromPool(dbPool)
		err := db.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	bookRepository := book.NewPostgresRepo(dbPool, cfg.QueryTimeout)
	bookHandler := book.NewHTTPHandler(book.NewService(bookRepository))

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(cfg, bookHandler, bookRepository.Ping, rateLimiter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		slog.Info("server stopped")
		return nil
	}
}

func newRouter(cfg config.Config, bookHandler *book.HTTPHandler, ping func(context.Context) error, rateLimiter *httpx.RateLimitMiddleware) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	bookHandler.Register(router)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		slog.Error("cannot ping database", "dsn", redactDSN(dsn), "err", err)
		return nil, err
	}
	slog.Info("database connection OK")
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
