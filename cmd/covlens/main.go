package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	graphqladapter "github.com/ericfisherdev/covlens/internal/adapter/driven/graphql"
	"github.com/ericfisherdev/covlens/internal/adapter/driven/memcache"
	sqliteadapter "github.com/ericfisherdev/covlens/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/covlens/internal/adapter/driving/http"
	"github.com/ericfisherdev/covlens/internal/application"
	"github.com/ericfisherdev/covlens/internal/config"
	"github.com/ericfisherdev/covlens/internal/logging"
	"github.com/ericfisherdev/covlens/internal/query"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Install the process logger.
	logger, logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"api_url", cfg.APIURL,
		"graphql_method", cfg.GraphQLMethod,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"stale_time", cfg.StaleTime,
		"warm_interval", cfg.WarmInterval,
		"authenticated", cfg.HasToken(),
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 5. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 6. Wire driven adapters.
	var opts []graphqladapter.Option
	opts = append(opts, graphqladapter.WithMethod(cfg.GraphQLMethod))
	if cfg.HasToken() {
		opts = append(opts, graphqladapter.WithToken(cfg.APIToken))
	} else {
		slog.Info("no api token configured, only public repositories are readable")
	}
	transport, err := graphqladapter.NewClient(cfg.APIURL, cfg.RequestTimeout, opts...)
	if err != nil {
		return err
	}

	cache := memcache.New(cfg.CacheSize, cfg.StaleTime, cfg.CacheTTL)
	watchStore := sqliteadapter.NewWatchRepo(db)

	// 7. Create services and start the warm loop.
	queries := application.NewQueryService(query.NewBuilder(transport), cache)
	warmer := application.NewWarmService(watchStore, queries, cfg.WarmInterval)
	go warmer.Start(ctx)

	// 8. Create the HTTP handler.
	handler := httphandler.NewServeMux(httphandler.NewHandler(queries, warmer, logger), logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("covlens started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
