package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/justsplit/internal/api"
	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/config"
	"github.com/mmynk/justsplit/internal/metrics"
	"github.com/mmynk/justsplit/internal/provider"
	"github.com/mmynk/justsplit/internal/remote"
	"github.com/mmynk/justsplit/internal/storage"
	"github.com/mmynk/justsplit/internal/storage/firestore"
	"github.com/mmynk/justsplit/internal/storage/redisfeed"
	"github.com/mmynk/justsplit/internal/storage/sqlite"
	"github.com/mmynk/justsplit/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// localAccount is the identity every request uses when auth is disabled.
var localAccount = &auth.Account{ID: "local", Email: "local@localhost", DisplayName: "Me"}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "justsplit.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logging.Setup(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		slog.Error("Failed to register metrics", "error", err)
		return 1
	}

	opts := api.Options{
		DefaultCurrency: cfg.DefaultCurrency,
		Gatherer:        reg,
		StaticDir:       cfg.StaticPath,
		Logger:          slog.Default(),
	}

	if cfg.Auth.Disabled {
		slog.Warn("Authentication disabled, serving a single local user without storage")
		opts.LocalAccount = localAccount
		opts.Pool = provider.NewPool(provider.PoolOptions{DefaultCurrency: cfg.DefaultCurrency})
	} else {
		db, err := openStorage(ctx, cfg.Storage)
		if err != nil {
			slog.Error("Failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
			return 1
		}
		defer db.Close()

		if cfg.UsesDevSecret() {
			slog.Warn("Using the development JWT secret, set JWT_SECRET in production")
		}

		adapter := remote.New(db, slog.Default())
		accounts := auth.NewDocumentAccounts(db)
		opts.Pool = provider.NewPool(provider.PoolOptions{
			Remote:          adapter,
			DefaultCurrency: cfg.DefaultCurrency,
		})
		opts.Authenticator = auth.NewPasswordAuthenticator(accounts)
		opts.Accounts = accounts
		opts.JWT = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		opts.Profiles = adapter
	}
	defer opts.Pool.Close()

	srv, err := api.New(opts)
	if err != nil {
		slog.Error("Failed to create API server", "error", err)
		return 1
	}

	// h2c keeps long-lived event streams on one HTTP/2 connection without TLS.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(srv.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end on shutdown so event streams return.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", httpServer.Addr, "url", "http://localhost:"+cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

// openStorage connects the configured document database.
func openStorage(ctx context.Context, cfg config.Storage) (storage.DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		db, err := firestore.New(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.Backend, "project_id", cfg.FirestoreProjectID)
		return db, nil

	case config.BackendSQLite:
		var opts []sqlite.Option
		if cfg.RedisAddr != "" {
			client, err := redisfeed.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return nil, err
			}
			opts = append(opts, sqlite.WithNotifier(redisfeed.New(client, cfg.RedisStream)))
			slog.Info("Change feed enabled", "redis_addr", cfg.RedisAddr)
		}
		db, err := sqlite.New(cfg.DBPath, opts...)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.Backend, "database", cfg.DBPath)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
