package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
	"github.com/truthguard/service-core/internal/router"
	"github.com/truthguard/service-core/pkg/database"
	"github.com/truthguard/service-core/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting truthguard service core")

	// record store backend
	var store kvstore.Store
	var sqlDB *sql.DB
	switch backend := os.Getenv("KV_BACKEND"); backend {
	case "", "memory":
		store = kvstore.NewMemStore()
		sugar.Info("using in-memory record store")
	case "postgres":
		cfg := database.ConfigFromEnv()
		sqlDB, err = database.Connect(cfg)
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		defer sqlDB.Close()

		pg := kvstore.NewPGStore(sqlx.NewDb(sqlDB, "postgres"))
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.EnsureTable(initCtx); err != nil {
			cancel()
			sugar.Fatalf("ensure kv table: %v", err)
		}
		cancel()
		store = pg
		sugar.Info("using postgres record store")
	default:
		sugar.Fatalf("unknown KV_BACKEND %q", backend)
	}

	// identity provider
	var provider identity.Provider
	switch name := os.Getenv("IDENTITY_PROVIDER"); name {
	case "", "local":
		ttl := time.Hour
		if v := os.Getenv("IDENTITY_TOKEN_TTL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				ttl = d
			}
		}
		provider = identity.NewLocalProvider([]byte(os.Getenv("IDENTITY_TOKEN_SECRET")), ttl)
		sugar.Info("using embedded identity provider")
	case "remote":
		base := os.Getenv("IDENTITY_URL")
		if base == "" {
			sugar.Fatal("IDENTITY_URL is required for the remote identity provider")
		}
		provider = identity.NewRemoteProvider(base, os.Getenv("IDENTITY_SERVICE_KEY"))
		sugar.Infow("using remote identity provider", "url", base)
	default:
		sugar.Fatalf("unknown IDENTITY_PROVIDER %q", name)
	}

	setupKey := os.Getenv("ADMIN_SETUP_KEY")
	if setupKey == "" {
		sugar.Warn("ADMIN_SETUP_KEY not set; admin bootstrap is disabled")
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// mount http server
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	handler := router.RegisterRoutes(sugar, store, provider, setupKey)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if sqlDB != nil {
		if err := sqlDB.PingContext(doneCtx); err != nil {
			sugar.Warnf("db ping on shutdown failed: %v", err)
		}
	}

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
