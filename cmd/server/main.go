package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sheetpos/backend/internal/config"
	"sheetpos/backend/internal/httpapi"
	"sheetpos/backend/internal/logger"
	"sheetpos/backend/internal/mirror"
	"sheetpos/backend/internal/service"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/store/memory"
	pgstore "sheetpos/backend/internal/store/postgres"
	sqlitestore "sheetpos/backend/internal/store/sqlite"
)

// mirroredKeys are the collections another device needs to resume a sale.
var mirroredKeys = []string{store.KeyCart, store.KeySales, store.KeyCustomers}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	kv, closeKV, err := openKV(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeKV)

	remote := mirror.Mirror(mirror.Noop{})
	if cfg.RedisAddr != "" {
		redisMirror := mirror.NewRedisMirror(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionID)
		if err := redisMirror.Ping(ctx); err != nil {
			log.Warn("redis unavailable, mirroring disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			remote = redisMirror
			closers = append(closers, redisMirror.Close)
			log.Info("mirror: redis", zap.String("session", cfg.SessionID))
		}
	}

	if _, err := mirror.Restore(ctx, kv, remote, log, mirroredKeys...); err != nil {
		log.Warn("mirror restore skipped", zap.Error(err))
	}

	writer := store.NewWriter(kv, log,
		store.WithTimeout(time.Duration(cfg.WriteTimeoutSeconds)*time.Second),
		store.WithMirror(remote, mirroredKeys...),
	)

	svcs := service.New(service.Deps{Writer: writer, Logger: log}, service.Options{
		LowStockDefault: cfg.LowStockDefault,
		ReceiptLocale:   cfg.ReceiptLocale,
	})
	if err := svcs.Load(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if err := svcs.Users.SeedDefaults(ctx, cfg.SeedAdminPassword, cfg.SeedCashierPassword); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if cfg.SeedDemoCatalog {
		if err := svcs.Catalog.SeedDemo(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svcs.Users)
	api := httpapi.New(svcs, writer, auth, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	if err := writer.Flush(shutdownCtx); err != nil {
		log.Error("pending writes not flushed", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openKV(ctx context.Context, cfg config.Config, log *zap.Logger) (store.KV, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Warn("storage: in-memory, data is lost on restart")
		kv := memory.New()
		return kv, kv.Close, nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("storage driver postgres requires SHEETPOS_DATABASE_URL")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		log.Info("storage: postgres")
		return pg, pg.Close, nil
	case config.DriverSQLite, "":
		db, err := sqlitestore.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite unavailable: %w", err)
		}
		log.Info("storage: sqlite", zap.String("path", cfg.SQLitePath))
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("SHEETPOS_AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword != "" && len(cfg.SeedAdminPassword) < 8 {
		return fmt.Errorf("SHEETPOS_SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}
