package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/varus-ledger/internal/adapter"
	"github.com/feral-file/varus-ledger/internal/api/middleware"
	"github.com/feral-file/varus-ledger/internal/api/server"
	"github.com/feral-file/varus-ledger/internal/config"
	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/ledger"
	"github.com/feral-file/varus-ledger/internal/logger"
	"github.com/feral-file/varus-ledger/internal/messaging"
	"github.com/feral-file/varus-ledger/internal/providers/jetstream"
	"github.com/feral-file/varus-ledger/internal/registry"
	"github.com/feral-file/varus-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Varus Ledger API")

	// Connect to database
	db, err := connectDatabase(ctx, cfg.Database.DSN())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and run migrations
	dataStore := store.NewPGStore(db)
	if err := dataStore.Migrate(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}

	// Create event publisher
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(jetstream.Config{
			URL:            cfg.NATS.URL,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		publisher = messaging.NoopPublisher{}
		logger.WarnCtx(ctx, "NATS URL not configured, ledger events will not be published")
	}
	dispatcher := messaging.NewDispatcher(publisher, messaging.DispatcherConfig{})

	// Build the ledger engine from the persisted snapshot
	engine, err := buildEngine(ctx, cfg, dataStore, dispatcher)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to build ledger engine", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Ledger engine restored",
		zap.Uint64("total_supply", engine.TotalSupply()),
		zap.Int("allowlist_size", len(engine.Allowlist())),
	)

	// Seed the allow list
	if cfg.Ledger.AllowlistSeedPath != "" {
		seed, err := registry.LoadSeed(cfg.Ledger.AllowlistSeedPath)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to load allowlist seed",
				zap.Error(err),
				zap.String("path", cfg.Ledger.AllowlistSeedPath))
		}
		for _, account := range seed.Accounts() {
			if err := engine.Register(ctx, account); err != nil {
				logger.FatalCtx(ctx, "Failed to register seed account",
					zap.Error(err),
					zap.String("account", string(account)))
			}
		}
		logger.InfoCtx(ctx, "Allowlist seed applied",
			zap.String("path", cfg.Ledger.AllowlistSeedPath),
			zap.Int("accounts", len(seed.Accounts())))
	}

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, engine)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Drain pending event publishes before exit
	dispatcher.Stop()

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// connectDatabase opens the database with exponential backoff so the server
// survives a database that comes up after it does
func connectDatabase(ctx context.Context, dsn string) (*gorm.DB, error) {
	var db *gorm.DB

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		return err
	}

	notifyOnError := func(err error, duration time.Duration) {
		logger.WarnCtx(ctx, "Database connection failed, retrying",
			zap.Error(err),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		return nil, err
	}

	return db, nil
}

// buildEngine restores the ledger engine from the persisted snapshot and
// wires persistence and event emission
func buildEngine(ctx context.Context, cfg *config.APIConfig, dataStore store.Store, emitter ledger.Emitter) (*ledger.Engine, error) {
	snap, err := dataStore.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	collection := domain.DefaultCollectionMetadata()
	if cfg.Ledger.CollectionName != "" {
		collection.Name = cfg.Ledger.CollectionName
	}
	if cfg.Ledger.CollectionSymbol != "" {
		collection.Symbol = cfg.Ledger.CollectionSymbol
	}
	if cfg.Ledger.BaseURI != "" {
		collection.BaseURI = &cfg.Ledger.BaseURI
	}

	var policy ledger.MutationPolicy
	if cfg.Ledger.DisableMutation {
		policy = func(domain.AccountID, bool) bool { return false }
	}

	engine := ledger.New(ledger.Options{
		Collection: &collection,
		Sink:       domain.AccountID(cfg.Ledger.SinkAccount),
		Policy:     policy,
		Persist:    dataStore.ApplyChangeset,
		Emitter:    emitter,
	})

	if err := engine.Restore(snap); err != nil {
		return nil, fmt.Errorf("failed to restore ledger state: %w", err)
	}

	return engine, nil
}
