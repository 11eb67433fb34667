package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"onehandcoder/db"
	"onehandcoder/internal/account"
	"onehandcoder/internal/api"
	"onehandcoder/internal/auth"
	"onehandcoder/internal/config"
	"onehandcoder/internal/logging"
	"onehandcoder/internal/metrics"
	"onehandcoder/internal/settings"
	"onehandcoder/internal/web"
	"onehandcoder/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logging.Setup("onehandcoder", os.Getenv("LOG_FORMAT"), os.Stdout)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logging.LogError(logger, "backend stopped with error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	logger.Info("starting onehandcoder backend",
		"pid", os.Getpid(),
		"runtime", runtime.GOOS+"/"+runtime.GOARCH,
		"go", runtime.Version(),
	)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger = logging.Setup("onehandcoder", cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Create database manager for concurrent access control
	dbManager := db.NewDBManager()
	defer dbManager.Stop()

	hasher := auth.NewBcryptHasher()
	tokens := auth.NewTokenService(cfg.JwtKey, cfg.TokenTTL)
	m := metrics.New()
	errorWriter := &api.Writer{Logger: logger, ExposeDetails: cfg.ExposeErrorDetails}

	accountService := account.NewAccountService(repo, dbManager, hasher, tokens, m)
	settingsService := settings.NewSettingsService(repo, dbManager, hasher)

	server := &web.Server{
		Account:     account.NewAccountHandlers(accountService, errorWriter),
		Settings:    settings.NewSettingsHandlers(settingsService, errorWriter),
		Auth:        middleware.NewMiddleware(tokens, errorWriter),
		Metrics:     m,
		Store:       repo,
		Errors:      errorWriter,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "database", string(cfg.DatabaseType))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down the server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openUserRepository connects to the configured store and prepares it.
func openUserRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.UserRepository, error) {
	switch cfg.DatabaseType {
	case config.SQLite:
		logger.Info("using SQLite database", "path", cfg.SQLitePath)
		sqliteDB, err := db.ConnectToSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.InitializeSchema(sqliteDB); err != nil {
			sqliteDB.Close()
			return nil, err
		}
		return db.NewRepositoryFactory(sqliteDB, nil, cfg.DatabaseName).NewUserRepository(), nil
	default:
		logger.Info("using MongoDB database", "database", cfg.DatabaseName)
		client, err := db.ConnectToMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureUserIndexes(ctx, client, cfg.DatabaseName); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return db.NewRepositoryFactory(nil, client, cfg.DatabaseName).NewUserRepository(), nil
	}
}
