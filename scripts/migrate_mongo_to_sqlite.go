package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"onehandcoder/db"
	"onehandcoder/internal/config"
	"onehandcoder/internal/logging"
)

func main() {
	logger := logging.Setup("onehandcoder-migrate", "text", os.Stdout)

	if err := migrate(context.Background(), logger); err != nil {
		logging.LogError(logger, "migration failed", err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, logger *slog.Logger) error {
	// Load configuration; MONGO_URI is required for the default database type
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Set SQLite path
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return err
		}
		sqlitePath = filepath.Join(dataDir, cfg.DatabaseName+".db")
	}

	logger.Info("connecting to MongoDB")
	mongoClient, err := db.ConnectToMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	source := db.NewMongoUserRepository(mongoClient, cfg.DatabaseName, db.UsersCollection)
	defer source.Close()

	logger.Info("connecting to SQLite", "path", sqlitePath)
	sqliteDB, err := db.ConnectToSQLite(ctx, sqlitePath)
	if err != nil {
		return err
	}
	if err := db.InitializeSchema(sqliteDB); err != nil {
		sqliteDB.Close()
		return err
	}
	target := db.NewSQLiteUserRepository(sqliteDB)
	defer target.Close()

	users, err := source.FindAll(ctx)
	if err != nil {
		return err
	}

	migrated, skipped := 0, 0
	for _, user := range users {
		// Ids are preserved so issued tokens keep resolving
		if _, err := target.Create(ctx, user); err != nil {
			if errors.Is(err, db.ErrDuplicateUsername) {
				logger.Warn("skipping user already present", "id", user.ID, "username", user.Username)
				skipped++
				continue
			}
			return err
		}
		migrated++
	}

	logger.Info("migration completed", "migrated", migrated, "skipped", skipped, "total", len(users))
	return nil
}
