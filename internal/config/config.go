package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseType string

const (
	MongoDB DatabaseType = "mongodb"
	SQLite  DatabaseType = "sqlite"
)

const (
	DefaultDatabaseName = "onehandcoder"
	DefaultPort         = "5000"
	DefaultTokenTTL     = 6 * time.Hour
	// MaxStorageMB is the per-account storage quota reported by settings.
	MaxStorageMB = 500
)

type Config struct {
	JwtKey       []byte
	TokenTTL     time.Duration
	DatabaseType DatabaseType
	// MongoDB config
	MongoURI     string
	DatabaseName string
	// SQLite config
	SQLitePath string
	// HTTP
	Port               string
	FrontendURL        string
	LogFormat          string
	ExposeErrorDetails bool
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Missing required values are errors.
func FromEnv(getenv func(string) string) (*Config, error) {
	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	dbType := getenv("DATABASE_TYPE")
	if dbType == "" {
		dbType = string(MongoDB)
	}

	cfg := &Config{
		JwtKey:       []byte(jwtSecret),
		TokenTTL:     DefaultTokenTTL,
		DatabaseType: DatabaseType(dbType),
		DatabaseName: valueOr(getenv("DATABASE_NAME"), DefaultDatabaseName),
		Port:         valueOr(getenv("PORT"), DefaultPort),
		FrontendURL:  valueOr(getenv("FRONTEND_URL"), "*"),
		LogFormat:    valueOr(getenv("LOG_FORMAT"), "json"),
	}

	switch cfg.DatabaseType {
	case MongoDB:
		cfg.MongoURI = getenv("MONGO_URI")
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is not set")
		}
	case SQLite:
		cfg.SQLitePath = getenv("SQLITE_PATH")
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is not set")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE: %s", dbType)
	}

	if raw := getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q", raw)
		}
		cfg.TokenTTL = ttl
	}

	if raw := getenv("EXPOSE_ERROR_DETAILS"); raw != "" {
		expose, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid EXPOSE_ERROR_DETAILS %q", raw)
		}
		cfg.ExposeErrorDetails = expose
	}

	return cfg, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
