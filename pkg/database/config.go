package database

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the storage engine behind the repository ports.
type Backend string

// Supported backends.
const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// LocalDBPath is the fixed development database used when LOCAL is truthy.
const LocalDBPath = "socialsim-dev.db"

// Config holds database configuration.
type Config struct {
	Backend     Backend
	DatabaseURL string // postgres DSN (SIM_DATABASE_URL)
	Path        string // sqlite file path (SIM_DB_PATH)

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Local dev mode: fixed sqlite path, seed fixtures applied once.
	Local        bool
	LocalResetDB bool
}

// LoadConfigFromEnv loads database configuration from environment variables.
// SIM_DATABASE_URL selects PostgreSQL, SIM_DB_PATH selects SQLite; LOCAL
// forces the fixed dev SQLite path and enables the seed loader.
func LoadConfigFromEnv() (Config, error) {
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("SIM_DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("SIM_DB_MAX_IDLE_CONNS", "5"))

	cfg := Config{
		DatabaseURL:     os.Getenv("SIM_DATABASE_URL"),
		Path:            os.Getenv("SIM_DB_PATH"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		Local:           truthy(os.Getenv("LOCAL")),
		LocalResetDB:    truthy(os.Getenv("LOCAL_RESET_DB")),
	}

	if cfg.Local {
		cfg.Path = LocalDBPath
		cfg.DatabaseURL = ""
	}

	switch {
	case cfg.DatabaseURL != "":
		cfg.Backend = BackendPostgres
	case cfg.Path != "":
		cfg.Backend = BackendSQLite
	default:
		return Config{}, fmt.Errorf("either SIM_DATABASE_URL or SIM_DB_PATH must be set")
	}

	return cfg, nil
}

// truthy interprets common boolean environment values.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
