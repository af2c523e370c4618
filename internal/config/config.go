// Package config loads server settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Config holds every server setting.
type Config struct {
	Port            string
	LogLevel        string
	DefaultCurrency string
	// StaticPath, when set, is a directory of frontend files served for
	// every route the API does not handle.
	StaticPath string
	Storage    Storage
	Auth       Auth
}

// Storage selects and configures the document database.
type Storage struct {
	Backend            string
	DBPath             string
	FirestoreProjectID string
	// RedisAddr enables cross-process change notifications for the SQLite
	// backend when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
}

// Auth configures sign-in.
type Auth struct {
	// Disabled runs the server as a single local user with no remote
	// subscriptions.
	Disabled  bool
	JWTSecret string
	TokenTTL  time.Duration
}

const (
	defaultPort     = "8080"
	defaultDBPath   = "./data/justsplit.db"
	defaultTokenTTL = 24 * time.Hour
	devJWTSecret    = "dev-secret-change-me"
)

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:            defaultPort,
		LogLevel:        "info",
		DefaultCurrency: "USD",
		Storage: Storage{
			Backend: BackendSQLite,
			DBPath:  defaultDBPath,
		},
		Auth: Auth{
			JWTSecret: devJWTSecret,
			TokenTTL:  defaultTokenTTL,
		},
	}
}

type rawConfig struct {
	Port            string `toml:"port"`
	LogLevel        string `toml:"log_level"`
	DefaultCurrency string `toml:"default_currency"`
	StaticPath      string `toml:"static_path"`
	Storage         struct {
		Backend            string `toml:"backend"`
		DBPath             string `toml:"db_path"`
		FirestoreProjectID string `toml:"firestore_project_id"`
		RedisAddr          string `toml:"redis_addr"`
		RedisPassword      string `toml:"redis_password"`
		RedisDB            int    `toml:"redis_db"`
		RedisStream        string `toml:"redis_stream"`
	} `toml:"storage"`
	Auth struct {
		Disabled  bool   `toml:"disabled"`
		JWTSecret string `toml:"jwt_secret"`
		TokenTTL  string `toml:"token_ttl"`
	} `toml:"auth"`
}

// Load reads the TOML file at path, if any, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := apply(&cfg, data); err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func apply(cfg *Config, data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	setString(&cfg.Port, raw.Port)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.DefaultCurrency, raw.DefaultCurrency)
	setString(&cfg.StaticPath, raw.StaticPath)
	setString(&cfg.Storage.Backend, raw.Storage.Backend)
	setString(&cfg.Storage.DBPath, raw.Storage.DBPath)
	setString(&cfg.Storage.FirestoreProjectID, raw.Storage.FirestoreProjectID)
	setString(&cfg.Storage.RedisAddr, raw.Storage.RedisAddr)
	setString(&cfg.Storage.RedisPassword, raw.Storage.RedisPassword)
	setString(&cfg.Storage.RedisStream, raw.Storage.RedisStream)
	cfg.Storage.RedisDB = raw.Storage.RedisDB
	cfg.Auth.Disabled = raw.Auth.Disabled
	setString(&cfg.Auth.JWTSecret, raw.Auth.JWTSecret)

	if ttl := strings.TrimSpace(raw.Auth.TokenTTL); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("failed to parse auth.token_ttl: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StaticPath = getEnv("STATIC_PATH", cfg.StaticPath)
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DBPath = getEnv("DB_PATH", cfg.Storage.DBPath)
	cfg.Storage.FirestoreProjectID = getEnv("FIRESTORE_PROJECT_ID", cfg.Storage.FirestoreProjectID)
	cfg.Storage.RedisAddr = getEnv("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)

	if v := os.Getenv("AUTH_DISABLED"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("failed to parse AUTH_DISABLED: %w", err)
		}
		cfg.Auth.Disabled = disabled
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("storage.db_path is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.Storage.FirestoreProjectID == "" {
			return errors.New("storage.firestore_project_id is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}

// UsesDevSecret reports whether the built-in development JWT secret is in
// use.
func (c Config) UsesDevSecret() bool {
	return !c.Auth.Disabled && c.Auth.JWTSecret == devJWTSecret
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
