package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type AppConfig struct {
	HTTPAddr string

	StoreBackend string
	RedisURL     string
	DatabaseURL  string
	GameTTL      time.Duration

	IdentityURL          string
	IdentityServiceToken string
	IdentityStaticTokens string
	IdentityTimeout      time.Duration

	MessagesDir string
	PGNSite     string

	CommandTimeout time.Duration
	WSWriteTimeout time.Duration
	WSReadLimit    int64
	WSOrigins      []string

	Log LogConfig
}

// LogConfig configures obslog.
type LogConfig struct {
	Level   string
	Format  string
	Console bool
	ToFile  bool
	File    string
	Caller  bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		IdentityTimeout: 3 * time.Second,
		PGNSite:         "cheese-live-chess",
		CommandTimeout:  10 * time.Second,
		WSWriteTimeout:  5 * time.Second,
		WSReadLimit:     64 << 10,
		Log: LogConfig{
			Level:   "info",
			Format:  "legacy",
			Console: true,
			ToFile:  false,
			File:    filepath.Join("logs", "chess-hub.log"),
		},
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.StoreBackend = strings.ToLower(env("STORE_BACKEND"))
	if cfg.StoreBackend == "" {
		switch {
		case cfg.RedisURL != "":
			cfg.StoreBackend = BackendRedis
		case cfg.DatabaseURL != "":
			cfg.StoreBackend = BackendPostgres
		default:
			cfg.StoreBackend = BackendMemory
		}
	}
	if n, ok := positiveInt("GAME_TTL_HOURS"); ok {
		cfg.GameTTL = time.Duration(n) * time.Hour
	}

	cfg.IdentityURL = env("IDENTITY_URL")
	cfg.IdentityServiceToken = env("IDENTITY_SERVICE_TOKEN")
	cfg.IdentityStaticTokens = env("IDENTITY_STATIC_TOKENS")
	if n, ok := positiveInt("IDENTITY_TIMEOUT_MS"); ok {
		cfg.IdentityTimeout = time.Duration(n) * time.Millisecond
	}

	cfg.MessagesDir = env("MESSAGES_DIR")
	if v := env("PGN_SITE"); v != "" {
		cfg.PGNSite = v
	}

	if n, ok := positiveInt("COMMAND_TIMEOUT_MS"); ok {
		cfg.CommandTimeout = time.Duration(n) * time.Millisecond
	}
	if n, ok := positiveInt("WS_WRITE_TIMEOUT_MS"); ok {
		cfg.WSWriteTimeout = time.Duration(n) * time.Millisecond
	}
	if n, ok := positiveInt("WS_READ_LIMIT"); ok {
		cfg.WSReadLimit = int64(n)
	}
	cfg.WSOrigins = splitList(env("WS_ORIGINS"))

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.ToLower(env("LOG_FORMAT")); v == "legacy" || v == "json" || v == "console" {
		cfg.Log.Format = v
	}
	cfg.Log.Console = boolOr("LOG_TO_CONSOLE", cfg.Log.Console)
	cfg.Log.ToFile = boolOr("LOG_TO_FILE", cfg.Log.ToFile)
	cfg.Log.Caller = boolOr("LOG_CALLER", cfg.Log.Caller)
	if v := env("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.IdentityURL == "" && c.IdentityStaticTokens == "" && c.DatabaseURL == "" {
		return errors.New("one of IDENTITY_URL, IDENTITY_STATIC_TOKENS or DATABASE_URL is required")
	}
	return nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func positiveInt(k string) (int, bool) {
	v := env(k)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func boolOr(k string, def bool) bool {
	v := env(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
