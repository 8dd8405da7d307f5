package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "STORE_BACKEND", "REDIS_URL", "DATABASE_URL", "GAME_TTL_HOURS",
		"IDENTITY_URL", "IDENTITY_SERVICE_TOKEN", "IDENTITY_STATIC_TOKENS", "IDENTITY_TIMEOUT_MS",
		"MESSAGES_DIR", "PGN_SITE", "COMMAND_TIMEOUT_MS", "WS_WRITE_TIMEOUT_MS", "WS_READ_LIMIT",
		"WS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE", "LOG_CALLER",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDENTITY_STATIC_TOKENS", "t1:alice")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.StoreBackend != BackendMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CommandTimeout != 10*time.Second || cfg.WSReadLimit != 64<<10 {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if cfg.Log.Format != "legacy" || !cfg.Log.Console || cfg.Log.ToFile {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("IDENTITY_URL", "http://identity:9000")
	t.Setenv("GAME_TTL_HOURS", "48")
	t.Setenv("COMMAND_TIMEOUT_MS", "2500")
	t.Setenv("WS_ORIGINS", " example.com, *.example.org ,")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_TO_FILE", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != BackendRedis {
		t.Fatalf("backend should follow REDIS_URL, got %q", cfg.StoreBackend)
	}
	if cfg.GameTTL != 48*time.Hour || cfg.CommandTimeout != 2500*time.Millisecond {
		t.Fatalf("durations not parsed: %+v", cfg)
	}
	if len(cfg.WSOrigins) != 2 || cfg.WSOrigins[1] != "*.example.org" {
		t.Fatalf("origins = %v", cfg.WSOrigins)
	}
	if cfg.Log.Format != "json" || !cfg.Log.ToFile {
		t.Fatalf("log config = %+v", cfg.Log)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"IDENTITY_STATIC_TOKENS": "a:b", "STORE_BACKEND": "redis"}, "REDIS_URL"},
		{map[string]string{"IDENTITY_STATIC_TOKENS": "a:b", "STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{map[string]string{"IDENTITY_STATIC_TOKENS": "a:b", "STORE_BACKEND": "etcd"}, "unknown STORE_BACKEND"},
		{map[string]string{}, "IDENTITY_URL"},
	}
	for _, tc := range cases {
		clearEnv(t)
		for k, v := range tc.env {
			t.Setenv(k, v)
		}
		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("env %v: expected error containing %q, got %v", tc.env, tc.want, err)
		}
	}
}
