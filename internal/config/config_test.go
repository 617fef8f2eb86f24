package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg := FromLookup(lookupFrom(nil))
	if cfg.Port != "5000" || cfg.DataPath != "data/products.json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AllowedOrigin != defaultAllowedOrigin || cfg.AuditDBPath != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LogLevel != logrus.InfoLevel || cfg.AI.APIKey != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFromLookupOverrides(t *testing.T) {
	cfg := FromLookup(lookupFrom(map[string]string{
		"PORT":               "8080",
		"DATA_PATH":          " /srv/catalog.json ",
		"OPENROUTER_API_KEY": "key",
		"OPENROUTER_MODEL":   "some/model",
		"LOG_LEVEL":          "debug",
		"AUDIT_DB_PATH":      "audit.db",
	}))
	if cfg.Port != "8080" || cfg.DataPath != "/srv/catalog.json" || cfg.AuditDBPath != "audit.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.AI.APIKey != "key" || cfg.AI.Model != "some/model" {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.LogLevel != logrus.DebugLevel {
		t.Fatalf("expected debug level got %s", cfg.LogLevel)
	}

	bad := FromLookup(lookupFrom(map[string]string{"LOG_LEVEL": "chatty"}))
	if bad.LogLevel != logrus.InfoLevel {
		t.Fatalf("expected info fallback got %s", bad.LogLevel)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("RECOMMENDER_DOTENV_TEST=loaded\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("RECOMMENDER_DOTENV_TEST") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("RECOMMENDER_DOTENV_TEST"); got != "loaded" {
		t.Fatalf("expected loaded got %q", got)
	}
}
