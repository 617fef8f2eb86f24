package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"product-recommender/backend/internal/ai"
	"product-recommender/backend/internal/catalog"
)

const (
	defaultPort          = "5000"
	defaultAllowedOrigin = "https://ai-product-recommender.netlify.app"
)

// Config is the process configuration resolved from the environment.
type Config struct {
	Port          string
	DataPath      string
	AllowedOrigin string
	AuditDBPath   string
	LogLevel      logrus.Level
	AI            ai.Config
}

// LoadDotEnv reads the given dotenv files (default .env) into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load resolves the configuration from the current environment.
func Load() Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves the configuration using the supplied lookup function.
func FromLookup(lookup func(string) (string, bool)) Config {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}

	return Config{
		Port:          get("PORT", defaultPort),
		DataPath:      get("DATA_PATH", catalog.DefaultPath),
		AllowedOrigin: get("ALLOWED_ORIGIN", defaultAllowedOrigin),
		AuditDBPath:   get("AUDIT_DB_PATH", ""),
		LogLevel:      level,
		AI: ai.Config{
			APIKey:  get("OPENROUTER_API_KEY", ""),
			Model:   get("OPENROUTER_MODEL", ""),
			BaseURL: get("OPENROUTER_BASE_URL", ""),
			Referer: get("OPENROUTER_REFERER", ""),
			Title:   get("OPENROUTER_TITLE", ""),
		},
	}
}
