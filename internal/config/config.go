// Package config loads guildchat's runtime configuration from environment
// variables, with an optional .env file for local development. Shaped after
// ashureev-shsh-labs/internal/config (category structs, getEnv* helpers with
// defaults, a Validate pass) and loaded via joho/godotenv the way
// EternisAI-enchanted-proxy and algrv-server do at process start.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-tunable setting of the server.
type Config struct {
	ListenAddr          string        // TCP address the listener binds (spec.md §6 default 127.0.0.1:8087)
	MongoURI            string        // document-store connection string
	MongoConnectTimeout time.Duration // timeout for the initial Mongo connection check
	SessionTTL          time.Duration // session expiry window (spec.md §4.4 default 600s)
	Environment         string        // "production" or "" (development)
}

// Load reads a .env file if present (ignored if absent — this is a
// convenience for local development, not a requirement) and then resolves
// Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:          getEnv("GUILDCHAT_LISTEN_ADDR", "127.0.0.1:8087"),
		MongoURI:            getEnv("GUILDCHAT_MONGO_URI", "mongodb://localhost:27017"),
		MongoConnectTimeout: getEnvDuration("GUILDCHAT_MONGO_CONNECT_TIMEOUT", 5*time.Second),
		SessionTTL:          getEnvDuration("GUILDCHAT_SESSION_TTL", 600*time.Second),
		Environment:         os.Getenv("ENVIRONMENT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks that required fields are non-empty and sane.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("GUILDCHAT_LISTEN_ADDR cannot be empty")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("GUILDCHAT_MONGO_URI cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("GUILDCHAT_SESSION_TTL must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
