// Package config provides the environment-backed configuration loader
// used by the orchestrator bootstrap (cmd/ilm-orchestrator/main.go).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration of the daemon.
type Config struct {
	OpenSearchURL      string // OPENSEARCH_URL (default https://localhost:9200)
	OpenSearchUsername string // OPENSEARCH_USERNAME
	OpenSearchPassword string // OPENSEARCH_PASSWORD

	TickInterval             time.Duration // TICK_INTERVAL (default 30s)
	ActionTimeout            time.Duration // ACTION_TIMEOUT (default 1m)
	MaxConcurrentTransitions int           // MAX_CONCURRENT_TRANSITIONS (default 8)
	EngineRateLimit          float64       // ENGINE_RATE_LIMIT calls/sec, 0 = unlimited

	StateDir   string // STATE_DIR (default ./data)
	ListenAddr string // LISTEN_ADDR (default :8090)
	LogLevel   int    // LOG_LEVEL, zap-style: 0 info, 1 debug
}

// LoadFromEnv reads config values from environment variables, applying
// defaults. Malformed values fall back to their defaults; the loader is
// permissive so a typo degrades rather than crashes the daemon.
func LoadFromEnv() *Config {
	cfg := &Config{
		OpenSearchURL:            "https://localhost:9200",
		OpenSearchUsername:       os.Getenv("OPENSEARCH_USERNAME"),
		OpenSearchPassword:       os.Getenv("OPENSEARCH_PASSWORD"),
		TickInterval:             30 * time.Second,
		ActionTimeout:            time.Minute,
		MaxConcurrentTransitions: 8,
		StateDir:                 "./data",
		ListenAddr:               ":8090",
	}

	if v := os.Getenv("OPENSEARCH_URL"); v != "" {
		cfg.OpenSearchURL = v
	}
	if v := os.Getenv("STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TickInterval = d
		}
	}
	if v := os.Getenv("ACTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ActionTimeout = d
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_TRANSITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentTransitions = n
		}
	}
	if v := os.Getenv("ENGINE_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.EngineRateLimit = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LogLevel = n
		}
	}

	return cfg
}
