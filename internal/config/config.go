// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/covlens/internal/logging"
)

// DefaultListenAddr is the address served when COVLENS_LISTEN_ADDR is unset.
const DefaultListenAddr = "127.0.0.1:8080"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL         string
	APIToken       string
	GraphQLMethod  string
	RequestTimeout time.Duration
	ListenAddr     string
	DBPath         string
	CacheSize      int
	StaleTime      time.Duration
	CacheTTL       time.Duration
	WarmInterval   time.Duration
	LogLevel       slog.Level
	LogFile        string
}

// HasToken reports whether upstream requests are authenticated.
func (c *Config) HasToken() bool {
	return c.APIToken != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
//
// Variables and defaults:
//
//	COVLENS_API_URL          https://api.codecov.io
//	COVLENS_API_TOKEN        (unset: anonymous requests)
//	COVLENS_GRAPHQL_METHOD   POST (GET makes responses HTTP-cacheable)
//	COVLENS_REQUEST_TIMEOUT  30s
//	COVLENS_LISTEN_ADDR      127.0.0.1:8080
//	COVLENS_DB_PATH          covlens.db
//	COVLENS_CACHE_SIZE       512
//	COVLENS_STALE_TIME       30s
//	COVLENS_CACHE_TTL        5m
//	COVLENS_WARM_INTERVAL    2m
//	COVLENS_LOG_LEVEL        info
//	COVLENS_LOG_FILE         (unset: stderr only)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:        envOr("COVLENS_API_URL", "https://api.codecov.io"),
		APIToken:      os.Getenv("COVLENS_API_TOKEN"),
		GraphQLMethod: strings.ToUpper(envOr("COVLENS_GRAPHQL_METHOD", "POST")),
		ListenAddr:    envOr("COVLENS_LISTEN_ADDR", DefaultListenAddr),
		DBPath:        envOr("COVLENS_DB_PATH", "covlens.db"),
		LogFile:       os.Getenv("COVLENS_LOG_FILE"),
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("COVLENS_API_URL must be an absolute URL, got %q", cfg.APIURL)
	}

	if cfg.GraphQLMethod != "POST" && cfg.GraphQLMethod != "GET" {
		return nil, fmt.Errorf("COVLENS_GRAPHQL_METHOD must be POST or GET, got %q", cfg.GraphQLMethod)
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"COVLENS_REQUEST_TIMEOUT", 30 * time.Second, &cfg.RequestTimeout},
		{"COVLENS_STALE_TIME", 30 * time.Second, &cfg.StaleTime},
		{"COVLENS_CACHE_TTL", 5 * time.Minute, &cfg.CacheTTL},
		{"COVLENS_WARM_INTERVAL", 2 * time.Minute, &cfg.WarmInterval},
	}
	for _, d := range durations {
		*d.dest = d.def
		if v, ok := os.LookupEnv(d.key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%s has invalid duration %q: %w", d.key, v, err)
			}
			if parsed <= 0 {
				return nil, fmt.Errorf("%s must be positive, got %s", d.key, v)
			}
			*d.dest = parsed
		}
	}

	if cfg.CacheTTL < cfg.StaleTime {
		return nil, fmt.Errorf("COVLENS_CACHE_TTL (%s) must not be shorter than COVLENS_STALE_TIME (%s)", cfg.CacheTTL, cfg.StaleTime)
	}

	cfg.CacheSize = 512
	if v, ok := os.LookupEnv("COVLENS_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("COVLENS_CACHE_SIZE must be a positive integer, got %q", v)
		}
		cfg.CacheSize = n
	}

	level, err := logging.ParseLevel(os.Getenv("COVLENS_LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("COVLENS_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
