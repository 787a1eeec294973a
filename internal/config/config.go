package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RosterSourceFile     = "file"
	RosterSourceDatabase = "database"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline, must exceed ProxyTimeout

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Roster
	RosterSource   string        // "file" | "database"
	RosterFile     string        // path to clients.yaml
	DatabaseDriver string        // "sqlite" | "postgres"
	DatabaseDSN    string        // required when RosterSource is "database"
	ReloadInterval time.Duration // interval to reload the roster (default: 1h)

	// Probes
	ProbeTimeout time.Duration // direct plugin GET timeout (default: 3s)
	ProxyTimeout time.Duration // check-status upstream timeout (default: 15s)

	// Loops
	DetailInterval       time.Duration // per-site detail cadence (default: 1s)
	DetailCapacity       int           // detail history bins (default: 60)
	CompactInterval      time.Duration // list card cadence (default: 30s)
	CompactCapacity      int           // list card bins (default: 20)
	AggregateInterval    time.Duration // rollup cadence (default: 60s)
	AggregateConcurrency int           // max probes in flight per rollup tick, 0 = unbounded

	// Views
	ViewIdleTTL      time.Duration // unmount views not read for this long
	ViewReapInterval time.Duration // how often idle views are collected

	ReportCacheTTL time.Duration // Redis cache TTL for telemetry reports

	CheckRateBurst  int // check-status burst per IP
	CheckRatePerMin int // check-status refill per IP per minute

	// Redis (optional, empty address disables it)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SITEWATCH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SITEWATCH_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("SITEWATCH_REQUEST_TIMEOUT", 20*time.Second),

		// Logging
		LogLevel:  getenv("SITEWATCH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SITEWATCH_PRETTY_LOG", true),

		// Roster
		RosterSource:   getenv("SITEWATCH_ROSTER_SOURCE", RosterSourceFile),
		RosterFile:     getenv("SITEWATCH_ROSTER_FILE", "/app/clients.yaml"),
		DatabaseDriver: getenv("SITEWATCH_DATABASE_DRIVER", "sqlite"),
		ReloadInterval: mustDuration("SITEWATCH_RELOAD_INTERVAL", time.Hour),

		// Probes
		ProbeTimeout: mustDuration("SITEWATCH_PROBE_TIMEOUT", 3*time.Second),
		ProxyTimeout: mustDuration("SITEWATCH_PROXY_TIMEOUT", 15*time.Second),

		// Loops
		DetailInterval:       mustDuration("SITEWATCH_DETAIL_INTERVAL", time.Second),
		DetailCapacity:       getenvInt("SITEWATCH_DETAIL_CAPACITY", 60),
		CompactInterval:      mustDuration("SITEWATCH_COMPACT_INTERVAL", 30*time.Second),
		CompactCapacity:      getenvInt("SITEWATCH_COMPACT_CAPACITY", 20),
		AggregateInterval:    mustDuration("SITEWATCH_AGGREGATE_INTERVAL", 60*time.Second),
		AggregateConcurrency: getenvInt("SITEWATCH_AGGREGATE_CONCURRENCY", 20),

		// Views
		ViewIdleTTL:      mustDuration("SITEWATCH_VIEW_IDLE_TTL", 2*time.Minute),
		ViewReapInterval: mustDuration("SITEWATCH_VIEW_REAP_INTERVAL", 30*time.Second),

		ReportCacheTTL: mustDuration("SITEWATCH_REPORT_CACHE_TTL", 5*time.Minute),

		// Rate limit
		CheckRateBurst:  getenvInt("SITEWATCH_CHECK_RATE_BURST", 30),
		CheckRatePerMin: getenvInt("SITEWATCH_CHECK_RATE_PER_MIN", 120),

		// Redis settings
		RedisAddr:           getenv("SITEWATCH_REDIS_ADDR", ""),
		RedisUser:           getenv("SITEWATCH_REDIS_USERNAME", ""),
		RedisPassword:       getenv("SITEWATCH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("SITEWATCH_REDIS_DB", 0),
		RedisDT:             mustDuration("SITEWATCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("SITEWATCH_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("SITEWATCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("SITEWATCH_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("SITEWATCH_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("SITEWATCH_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("SITEWATCH_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("SITEWATCH_REDIS_RETRY_INTERVAL", 2*time.Second),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SITEWATCH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("SITEWATCH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SITEWATCH_TRUST_PROXY", false),
	}

	switch cfg.RosterSource {
	case RosterSourceFile:
	case RosterSourceDatabase:
		cfg.DatabaseDSN = requireEnv("SITEWATCH_DATABASE_DSN")
	default:
		panic(fmt.Sprintf("❌ FATAL: SITEWATCH_ROSTER_SOURCE must be %q or %q, got %q",
			RosterSourceFile, RosterSourceDatabase, cfg.RosterSource))
	}

	if cfg.DetailCapacity <= 0 || cfg.CompactCapacity <= 0 {
		panic("❌ FATAL: SITEWATCH_DETAIL_CAPACITY and SITEWATCH_COMPACT_CAPACITY must be positive")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.DatabaseDSN != "" {
			cfgCopy.DatabaseDSN = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
