// ABOUTME: Configuration loader for the scenario analysis engine
// ABOUTME: Loads settings from environment variables (and optional .env) with defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	CacheTTL int // seconds, for location catalog lookups

	// Inbound rate limiting (HTTP surface, fixed window per IP)
	HTTPRateLimitEnabled bool
	HTTPRateLimitDefault int // requests per minute (default: 100)

	// Outbound admission (token bucket shared by all live-mode workers)
	RateLimitCapacity  int // tokens (default: 120)
	RateLimitWindowSec int // seconds (default: 60)

	// Batch execution
	BatchConcurrency int           // max scenarios in flight (default: 5)
	RetryMaxAttempts int           // attempts per live call (default: 3)
	RetryBaseDelay   time.Duration // first backoff delay (default: 1s)
	RequestTimeout   time.Duration // per-call deadline (default: 30s)
	SimulateLatency  bool          // insert artificial delay on the synthetic path

	// Capacity-query backend (live mode)
	CapacityAPIURL   string
	CapacityAPIToken string
	CapacityAllProxy string // ssh+socks5://user@host:port?private-key=/path

	// vSphere capacity source (optional)
	VSphereHost       string
	VSphereUsername   string
	VSpherePassword   string
	VSphereDatacenter string
	VSphereInsecure   bool
}

// VSphereConfigured returns true if vSphere credentials are set
func (c *Config) VSphereConfigured() bool {
	return c.VSphereHost != "" && c.VSphereUsername != "" && c.VSpherePassword != "" && c.VSphereDatacenter != ""
}

// LiveConfigured returns true if a live capacity backend is reachable in principle
func (c *Config) LiveConfigured() bool {
	return c.CapacityAPIURL != "" || c.VSphereConfigured()
}

func Load() (*Config, error) {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		CacheTTL: getEnvInt("CACHE_TTL", 300),

		HTTPRateLimitEnabled: getEnvBool("HTTP_RATE_LIMIT_ENABLED", true),
		HTTPRateLimitDefault: getEnvInt("HTTP_RATE_LIMIT_DEFAULT", 100),

		RateLimitCapacity:  getEnvInt("RATE_LIMIT_CAPACITY", 120),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW", 60),

		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 5),
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT", 30)) * time.Second,
		SimulateLatency:  getEnvBool("SIMULATE_LATENCY", false),

		CapacityAPIURL:   ensureScheme(os.Getenv("CAPACITY_API_URL")),
		CapacityAPIToken: os.Getenv("CAPACITY_API_TOKEN"),
		CapacityAllProxy: os.Getenv("CAPACITY_ALL_PROXY"),

		VSphereHost:       os.Getenv("VSPHERE_HOST"),
		VSphereUsername:   os.Getenv("VSPHERE_USERNAME"),
		VSpherePassword:   os.Getenv("VSPHERE_PASSWORD"),
		VSphereDatacenter: os.Getenv("VSPHERE_DATACENTER"),
		VSphereInsecure:   getEnvBool("VSPHERE_INSECURE", false),
	}

	// Validate ranges
	if cfg.RateLimitCapacity < 1 || cfg.RateLimitCapacity > 100000 {
		return nil, fmt.Errorf("RATE_LIMIT_CAPACITY must be between 1 and 100000, got %d", cfg.RateLimitCapacity)
	}
	if cfg.RateLimitWindowSec < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1 second, got %d", cfg.RateLimitWindowSec)
	}
	if cfg.BatchConcurrency < 1 || cfg.BatchConcurrency > 100 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be between 1 and 100, got %d", cfg.BatchConcurrency)
	}
	if cfg.RetryMaxAttempts < 1 || cfg.RetryMaxAttempts > 10 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be between 1 and 10, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.HTTPRateLimitDefault < 1 || cfg.HTTPRateLimitDefault > 10000 {
		return nil, fmt.Errorf("HTTP_RATE_LIMIT_DEFAULT must be between 1 and 10000, got %d", cfg.HTTPRateLimitDefault)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// ensureScheme prepends https:// when a URL is given without a scheme
func ensureScheme(url string) string {
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return url
}
