// Package config holds runtime configuration (environment variables with
// sane defaults for every knob) and the YAML feed definitions that
// describe what to extract.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Extract ExtractConfig
	Log     LogConfig
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	// Headless controls whether a launched browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the proxy URL for all requests.
	Proxy string

	// ControlURL attaches to an already running browser's debugging
	// endpoint instead of launching one. The attached browser keeps the
	// user's login sessions.
	ControlURL string

	// Stealth injects automation masking before navigation.
	Stealth bool // default: true

	// NavigationTimeout bounds a single navigation plus load wait.
	NavigationTimeout time.Duration // default: 15s
}

// ExtractConfig carries run-level extraction defaults; per-feed YAML can
// override the behavioral ones.
type ExtractConfig struct {
	// InitialLoadTimeout bounds the wait for the first feed containers.
	InitialLoadTimeout time.Duration // default: 10s

	// NetworkIdleTimeout bounds post-click network settle waits.
	NetworkIdleTimeout time.Duration // default: 5s

	// ClickWaitTimeout is the pause after expanding an element.
	ClickWaitTimeout time.Duration // default: 500ms

	// NavPerMinute paces detail-page navigations. 0 disables pacing.
	NavPerMinute float64 // default: 20

	// NavBurst is the pacing burst size.
	NavBurst int // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"

	// Path, when set, sends logs to a rotated file instead of stderr.
	Path       string
	MaxSizeMB  int // default: 20
	MaxBackups int // default: 3
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          envBoolOr("SKIMMER_HEADLESS", true),
			NoSandbox:         envBoolOr("SKIMMER_NO_SANDBOX", false),
			Bin:               os.Getenv("SKIMMER_BROWSER_BIN"),
			Proxy:             os.Getenv("SKIMMER_PROXY"),
			ControlURL:        os.Getenv("SKIMMER_CONTROL_URL"),
			Stealth:           envBoolOr("SKIMMER_STEALTH", true),
			NavigationTimeout: envDurationOr("SKIMMER_NAV_TIMEOUT", 15*time.Second),
		},
		Extract: ExtractConfig{
			InitialLoadTimeout: envDurationOr("SKIMMER_INITIAL_LOAD_TIMEOUT", 10*time.Second),
			NetworkIdleTimeout: envDurationOr("SKIMMER_NETWORK_IDLE_TIMEOUT", 5*time.Second),
			ClickWaitTimeout:   envDurationOr("SKIMMER_CLICK_WAIT_TIMEOUT", 500*time.Millisecond),
			NavPerMinute:       envFloatOr("SKIMMER_NAV_PER_MINUTE", 20),
			NavBurst:           envIntOr("SKIMMER_NAV_BURST", 3),
		},
		Log: LogConfig{
			Level:      envOr("SKIMMER_LOG_LEVEL", "info"),
			Format:     envOr("SKIMMER_LOG_FORMAT", "text"),
			Path:       os.Getenv("SKIMMER_LOG_PATH"),
			MaxSizeMB:  envIntOr("SKIMMER_LOG_MAX_SIZE_MB", 20),
			MaxBackups: envIntOr("SKIMMER_LOG_MAX_BACKUPS", 3),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
