package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if !cfg.Browser.Headless {
		t.Error("Headless should default to true")
	}
	if !cfg.Browser.Stealth {
		t.Error("Stealth should default to true")
	}
	if cfg.Browser.NavigationTimeout != 15*time.Second {
		t.Errorf("NavigationTimeout = %v, want 15s", cfg.Browser.NavigationTimeout)
	}
	if cfg.Extract.InitialLoadTimeout != 10*time.Second {
		t.Errorf("InitialLoadTimeout = %v, want 10s", cfg.Extract.InitialLoadTimeout)
	}
	if cfg.Extract.NavPerMinute != 20 {
		t.Errorf("NavPerMinute = %v, want 20", cfg.Extract.NavPerMinute)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults wrong: %+v", cfg.Log)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SKIMMER_HEADLESS", "false")
	t.Setenv("SKIMMER_NAV_TIMEOUT", "30s")
	t.Setenv("SKIMMER_NAV_PER_MINUTE", "5.5")
	t.Setenv("SKIMMER_NAV_BURST", "1")
	t.Setenv("SKIMMER_CONTROL_URL", "ws://127.0.0.1:9222")
	t.Setenv("SKIMMER_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Browser.Headless {
		t.Error("SKIMMER_HEADLESS=false ignored")
	}
	if cfg.Browser.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", cfg.Browser.NavigationTimeout)
	}
	if cfg.Extract.NavPerMinute != 5.5 || cfg.Extract.NavBurst != 1 {
		t.Errorf("pacing overrides lost: %+v", cfg.Extract)
	}
	if cfg.Browser.ControlURL != "ws://127.0.0.1:9222" {
		t.Errorf("ControlURL = %q", cfg.Browser.ControlURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SKIMMER_NAV_TIMEOUT", "soon")
	t.Setenv("SKIMMER_NAV_BURST", "three")
	t.Setenv("SKIMMER_HEADLESS", "nope")

	cfg := Load()
	if cfg.Browser.NavigationTimeout != 15*time.Second {
		t.Errorf("malformed duration should fall back, got %v", cfg.Browser.NavigationTimeout)
	}
	if cfg.Extract.NavBurst != 3 {
		t.Errorf("malformed int should fall back, got %v", cfg.Extract.NavBurst)
	}
	if !cfg.Browser.Headless {
		t.Error("malformed bool should fall back to true")
	}
}
