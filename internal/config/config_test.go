package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := Default()
	if cfg.Listen != def.Listen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, def.Listen)
	}
	if cfg.DisplayBudget != 8 {
		t.Errorf("DisplayBudget = %d, want 8", cfg.DisplayBudget)
	}
	if time.Duration(cfg.Fetch.NormalTimeout) != time.Second {
		t.Errorf("NormalTimeout = %s, want 1s", time.Duration(cfg.Fetch.NormalTimeout))
	}
	if time.Duration(cfg.Fetch.PostLoginTimeout) != 3*time.Second {
		t.Errorf("PostLoginTimeout = %s, want 3s", time.Duration(cfg.Fetch.PostLoginTimeout))
	}
	if time.Duration(cfg.Fetch.RefreshInterval) != 5*time.Minute {
		t.Errorf("RefreshInterval = %s, want 5m", time.Duration(cfg.Fetch.RefreshInterval))
	}
	if cfg.Providers.Files.MaxItems != 10 {
		t.Errorf("Files.MaxItems = %d, want 10", cfg.Providers.Files.MaxItems)
	}
	if time.Duration(cfg.Providers.Weather.Timeout) != 10*time.Second {
		t.Errorf("Weather.Timeout = %s, want 10s", time.Duration(cfg.Providers.Weather.Timeout))
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: "0.0.0.0:9900"
fetch:
  refresh_interval: 1m
providers:
  weather:
    endpoint: "https://wx.example.com/current"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9900" {
		t.Errorf("Listen = %q, want override", cfg.Listen)
	}
	if time.Duration(cfg.Fetch.RefreshInterval) != time.Minute {
		t.Errorf("RefreshInterval = %s, want 1m", time.Duration(cfg.Fetch.RefreshInterval))
	}
	if cfg.Providers.Weather.Endpoint != "https://wx.example.com/current" {
		t.Errorf("Weather.Endpoint = %q, want override", cfg.Providers.Weather.Endpoint)
	}

	// Untouched keys keep their defaults.
	if time.Duration(cfg.Fetch.PostLoginTimeout) != 3*time.Second {
		t.Errorf("PostLoginTimeout = %s, want default 3s", time.Duration(cfg.Fetch.PostLoginTimeout))
	}
	if cfg.DisplayBudget != 8 {
		t.Errorf("DisplayBudget = %d, want default 8", cfg.DisplayBudget)
	}
	if cfg.Providers.Files.MaxItems != 10 {
		t.Errorf("Files.MaxItems = %d, want default 10", cfg.Providers.Files.MaxItems)
	}
}

func TestLoad_ExpandsHomePaths(t *testing.T) {
	path := writeConfig(t, `
data_dir: "~/glint-data"
providers:
  files:
    watch_dir: "~/Downloads"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.HasPrefix(cfg.DataDir, "~") {
		t.Errorf("DataDir = %q, tilde not expanded", cfg.DataDir)
	}
	if !strings.HasSuffix(cfg.DataDir, "glint-data") {
		t.Errorf("DataDir = %q, want suffix glint-data", cfg.DataDir)
	}
	if strings.HasPrefix(cfg.Providers.Files.WatchDir, "~") {
		t.Errorf("WatchDir = %q, tilde not expanded", cfg.Providers.Files.WatchDir)
	}

	if got, want := cfg.PrefsPath(), filepath.Join(cfg.DataDir, "prefs.json"); got != want {
		t.Errorf("PrefsPath = %q, want %q", got, want)
	}
	if got, want := cfg.RemovalDBPath(), filepath.Join(cfg.DataDir, "removed.db"); got != want {
		t.Errorf("RemovalDBPath = %q, want %q", got, want)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
fetch:
  refresh_interval: soon
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load accepted a bad duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "listen: [unterminated")

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"negative budget", "display_budget: -1", "display_budget"},
		{"zero timeout", "fetch:\n  normal_timeout: 0s", "normal_timeout"},
		{"jitter too large", "fetch:\n  refresh_jitter: 1.5", "refresh_jitter"},
		{"negative jitter", "fetch:\n  refresh_jitter: -0.1", "refresh_jitter"},
		{"negative max items", "providers:\n  files:\n    max_items: -3", "max_items"},
		{"empty listen", `listen: ""`, "listen"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("Load accepted %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
