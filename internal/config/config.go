// Package config loads the glint daemon configuration from a YAML file.
// A missing file yields the defaults, and a partial file overrides only
// the keys it names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
//
//	listen: "127.0.0.1:7621"
//	data_dir: "~/.glint"
//	display_budget: 8
//	fetch:
//	  normal_timeout: 1s
//	  post_login_timeout: 3s
//	  refresh_interval: 5m
//	  refresh_jitter: 0.2
//	providers:
//	  calendar: {agenda_path: ""}
//	  files:    {watch_dir: "", max_items: 10}
//	  tabs:     {session_path: ""}
//	  weather:  {endpoint: "", timeout: 10s}
//	  release_notes: {feed_url: "", timeout: 10s}
//	ranker:
//	  script: ""
type Config struct {
	// Listen is the HTTP API address.
	Listen string `yaml:"listen"`

	// DataDir holds the removal index and the preference document.
	DataDir string `yaml:"data_dir"`

	// DisplayBudget caps how many items a display pass returns.
	DisplayBudget int `yaml:"display_budget"`

	Fetch     FetchConfig     `yaml:"fetch"`
	Providers ProvidersConfig `yaml:"providers"`
	Ranker    RankerConfig    `yaml:"ranker"`
}

// FetchConfig tunes fetch-cycle deadlines and the refresh loop.
type FetchConfig struct {
	NormalTimeout    Duration `yaml:"normal_timeout"`
	PostLoginTimeout Duration `yaml:"post_login_timeout"`
	RefreshInterval  Duration `yaml:"refresh_interval"`

	// RefreshJitter spreads refresh ticks by a random factor in
	// [1-jitter, 1+jitter]. Must be at least 0 and below 1.
	RefreshJitter float64 `yaml:"refresh_jitter"`
}

// ProvidersConfig selects and tunes the data providers. A provider with an
// empty path or endpoint is not constructed.
type ProvidersConfig struct {
	Calendar     CalendarConfig     `yaml:"calendar"`
	Files        FilesConfig        `yaml:"files"`
	Tabs         TabsConfig         `yaml:"tabs"`
	Weather      WeatherConfig      `yaml:"weather"`
	ReleaseNotes ReleaseNotesConfig `yaml:"release_notes"`
}

type CalendarConfig struct {
	AgendaPath string `yaml:"agenda_path"`
}

type FilesConfig struct {
	WatchDir string `yaml:"watch_dir"`
	MaxItems int    `yaml:"max_items"`
}

type TabsConfig struct {
	SessionPath string `yaml:"session_path"`
}

type WeatherConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Timeout  Duration `yaml:"timeout"`
}

type ReleaseNotesConfig struct {
	FeedURL string   `yaml:"feed_url"`
	Timeout Duration `yaml:"timeout"`
}

// RankerConfig selects the ranking policy. An empty script uses the built-in
// time-window ranker.
type RankerConfig struct {
	Script string `yaml:"script"`
}

// Duration parses YAML strings like "1s" or "5m" through
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:        "127.0.0.1:7621",
		DataDir:       filepath.Join(homeDir(), ".glint"),
		DisplayBudget: 8,
		Fetch: FetchConfig{
			NormalTimeout:    Duration(time.Second),
			PostLoginTimeout: Duration(3 * time.Second),
			RefreshInterval:  Duration(5 * time.Minute),
			RefreshJitter:    0.2,
		},
		Providers: ProvidersConfig{
			Files:        FilesConfig{MaxItems: 10},
			Weather:      WeatherConfig{Timeout: Duration(10 * time.Second)},
			ReleaseNotes: ReleaseNotesConfig{Timeout: Duration(10 * time.Second)},
		},
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".glint", "config.yaml")
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file returns Default. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.expandPaths()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// PrefsPath returns the preference document location under DataDir.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "prefs.json")
}

// RemovalDBPath returns the removal index location under DataDir.
func (c *Config) RemovalDBPath() string {
	return filepath.Join(c.DataDir, "removed.db")
}

func (c *Config) expandPaths() {
	c.DataDir = expandHome(c.DataDir)
	c.Providers.Calendar.AgendaPath = expandHome(c.Providers.Calendar.AgendaPath)
	c.Providers.Files.WatchDir = expandHome(c.Providers.Files.WatchDir)
	c.Providers.Tabs.SessionPath = expandHome(c.Providers.Tabs.SessionPath)
	c.Ranker.Script = expandHome(c.Ranker.Script)
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.DisplayBudget <= 0 {
		return fmt.Errorf("display_budget must be positive, got %d", c.DisplayBudget)
	}
	if c.Fetch.NormalTimeout <= 0 {
		return fmt.Errorf("fetch.normal_timeout must be positive, got %s", time.Duration(c.Fetch.NormalTimeout))
	}
	if c.Fetch.PostLoginTimeout <= 0 {
		return fmt.Errorf("fetch.post_login_timeout must be positive, got %s", time.Duration(c.Fetch.PostLoginTimeout))
	}
	if c.Fetch.RefreshInterval <= 0 {
		return fmt.Errorf("fetch.refresh_interval must be positive, got %s", time.Duration(c.Fetch.RefreshInterval))
	}
	if c.Fetch.RefreshJitter < 0 || c.Fetch.RefreshJitter >= 1 {
		return fmt.Errorf("fetch.refresh_jitter must be in [0, 1), got %v", c.Fetch.RefreshJitter)
	}
	if c.Providers.Files.MaxItems < 0 {
		return fmt.Errorf("providers.files.max_items must not be negative, got %d", c.Providers.Files.MaxItems)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
