// ABOUTME: Configuration loading for the coven-chat client
// ABOUTME: Loads TOML with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/2389/coven-chat/internal/poller"
)

// Config is the complete coven-chat configuration.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Database DatabaseConfig `toml:"database"`
	Polling  PollingConfig  `toml:"polling"`
	Logging  LoggingConfig  `toml:"logging"`
}

// BackendConfig points at the answer-job API.
type BackendConfig struct {
	URL string `toml:"url"`

	RequestTimeout    time.Duration `toml:"-"`
	RequestTimeoutRaw string        `toml:"request_timeout"`
}

// DatabaseConfig holds the session database location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// PollingConfig tunes the answer poll loop. All fields default to the
// production schedule when unset.
type PollingConfig struct {
	FastCadence     time.Duration `toml:"-"`
	FastWindow      time.Duration `toml:"-"`
	MediumCadence   time.Duration `toml:"-"`
	MediumWindow    time.Duration `toml:"-"`
	SlowCadence     time.Duration `toml:"-"`
	WatchdogCeiling time.Duration `toml:"-"`

	FastCadenceRaw     string `toml:"fast_cadence"`
	FastWindowRaw      string `toml:"fast_window"`
	MediumCadenceRaw   string `toml:"medium_cadence"`
	MediumWindowRaw    string `toml:"medium_window"`
	SlowCadenceRaw     string `toml:"slow_cadence"`
	WatchdogCeilingRaw string `toml:"watchdog_ceiling"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is present.
// The backend URL still has to come from somewhere (flag or file).
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path. Environment
// variables in ${VAR} form are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https scheme")
	}
	return nil
}

// Schedule converts the polling section into a poller schedule.
func (c *Config) Schedule() poller.Schedule {
	return poller.Schedule{
		FastCadence:     c.Polling.FastCadence,
		FastWindow:      c.Polling.FastWindow,
		MediumCadence:   c.Polling.MediumCadence,
		MediumWindow:    c.Polling.MediumWindow,
		SlowCadence:     c.Polling.SlowCadence,
		WatchdogCeiling: c.Polling.WatchdogCeiling,
	}
}

func (c *Config) parseDurations() error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{c.Backend.RequestTimeoutRaw, &c.Backend.RequestTimeout, "backend.request_timeout"},
		{c.Polling.FastCadenceRaw, &c.Polling.FastCadence, "polling.fast_cadence"},
		{c.Polling.FastWindowRaw, &c.Polling.FastWindow, "polling.fast_window"},
		{c.Polling.MediumCadenceRaw, &c.Polling.MediumCadence, "polling.medium_cadence"},
		{c.Polling.MediumWindowRaw, &c.Polling.MediumWindow, "polling.medium_window"},
		{c.Polling.SlowCadenceRaw, &c.Polling.SlowCadence, "polling.slow_cadence"},
		{c.Polling.WatchdogCeilingRaw, &c.Polling.WatchdogCeiling, "polling.watchdog_ceiling"},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = 15 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	def := poller.DefaultSchedule()
	if c.Polling.FastCadence == 0 {
		c.Polling.FastCadence = def.FastCadence
	}
	if c.Polling.FastWindow == 0 {
		c.Polling.FastWindow = def.FastWindow
	}
	if c.Polling.MediumCadence == 0 {
		c.Polling.MediumCadence = def.MediumCadence
	}
	if c.Polling.MediumWindow == 0 {
		c.Polling.MediumWindow = def.MediumWindow
	}
	if c.Polling.SlowCadence == 0 {
		c.Polling.SlowCadence = def.SlowCadence
	}
	if c.Polling.WatchdogCeiling == 0 {
		c.Polling.WatchdogCeiling = def.WatchdogCeiling
	}
}

// defaultDatabasePath puts the session database under the XDG state
// directory, falling back to ~/.local/state.
func defaultDatabasePath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "coven-chat.db"
		}
		stateDir = home + "/.local/state"
	}
	return stateDir + "/coven-chat/session.db"
}
