package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultAppDir is the directory name under os.UserConfigDir().
	DefaultAppDir = "starside"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the CLI configuration file.
type Config struct {
	// ImportPaths are searched in order, before the scripts directory.
	ImportPaths []string `yaml:"import_paths,omitempty"`

	// APIVersion is the bridge API version, e.g. "1.5". Empty means latest.
	APIVersion string `yaml:"api_version,omitempty"`

	// MaxDepth bounds value conversion recursion. Zero uses the default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	Settings SettingsConfig `yaml:"settings,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty"`

	path string
}

// SettingsConfig selects the backend of the script settings module.
type SettingsConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend,omitempty"`

	// Dir is the badger directory. Defaults to Paths.SettingsDir().
	Dir string `yaml:"dir,omitempty"`
}

// ServeConfig configures "starside serve".
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// DefaultServeAddr is used when the config does not set serve.addr.
const DefaultServeAddr = "127.0.0.1:8765"

// LoadConfig loads the configuration from the default location. A missing
// file yields the defaults.
func LoadConfig() (*Config, error) {
	p, err := NewPaths()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(p.ConfigFile())
}

// LoadConfigFrom loads the configuration from path. A missing file yields
// the defaults; the file is not created until Save.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := &Config{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, cfg.Validate()
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative: %d", c.MaxDepth)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Settings.Backend {
	case "", "memory", "badger":
	default:
		return fmt.Errorf("unknown settings backend %q", c.Settings.Backend)
	}
	return nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.path
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// ServeAddr returns the configured listen address or DefaultServeAddr.
func (c *Config) ServeAddr() string {
	if c.Serve.Addr == "" {
		return DefaultServeAddr
	}
	return c.Serve.Addr
}

// SettingsDir returns the badger directory, relative paths resolved
// against the config directory.
func (c *Config) SettingsDir() string {
	switch {
	case c.Settings.Dir == "":
		return filepath.Join(c.Dir(), "settings")
	case filepath.IsAbs(c.Settings.Dir):
		return c.Settings.Dir
	default:
		return filepath.Join(c.Dir(), c.Settings.Dir)
	}
}

// ParseLogLevel maps a config log level to slog. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
