// ABOUTME: Configuration loading and parsing for sdl-storage
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete sdl-storage configuration
type Config struct {
	Storage      StorageConfig      `yaml:"storage" toml:"storage"`
	Resumption   ResumptionConfig   `yaml:"resumption" toml:"resumption"`
	Capabilities CapabilitiesConfig `yaml:"capabilities" toml:"capabilities"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
}

// StorageConfig selects the backend and the store location
type StorageConfig struct {
	Backend  string `yaml:"backend" toml:"backend"` // cursor or buffered
	Path     string `yaml:"path" toml:"path"`       // prefix, usually ending in a separator
	Name     string `yaml:"name" toml:"name"`       // store name without engine suffix
	InMemory bool   `yaml:"in_memory" toml:"in_memory"`
}

// ResumptionConfig holds resumption data retention settings
type ResumptionConfig struct {
	// ApplicationLifes is the number of ignition cycles an application's
	// saved data survives.
	ApplicationLifes int32 `yaml:"application_lifes" toml:"application_lifes"`
}

// CapabilitiesConfig holds the in-memory capability cache settings
type CapabilitiesConfig struct {
	CacheTTL  time.Duration `yaml:"-" toml:"-"`
	CacheSize int           `yaml:"cache_size" toml:"cache_size"`

	// Raw string value for unmarshaling
	CacheTTLRaw string `yaml:"cache_ttl" toml:"cache_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "cursor",
			Path:    "storage" + string(filepath.Separator),
			Name:    "policy",
		},
		Resumption: ResumptionConfig{
			ApplicationLifes: 3,
		},
		Capabilities: CapabilitiesConfig{
			CacheTTL:    10 * time.Minute,
			CacheSize:   64,
			CacheTTLRaw: "10m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

var (
	validBackends = []string{"cursor", "buffered"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"text", "json"}
)

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !slices.Contains(validBackends, c.Storage.Backend) {
		return fmt.Errorf("storage.backend must be one of %s, got %q", strings.Join(validBackends, ", "), c.Storage.Backend)
	}

	if !c.Storage.InMemory && c.Storage.Name == "" {
		return fmt.Errorf("storage.name is required unless storage.in_memory is set")
	}

	if c.Resumption.ApplicationLifes < 0 {
		return fmt.Errorf("resumption.application_lifes must not be negative")
	}

	if c.Capabilities.CacheSize <= 0 {
		return fmt.Errorf("capabilities.cache_size must be positive")
	}

	if c.Logging.Level != "" && !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(validLevels, ", "), c.Logging.Level)
	}

	if c.Logging.Format != "" && !slices.Contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(validFormats, ", "), c.Logging.Format)
	}

	return nil
}

// StoreName returns the name handed to the storage layer; empty selects the
// backend's temporary store.
func (s StorageConfig) StoreName() string {
	if s.InMemory {
		return ""
	}
	return s.Name
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Capabilities.CacheTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Capabilities.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.Capabilities.CacheTTLRaw, err)
		}
		cfg.Capabilities.CacheTTL = d
	}

	return nil
}
