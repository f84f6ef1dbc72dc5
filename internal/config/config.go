package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultBus            = "session"
	defaultManagerPath    = "/"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	Bus                  string        `yaml:"bus"`
	BusAddress           string        `yaml:"bus_address"`
	Service              string        `yaml:"service"`
	ManagerPath          string        `yaml:"manager_path"`
	SpecDir              string        `yaml:"spec_dir"`
	RefreshInterval      time.Duration `yaml:"-"`
	ShutdownGracePeriod  time.Duration `yaml:"-"`
	ReadHeaderTimeout    time.Duration `yaml:"-"`
	WriteTimeout         time.Duration `yaml:"-"`
	IdleTimeout          time.Duration `yaml:"-"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Bus                  string        `yaml:"bus"`
	BusAddress           string        `yaml:"bus_address"`
	Service              string        `yaml:"service"`
	ManagerPath          string        `yaml:"manager_path"`
	SpecDir              string        `yaml:"spec_dir"`
	RefreshInterval      string        `yaml:"refresh_interval"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile      string
	Port            *string
	Bus             *string
	BusAddress      *string
	Service         *string
	ManagerPath     *string
	SpecDir         *string
	RefreshInterval *time.Duration
	RateLimitRPS    *float64
	RateLimitBurst  *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		Bus:                  defaultBus,
		ManagerPath:          defaultManagerPath,
		RefreshInterval:      time.Second,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.Bus != "" {
		cfg.Bus = yamlCfg.Bus
	}
	if yamlCfg.BusAddress != "" {
		cfg.BusAddress = yamlCfg.BusAddress
	}
	if yamlCfg.Service != "" {
		cfg.Service = yamlCfg.Service
	}
	if yamlCfg.ManagerPath != "" {
		cfg.ManagerPath = yamlCfg.ManagerPath
	}
	if yamlCfg.SpecDir != "" {
		cfg.SpecDir = yamlCfg.SpecDir
	}

	for _, entry := range []struct {
		raw string
		dst *time.Duration
	}{
		{yamlCfg.RefreshInterval, &cfg.RefreshInterval},
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	} {
		if entry.raw == "" {
			continue
		}
		if d, err := time.ParseDuration(entry.raw); err == nil {
			*entry.dst = d
		}
	}

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	for _, entry := range []struct {
		key string
		dst *string
	}{
		{"PORT", &cfg.Port},
		{"DBUS_BUS", &cfg.Bus},
		{"DBUS_ADDRESS", &cfg.BusAddress},
		{"DBUS_SERVICE", &cfg.Service},
		{"DBUS_MANAGER_PATH", &cfg.ManagerPath},
		{"SPEC_DIR", &cfg.SpecDir},
	} {
		if value := strings.TrimSpace(os.Getenv(entry.key)); value != "" {
			*entry.dst = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("REFRESH_INTERVAL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			cfg.RefreshInterval = d
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	for _, entry := range []struct {
		src *string
		dst *string
	}{
		{overrides.Port, &cfg.Port},
		{overrides.Bus, &cfg.Bus},
		{overrides.BusAddress, &cfg.BusAddress},
		{overrides.Service, &cfg.Service},
		{overrides.ManagerPath, &cfg.ManagerPath},
		{overrides.SpecDir, &cfg.SpecDir},
	} {
		if entry.src != nil && *entry.src != "" {
			*entry.dst = *entry.src
		}
	}

	if overrides.RefreshInterval != nil && *overrides.RefreshInterval >= 0 {
		cfg.RefreshInterval = *overrides.RefreshInterval
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Service == "" {
		return fmt.Errorf("destination service name is required")
	}
	if cfg.BusAddress == "" && cfg.Bus != "session" && cfg.Bus != "system" {
		return fmt.Errorf("bus must be session or system, got %q", cfg.Bus)
	}
	if !dbus.ObjectPath(cfg.ManagerPath).IsValid() {
		return fmt.Errorf("manager path %q is not a valid object path", cfg.ManagerPath)
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be >= 0")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}
