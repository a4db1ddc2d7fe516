package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration.
//
// Values are resolved in order: defaults, the optional YAML file, then
// PINGMON_* environment variables. Command line flags are applied on top by
// the caller.
type Config struct {
	LogDir       string        `yaml:"log_dir"`
	PingHost     string        `yaml:"ping_host"`
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"timeout"`
	Listen       string        `yaml:"listen"`
	LogLevel     string        `yaml:"log_level"`
	MaxStorageMB int64         `yaml:"max_storage_mb"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogDir:       DefaultLogDir,
		PingHost:     DefaultPingHost,
		Interval:     DefaultInterval,
		ProbeTimeout: DefaultProbeTimeout,
		Listen:       DefaultListen,
		LogLevel:     DefaultLogLevel,
		MaxStorageMB: DefaultMaxStorageMB,
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogDir = getEnv("PINGMON_LOG_DIR", c.LogDir)
	c.PingHost = getEnv("PINGMON_PING_HOST", c.PingHost)
	c.Listen = getEnv("PINGMON_LISTEN", c.Listen)
	c.LogLevel = getEnv("PINGMON_LOG_LEVEL", c.LogLevel)

	var err error
	if c.Interval, err = getEnvDuration("PINGMON_INTERVAL", c.Interval); err != nil {
		return err
	}
	if c.ProbeTimeout, err = getEnvDuration("PINGMON_TIMEOUT", c.ProbeTimeout); err != nil {
		return err
	}
	if c.MaxStorageMB, err = getEnvInt64("PINGMON_MAX_STORAGE_MB", c.MaxStorageMB); err != nil {
		return err
	}
	return nil
}

// applyDefaults fills fields left empty by the file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.LogDir == "" {
		c.LogDir = def.LogDir
	}
	if c.PingHost == "" {
		c.PingHost = def.PingHost
	}
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Interval < time.Second || c.Interval%time.Second != 0 {
		errs = append(errs, fmt.Errorf("interval must be a whole number of seconds, got %v", c.Interval))
	}
	if c.ProbeTimeout < time.Second {
		errs = append(errs, fmt.Errorf("timeout must be at least 1s, got %v", c.ProbeTimeout))
	}
	if c.ProbeTimeout >= c.Interval {
		errs = append(errs, fmt.Errorf("timeout %v must be shorter than interval %v", c.ProbeTimeout, c.Interval))
	}
	if c.MaxStorageMB < 0 {
		errs = append(errs, fmt.Errorf("max_storage_mb must not be negative, got %d", c.MaxStorageMB))
	}
	return errors.Join(errs...)
}

// getEnv gets a string from environment variable or returns default
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from environment variable or returns default
func getEnvInt64(key string, defaultValue int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, val)
	}
	return parsed, nil
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("60")
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, val)
	}
	return d, nil
}
