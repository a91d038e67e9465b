package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "SWXINGEST_CONFIG"

// Load reads and parses configuration from a file, then applies the
// environment overlay and validates the result.
// An empty path means "no file": defaults plus environment only.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return FromEnv()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a configuration from defaults and the environment overlay.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	ApplyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ResolvePath picks the config path from the flag value or $SWXINGEST_CONFIG.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// loadConfigFile decodes a YAML file on top of Defaults().
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolated)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// verifyConfigHash enforces the .checksums lock when one exists next to the file.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	checksums, err := LoadChecksums(dir)
	if err != nil {
		if errors.Is(err, errNoChecksums) {
			return nil
		}
		return err
	}

	basename := filepath.Base(path)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: swxingest config lock --config %s", basename, dir, path)
	}
	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"If you edited this file intentionally, run: swxingest config lock --config %s", path, err, path)
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.HTTPTimeout <= 0 {
		return fmt.Errorf("service.http_timeout must be positive")
	}
	if cfg.Service.Mission == "" {
		return fmt.Errorf("service.mission is required")
	}

	for i, b := range cfg.Secrets.Bundles {
		if b.Field == "" {
			return fmt.Errorf("secrets.bundles[%d].field is required", i)
		}
		if b.IDEnv == "" && b.ID == "" {
			return fmt.Errorf("secrets.bundles[%d]: one of id_env or id is required", i)
		}
	}

	switch cfg.TimeSeries.Backend {
	case "timestream":
		if cfg.TimeSeries.Timestream.Database == "" {
			return fmt.Errorf("timeseries.timestream.database is required")
		}
	case "influxdb":
		ic := cfg.TimeSeries.InfluxDB
		if ic.URL == "" || ic.Org == "" || ic.Bucket == "" {
			return fmt.Errorf("timeseries.influxdb requires url, org and bucket")
		}
		if err := checkUnresolved("timeseries.influxdb.token", ic.Token); err != nil {
			return err
		}
	case "sqlite":
		if cfg.TimeSeries.SQLitePath == "" {
			return fmt.Errorf("timeseries.sqlite_path is required")
		}
	default:
		return fmt.Errorf("timeseries.backend must be one of: timestream, influxdb, sqlite (got %q)", cfg.TimeSeries.Backend)
	}

	switch cfg.Annotations.Backend {
	case "grafana":
	case "sqlite":
		if cfg.Annotations.SQLitePath == "" {
			return fmt.Errorf("annotations.sqlite_path is required")
		}
	default:
		return fmt.Errorf("annotations.backend must be one of: grafana, sqlite (got %q)", cfg.Annotations.Backend)
	}

	windows := map[string]time.Duration{
		"goes.window":   cfg.GOES.Window,
		"flares.window": cfg.Flares.Window,
		"reach.window":  cfg.REACH.Window,
		"orbit.window":  cfg.Orbit.Window,
	}
	for name, w := range windows {
		if w <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.REACH.Delay < 0 {
		return fmt.Errorf("reach.delay must not be negative")
	}

	if err := checkUnresolved("webhook.secret", cfg.Webhook.Secret); err != nil {
		return err
	}
	if _, err := ParseByteSize(cfg.Webhook.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size: %w", err)
	}
	return nil
}

// checkUnresolved rejects values that still contain a ${VAR} placeholder.
func checkUnresolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}
