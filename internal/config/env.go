package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables understood by ApplyEnv.
const (
	EnvGitHubOrgsUsers   = "GITHUB_ORGS_USERS"
	EnvS3Bucket          = "S3_BUCKET"
	EnvS3Key             = "S3_KEY"
	EnvGrafanaURL        = "GRAFANA_URL"
	EnvLogLevel          = "SWXINGEST_LOG_LEVEL"
	EnvTimeSeriesBackend = "TIMESERIES_BACKEND"
	EnvTimestreamDB      = "TIMESTREAM_DATABASE"
	EnvInfluxURL         = "INFLUXDB_URL"
	EnvInfluxToken       = "INFLUXDB_TOKEN"
	EnvInfluxOrg         = "INFLUXDB_ORG"
	EnvInfluxBucket      = "INFLUXDB_BUCKET"
	EnvOrbitURL          = "ORBIT_URL"
)

// ApplyEnv overlays environment variables onto cfg. Set variables win over
// file values; unset variables leave cfg untouched.
//
// Secret ids (SECRET_ARN_GRAFANA, SECRET_ARN_UDL, SECRET_ARN) are not read
// here: the provisioner resolves them per SecretSpec.
func ApplyEnv(cfg *Config) {
	if v, ok := lookup(EnvGitHubOrgsUsers); ok {
		cfg.CodeReport.OrgsUsers = SplitList(v)
	}
	if v, ok := lookup(EnvS3Bucket); ok {
		cfg.CodeReport.Bucket = v
	}
	if v, ok := lookup(EnvS3Key); ok {
		cfg.CodeReport.Key = v
	}
	if v, ok := lookup(EnvGrafanaURL); ok {
		cfg.Annotations.GrafanaURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Service.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTimeSeriesBackend); ok {
		cfg.TimeSeries.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTimestreamDB); ok {
		cfg.TimeSeries.Timestream.Database = v
	}
	if v, ok := lookup(EnvInfluxURL); ok {
		cfg.TimeSeries.InfluxDB.URL = v
	}
	if v, ok := lookup(EnvInfluxToken); ok {
		cfg.TimeSeries.InfluxDB.Token = v
	}
	if v, ok := lookup(EnvInfluxOrg); ok {
		cfg.TimeSeries.InfluxDB.Org = v
	}
	if v, ok := lookup(EnvInfluxBucket); ok {
		cfg.TimeSeries.InfluxDB.Bucket = v
	}
	if v, ok := lookup(EnvOrbitURL); ok {
		cfg.Orbit.URL = v
	}
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// SplitList splits a comma or whitespace separated list, dropping empties.
func SplitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// DefaultMaxBodySize is used when no size is configured.
const DefaultMaxBodySize int64 = 64 * 1024

// ParseByteSize parses size strings like "1MB", "64KB" or "2048" to bytes.
// An empty string yields DefaultMaxBodySize.
func ParseByteSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
