package config

import "time"

// Config represents the complete swxingest configuration.
type Config struct {
	Service     ServiceConfig     `yaml:"service"`
	Secrets     SecretsConfig     `yaml:"secrets"`
	TimeSeries  TimeSeriesConfig  `yaml:"timeseries"`
	Annotations AnnotationsConfig `yaml:"annotations"`
	GOES        GOESConfig        `yaml:"goes"`
	Flares      FlaresConfig      `yaml:"flares"`
	REACH       REACHConfig       `yaml:"reach"`
	Orbit       OrbitConfig       `yaml:"orbit"`
	CodeReport  CodeReportConfig  `yaml:"code_report"`
	Webhook     WebhookConfig     `yaml:"webhook,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name        string        `yaml:"name"`
	Mission     string        `yaml:"mission"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	AWSRegion   string        `yaml:"aws_region,omitempty"`
}

// SecretsConfig lists the secret bundles loaded at dispatcher construction.
type SecretsConfig struct {
	Bundles []SecretSpec `yaml:"bundles"`
	// ExportEnv also publishes loaded values into the process environment.
	ExportEnv bool `yaml:"export_env"`
}

// SecretSpec maps one secret-store entry to one credential.
//
// IDEnv names the environment variable holding the secret id (an ARN on AWS).
// LegacyIDEnv is consulted when IDEnv is unset. Field is the key inside the
// JSON secret; the credential is published under strings.ToUpper(Field).
type SecretSpec struct {
	IDEnv       string `yaml:"id_env"`
	LegacyIDEnv string `yaml:"legacy_id_env,omitempty"`
	ID          string `yaml:"id,omitempty"`
	Field       string `yaml:"field"`
}

// TimeSeriesConfig selects and configures the time-series sink.
type TimeSeriesConfig struct {
	Backend    string           `yaml:"backend"` // timestream, influxdb, sqlite
	Timestream TimestreamConfig `yaml:"timestream"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	SQLitePath string           `yaml:"sqlite_path"`
}

// TimestreamConfig configures the AWS Timestream writer.
type TimestreamConfig struct {
	Database string `yaml:"database"`
	// Table defaults to the series name when empty.
	Table string `yaml:"table,omitempty"`
}

// InfluxDBConfig configures the InfluxDB v2 writer.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// AnnotationsConfig selects and configures the annotation sink.
type AnnotationsConfig struct {
	Backend    string `yaml:"backend"` // grafana, sqlite
	GrafanaURL string `yaml:"grafana_url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// GOESConfig configures the GOES X-ray flux import.
type GOESConfig struct {
	URL    string        `yaml:"url"`
	Window time.Duration `yaml:"window"`
}

// FlaresConfig configures the GOES flare annotation routine.
type FlaresConfig struct {
	URL       string        `yaml:"url"`
	Window    time.Duration `yaml:"window"`
	Dashboard string        `yaml:"dashboard"`
	Panel     string        `yaml:"panel"`
}

// REACHConfig configures the UDL/REACH import.
type REACHConfig struct {
	URL    string        `yaml:"url"`
	Delay  time.Duration `yaml:"delay"`
	Window time.Duration `yaml:"window"`
}

// OrbitConfig configures the orbit propagation import.
type OrbitConfig struct {
	URL        string        `yaml:"url"`
	Window     time.Duration `yaml:"window"`
	Instrument string        `yaml:"instrument"`
	// Rows is a gjson path selecting the ephemeris array in the response.
	Rows string `yaml:"rows"`
}

// CodeReportConfig configures the source line-count report.
type CodeReportConfig struct {
	OrgsUsers   []string      `yaml:"orgs_users"`
	APIURL      string        `yaml:"api_url"`
	Bucket      string        `yaml:"bucket"`
	Key         string        `yaml:"key"`
	ClocPath    string        `yaml:"cloc_path"`
	ClocTimeout time.Duration `yaml:"cloc_timeout"`
}

// WebhookConfig defines the HTTP trigger listener.
type WebhookConfig struct {
	Listen          string `yaml:"listen"`
	Secret          string `yaml:"secret,omitempty"`
	SignatureHeader string `yaml:"signature_header,omitempty"`
	MaxBodySize     string `yaml:"max_body_size,omitempty"`
}

// Defaults returns a Config matching the Lambda deployment.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "swxingest",
			Mission:     "padre",
			LogLevel:    "info",
			LogFormat:   "json",
			HTTPTimeout: 30 * time.Second,
		},
		Secrets: SecretsConfig{
			Bundles: []SecretSpec{
				{IDEnv: "SECRET_ARN_GRAFANA", LegacyIDEnv: "SECRET_ARN", Field: "grafana_api_key"},
				{IDEnv: "SECRET_ARN_UDL", Field: "basicauth"},
			},
		},
		TimeSeries: TimeSeriesConfig{
			Backend:    "timestream",
			Timestream: TimestreamConfig{Database: "padre_sdc_aws_logs"},
			SQLitePath: "./data/swxingest.db",
		},
		Annotations: AnnotationsConfig{
			Backend:    "grafana",
			SQLitePath: "./data/swxingest.db",
		},
		GOES: GOESConfig{
			URL:    "https://services.swpc.noaa.gov/json/goes/primary/xrays-3-day.json",
			Window: 24 * time.Hour,
		},
		Flares: FlaresConfig{
			URL:       "https://services.swpc.noaa.gov/json/goes/primary/xray-flares-7-day.json",
			Window:    24 * time.Hour,
			Dashboard: "Context Observations",
			Panel:     "GOES XRS",
		},
		REACH: REACHConfig{
			URL:    "https://unifieddatalibrary.com/udl/spaceenvobservation",
			Delay:  2 * time.Hour,
			Window: 10 * time.Minute,
		},
		Orbit: OrbitConfig{
			Window:     72 * time.Hour,
			Instrument: "padre orbit",
			Rows:       "data",
		},
		CodeReport: CodeReportConfig{
			APIURL:      "https://api.github.com",
			ClocPath:    "cloc",
			ClocTimeout: 2 * time.Minute,
		},
		Webhook: WebhookConfig{
			Listen:          "127.0.0.1:8080",
			SignatureHeader: "X-Signature-256",
			MaxBodySize:     "64KB",
		},
	}
}
