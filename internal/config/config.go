package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore: SALES_SERVER__PORT -> server.port.
const EnvPrefix = "SALES_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Logger    LoggerConfig    `koanf:"logger"`
	Security  SecurityConfig  `koanf:"security"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatasetConfig struct {
	CSVFile        string        `koanf:"csv_file"`
	CacheDir       string        `koanf:"cache_dir"`
	RowPolicy      string        `koanf:"row_policy"` // strict, skip
	ReloadInterval time.Duration `koanf:"reload_interval"`
	LoadTimeout    time.Duration `koanf:"load_timeout"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type SecurityConfig struct {
	EnableRateLimit bool     `koanf:"rate_limit_enabled"`
	RateLimitRPS    int      `koanf:"rate_limit_rps"`
	RateLimitBurst  int      `koanf:"rate_limit_burst"`
	AllowedOrigins  []string `koanf:"allowed_origins"`
	TrustedProxies  []string `koanf:"trusted_proxies"`
}

type TelemetryConfig struct {
	Exporter       string        `koanf:"exporter"` // none, stdout
	ServiceName    string        `koanf:"service_name"`
	MetricInterval time.Duration `koanf:"metric_interval"`
}

func defaults(k *koanf.Koanf) {
	k.Set("server.host", "localhost")
	k.Set("server.port", 8084)
	k.Set("server.read_timeout", 10*time.Second)
	k.Set("server.write_timeout", 10*time.Second)
	k.Set("server.idle_timeout", 60*time.Second)
	k.Set("server.shutdown_timeout", 30*time.Second)

	k.Set("dataset.csv_file", "data/sales_dashboard.csv")
	k.Set("dataset.cache_dir", ".cache")
	k.Set("dataset.row_policy", "strict")
	k.Set("dataset.reload_interval", time.Duration(0))
	k.Set("dataset.load_timeout", 30*time.Second)

	k.Set("logger.level", "info")
	k.Set("logger.format", "json")

	k.Set("security.rate_limit_enabled", true)
	k.Set("security.rate_limit_rps", 100)
	k.Set("security.rate_limit_burst", 10)
	k.Set("security.allowed_origins", []string{"http://localhost:8084"})
	k.Set("security.trusted_proxies", []string{"127.0.0.1"})

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.service_name", "sales-dashboard")
	k.Set("telemetry.metric_interval", time.Minute)
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and SALES_ environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	validRowPolicies := []string{"strict", "skip"}
	if !contains(validRowPolicies, c.Dataset.RowPolicy) {
		return fmt.Errorf("invalid row policy %q, must be one of: %s", c.Dataset.RowPolicy, strings.Join(validRowPolicies, ", "))
	}

	if c.Dataset.ReloadInterval < 0 {
		return fmt.Errorf("dataset reload interval cannot be negative")
	}

	if c.Dataset.LoadTimeout <= 0 {
		return fmt.Errorf("dataset load timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	validExporters := []string{"none", "stdout"}
	if !contains(validExporters, c.Telemetry.Exporter) {
		return fmt.Errorf("invalid telemetry exporter %q, must be one of: %s", c.Telemetry.Exporter, strings.Join(validExporters, ", "))
	}

	if c.Telemetry.Exporter != "none" && c.Telemetry.MetricInterval <= 0 {
		return fmt.Errorf("telemetry metric interval must be positive")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
