package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8084 {
		t.Errorf("port = %d, want 8084", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %s, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Dataset.CSVFile != "data/sales_dashboard.csv" {
		t.Errorf("csv file = %q", cfg.Dataset.CSVFile)
	}
	if cfg.Dataset.RowPolicy != "strict" {
		t.Errorf("row policy = %q, want strict", cfg.Dataset.RowPolicy)
	}
	if cfg.Dataset.ReloadInterval != 0 {
		t.Errorf("reload interval = %s, want disabled", cfg.Dataset.ReloadInterval)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("exporter = %q, want none", cfg.Telemetry.Exporter)
	}
	if cfg.Address() != "localhost:8084" {
		t.Errorf("address = %q, want localhost:8084", cfg.Address())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 5s
dataset:
  csv_file: /srv/sales.csv
  row_policy: skip
  reload_interval: 30s
logger:
  level: debug
  format: text
security:
  allowed_origins:
    - https://dash.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("address = %q", cfg.Address())
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %s, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("unset keys should keep defaults, write timeout = %s", cfg.Server.WriteTimeout)
	}
	if cfg.Dataset.CSVFile != "/srv/sales.csv" || cfg.Dataset.RowPolicy != "skip" {
		t.Errorf("dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.ReloadInterval != 30*time.Second {
		t.Errorf("reload interval = %s, want 30s", cfg.Dataset.ReloadInterval)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "text" {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if len(cfg.Security.AllowedOrigins) != 1 || cfg.Security.AllowedOrigins[0] != "https://dash.example.com" {
		t.Errorf("allowed origins = %v", cfg.Security.AllowedOrigins)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("SALES_SERVER__PORT", "7070")
	t.Setenv("SALES_DATASET__CSV_FILE", "/tmp/override.csv")
	t.Setenv("SALES_LOGGER__LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Dataset.CSVFile != "/tmp/override.csv" {
		t.Errorf("csv file = %q", cfg.Dataset.CSVFile)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Logger.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", map[string]string{"SALES_SERVER__PORT": "70000"}, "server port"},
		{"unknown row policy", map[string]string{"SALES_DATASET__ROW_POLICY": "lenient"}, "row policy"},
		{"unknown log level", map[string]string{"SALES_LOGGER__LEVEL": "loud"}, "log level"},
		{"unknown log format", map[string]string{"SALES_LOGGER__FORMAT": "xml"}, "log format"},
		{"unknown exporter", map[string]string{"SALES_TELEMETRY__EXPORTER": "jaeger"}, "telemetry exporter"},
		{"negative reload", map[string]string{"SALES_DATASET__RELOAD_INTERVAL": "-1s"}, "reload interval"},
		{"empty csv path", map[string]string{"SALES_DATASET__CSV_FILE": ""}, "CSV file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SALES_SERVER__PORT":              "server.port",
		"SALES_DATASET__RELOAD_INTERVAL":  "dataset.reload_interval",
		"SALES_SECURITY__ALLOWED_ORIGINS": "security.allowed_origins",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
