package config

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/reactor/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Runtime.SweepInterval != DefaultSweepInterval {
		t.Errorf("Runtime.SweepInterval = %d, want %d", cfg.Runtime.SweepInterval, DefaultSweepInterval)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Missing file
	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New("R021")) {
		t.Errorf("expected R021 for missing config, got %v", err)
	}

	configYAML := `log:
  level: debug
  format: json
server:
  port: 8080
  write_timeout: 3s
metrics:
  enabled: false
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 3*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 3s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("unset Server.Host should keep default, got %q", cfg.Server.Host)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Runtime.SweepInterval != DefaultSweepInterval {
		t.Errorf("Runtime.SweepInterval = %d", cfg.Runtime.SweepInterval)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("server:\n  port: abc\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	var rerr *errors.ReactorError
	if !stderrors.As(err, &rerr) {
		t.Fatalf("expected *ReactorError, got %T", err)
	}
	if rerr.Code != "R021" {
		t.Errorf("Code = %q, want R021", rerr.Code)
	}
	if rerr.Location == nil || rerr.Location.Line != 2 {
		t.Errorf("Location = %v, want line 2", rerr.Location)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero sweep interval", func(c *Config) { c.Runtime.SweepInterval = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); !stderrors.Is(err, errors.New("R020")) {
				t.Errorf("expected R020, got %v", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := New()
	cfg.Server.Port = 9000
	cfg.Server.ReadTimeout = 2 * time.Second
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "read_timeout: 2s") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9000 || loaded.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Server = %+v", loaded.Server)
	}
}

func TestServerAddress(t *testing.T) {
	cfg := New()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	if got := cfg.ServerAddress(); got != "0.0.0.0:8080" {
		t.Errorf("ServerAddress() = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := New()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "code", "R002")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"code":"R002"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("FindProjectRoot() = %q, want %q", got, root)
	}
}
