package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactor/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactor.yaml"

	// DefaultPort is the default inspector port.
	DefaultPort = 7070

	// DefaultHost is the default inspector host.
	DefaultHost = "localhost"

	// DefaultSweepInterval mirrors reactive.DefaultSweepInterval.
	DefaultSweepInterval = 256

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "reactor"
)

// Config represents the complete reactor.yaml configuration.
type Config struct {
	// Log contains logging configuration.
	Log LogConfig `yaml:"log"`

	// Runtime contains reactive runtime tuning.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Server contains inspector server configuration.
	Server ServerConfig `yaml:"server"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// RuntimeConfig contains reactive runtime settings.
type RuntimeConfig struct {
	// SweepInterval is the number of new wrappers between automatic sweeps
	// of the wrapper cache.
	SweepInterval int `yaml:"sweep_interval"`
}

// ServerConfig contains inspector server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `yaml:"host"`

	// Port is the port to listen on.
	Port int `yaml:"port"`

	// ReadTimeout bounds reading a request (e.g. "10s").
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response and each WebSocket frame.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics and records engine metrics.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Runtime: RuntimeConfig{
			SweepInterval: DefaultSweepInterval,
		},
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for reactor.yaml in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault is like Load but returns the defaults when dir has no
// reactor.yaml.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R021").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use the defaults")
		}
		return nil, errors.New("R021").Wrap(err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		rerr := errors.New("R021").WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
		if line := yamlErrorLine(err); line > 0 {
			rerr.WithLocation(path, line, 0)
		}
		return nil, rerr
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// yamlErrorLine extracts the first "line N" reported by yaml.v3.
func yamlErrorLine(err error) int {
	msg := err.Error()
	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	rest := msg[i+len("line "):]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0
	}
	if end > 0 {
		rest = rest[:end]
	}
	n, _ := strconv.Atoi(rest)
	return n
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("R021").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R021").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from or last saved to, or
// "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Runtime.SweepInterval == 0 {
		c.Runtime.SweepInterval = DefaultSweepInterval
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("R020").
			WithDetailf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Runtime.SweepInterval < 1 {
		return errors.New("R020").
			WithDetail("runtime.sweep_interval must be at least 1")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("R020").
			WithDetail("server.port must be between 0 and 65535")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("R020").
			WithDetail("server timeouts must not be negative")
	}
	return nil
}

// ServerAddress returns the listen address of the inspector.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New("R020").
		WithDetailf("log.level must be debug, info, warn or error, got %q", level).
		WithSuggestion("Set log.level in " + ConfigFileName + " or pass --log-level")
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// reactor.yaml.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R021").
				WithDetail(fmt.Sprintf("No %s found in %s or any parent directory", ConfigFileName, startDir))
		}
		dir = parent
	}
}
