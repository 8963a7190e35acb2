// Package config loads bukubesar.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name.
const FileName = "bukubesar.yaml"

// Files kept in the data directory.
const (
	dbFile      = "ledger.db"
	sessionFile = "sessions.db"
	auditFile   = "audit-log.csv"
)

// Config represents the top-level bukubesar.yaml configuration.
type Config struct {
	DataDir        string        `yaml:"data_dir"`
	DefaultCompany string        `yaml:"default_company,omitempty"`
	Server         ServerConfig  `yaml:"server"`
	Session        SessionConfig `yaml:"session"`
	Log            LogConfig     `yaml:"log"`
}

// ServerConfig controls the RPC server.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	StaticDir      string        `yaml:"static_dir,omitempty"` // pre-built frontend, served at /
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// SessionConfig controls login sessions.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Default returns a Config with sensible defaults for a new installation.
func Default() *Config {
	return &Config{
		DataDir: "data",
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   4 << 20,
		},
		Session: SessionConfig{
			TTL:           12 * time.Hour,
			PurgeInterval: 10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a bukubesar.yaml file from disk on top of the defaults. A
// relative data_dir is taken relative to the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DataDir != "" && !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(filepath.Dir(path), cfg.DataDir)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.DataDir = filepath.Join(filepath.Dir(path), cfg.DataDir)
		return cfg, nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Environment variables that override the file.
const (
	EnvDataDir    = "BUKUBESAR_DATA_DIR"
	EnvAddr       = "BUKUBESAR_ADDR"
	EnvStaticDir  = "BUKUBESAR_STATIC_DIR"
	EnvSessionTTL = "BUKUBESAR_SESSION_TTL"
	EnvLogLevel   = "BUKUBESAR_LOG_LEVEL"
	EnvCompany    = "BUKUBESAR_COMPANY"
)

// ApplyEnv loads envFile (if it exists) into the process environment and
// then overrides cfg from it. Variables already set in the environment win
// over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	c.Server.Addr = getEnvOrDefault(EnvAddr, c.Server.Addr)
	c.Server.StaticDir = getEnvOrDefault(EnvStaticDir, c.Server.StaticDir)
	c.Log.Level = getEnvOrDefault(EnvLogLevel, c.Log.Level)
	c.DefaultCompany = getEnvOrDefault(EnvCompany, c.DefaultCompany)

	if v := os.Getenv(EnvSessionTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSessionTTL, err)
		}
		c.Session.TTL = ttl
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// DBPath returns the SQLite ledger path.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, dbFile) }

// SessionPath returns the bbolt session database path.
func (c *Config) SessionPath() string { return filepath.Join(c.DataDir, sessionFile) }

// AuditPath returns the audit trail path.
func (c *Config) AuditPath() string { return filepath.Join(c.DataDir, auditFile) }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
