// Package appconfig loads ccdash's own settings: where the Claude
// configuration directory lives, how the dashboard server listens, where usage
// history is stored and how logging is set up. Settings come from a YAML file,
// an optional .env file and CCDASH_* environment variables, in increasing
// order of precedence.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is ccdash's application configuration.
type Config struct {
	// ClaudeDir is the directory holding settings.json and its siblings.
	ClaudeDir string `yaml:"claude-dir"`

	// Host and Port are the dashboard server's listen address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Database is the sqlite file holding usage history.
	Database string `yaml:"database"`

	// CCUsageCommand is the command line used to invoke ccusage.
	CCUsageCommand string `yaml:"ccusage-command"`

	// CCUsageTimeout bounds one ccusage invocation, in seconds.
	CCUsageTimeout int `yaml:"ccusage-timeout"`

	// BackupRetention keeps only the newest N backups. 0 keeps all.
	BackupRetention int `yaml:"backup-retention"`

	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors-origins"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	Level string `yaml:"level"`

	// File enables rotating file output when set.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the ccusage timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CCUsageTimeout) * time.Second
}

// DefaultDir returns $XDG_CONFIG_HOME/ccdash, or ~/.config/ccdash.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccdash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ccdash"), nil
}

// DefaultPath returns the default config.yaml location.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		ClaudeDir:      filepath.Join(home, ".claude"),
		Host:           "127.0.0.1",
		Port:           3001,
		Database:       filepath.Join(dir, "usage.db"),
		CCUsageCommand: "npx ccusage",
		CCUsageTimeout: 60,
		CORSOrigins:    []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}, nil
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path means the default location. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ClaudeDir = expandHome(cfg.ClaudeDir)
	cfg.Database = expandHome(cfg.Database)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays CCDASH_* variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("CCDASH_CONFIG_DIR"); v != "" {
		c.ClaudeDir = v
	}
	if v := os.Getenv("CCDASH_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("CCDASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CCDASH_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("CCDASH_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("CCDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CCDASH_CCUSAGE"); v != "" {
		c.CCUsageCommand = v
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ClaudeDir == "" {
		return fmt.Errorf("claude-dir cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.CCUsageTimeout <= 0 {
		return fmt.Errorf("ccusage-timeout must be positive")
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("backup-retention cannot be negative")
	}
	if len(strings.Fields(c.CCUsageCommand)) == 0 {
		return fmt.Errorf("ccusage-command cannot be empty")
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
