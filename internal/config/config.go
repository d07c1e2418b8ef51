package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	settingsFile = "settings.json"
	logFile      = "tracking_logs.json"
)

// Config holds environment-driven configuration.
type Config struct {
	DataDir          string `env:"TRACKER_DATA_DIR"` // default: <user config dir>/stage-tracker/logs
	DefaultStages    int    `env:"TRACKER_DEFAULT_STAGES" default:"8"`
	DefaultReference string `env:"TRACKER_DEFAULT_REFERENCE" default:"SEM CARD JIRA"`
	WatchLogs        bool   `env:"TRACKER_WATCH_LOGS" default:"true"`

	HTTPAddr string `env:"HTTP_ADDR" default:":8080"`

	// e.g., user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	MySQLDSN string `env:"MYSQL_DSN"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from a .env file, if present, and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", slog.Any("err", err))
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return cfg, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return cfg, fmt.Errorf("TRACKER_DATA_DIR is not set and no user config dir: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "stage-tracker", "logs")
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.DefaultStages < 1 || cfg.DefaultStages > 20 {
		return fmt.Errorf("TRACKER_DEFAULT_STAGES must be between 1 and 20, got %d", cfg.DefaultStages)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

// SettingsPath is the stage configuration file.
func (c Config) SettingsPath() string { return filepath.Join(c.DataDir, settingsFile) }

// LogPath is the session log file.
func (c Config) LogPath() string { return filepath.Join(c.DataDir, logFile) }

// MirrorEnabled reports whether finished sessions are copied to MySQL.
func (c Config) MirrorEnabled() bool { return c.MySQLDSN != "" }
