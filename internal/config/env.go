// Package config loads host configuration for the example programs from the
// environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Host is the environment a chart host runs in.
type Host struct {
	SettingsFile   string  `env:"PARA_SETTINGS_FILE"`
	SettingsFormat string  `env:"PARA_SETTINGS_FORMAT" envDefault:"json"`
	DatabasePath   string  `env:"PARA_DB_PATH"`
	Domain         string  `env:"PARA_DOMAIN" envDefault:"charts"`
	UserID         string  `env:"PARA_USER_ID"`
	LogLevel       string  `env:"PARA_LOG_LEVEL" envDefault:"info"`
	ScrollyOffset  string  `env:"PARA_SCROLLY_OFFSET" envDefault:"0.5"`
	ScrollyDebug   bool    `env:"PARA_SCROLLY_DEBUG"`
	ExtraMargin    float64 `env:"PARA_SCROLLY_EXTRA_MARGIN"`
}

// LoadHost parses Host from the environment.
func LoadHost() (Host, error) {
	var host Host
	if err := ParseEnv(&host); err != nil {
		return Host{}, err
	}
	return host, nil
}

// Level maps LogLevel onto slog, falling back to info.
func (h Host) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(h.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a text logger writing to w at the configured level.
func (h Host) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: h.Level()}))
}
