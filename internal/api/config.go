// Package api provides the HTTP server of the dataset explorer: middleware,
// the HTML dashboard and, through the v1 subpackage, the JSON and image API.
package api

import (
	"time"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = ":8050"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "64M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit caps request bodies, e.g. "64M"; it bounds submission uploads
	BodyLimit      string
	AllowedOrigins []string

	Title string
	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		AllowedOrigins:  []string{"*"},
		Title:           "PlantCLEF Dataset Explorer",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings == nil {
		return cfg
	}
	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.Main.Name != "" {
		cfg.Title = settings.Main.Name
	}
	cfg.Debug = settings.Main.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.ValidationError("listen address is required")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.ValidationError("read and write timeouts must be positive")
	}
	return nil
}
