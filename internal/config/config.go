// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/bigfa/pluto/internal/storage"
)

// Static errors for configuration validation.
var (
	// ErrUnknownProvider is returned when MEDIA_PROVIDER names an
	// unsupported backend.
	ErrUnknownProvider = errors.New("config: unknown media provider")
	// ErrUnknownGeocoder is returned when GEOCODER_PROVIDER names an
	// unsupported geocoding service.
	ErrUnknownGeocoder = errors.New("config: unknown geocoder provider")
)

// Config holds all configuration for the application. Credentials are
// optional at load time; whichever provider is actually selected must
// be fully configured, which the storage adapters enforce before any
// request.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Media settings
	DefaultProvider string `env:"MEDIA_PROVIDER, default=local" json:"media_provider"`
	UploadMaxMB     int    `env:"UPLOAD_MAX_MB, default=32" json:"upload_max_mb"`

	// Persistence: Postgres when set, in-memory otherwise.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Local provider
	LocalStorageDir string `env:"LOCAL_STORAGE_DIR, default=/var/lib/pluto/media" json:"local_storage_dir"`
	LocalPublicURL  string `env:"LOCAL_PUBLIC_URL" json:"local_public_url,omitempty"`

	// R2 provider (bearer token)
	R2Endpoint string `env:"R2_ENDPOINT" json:"r2_endpoint,omitempty"`
	R2Token    string `env:"R2_TOKEN" json:"-"` // Masked in JSON
	R2Domain   string `env:"R2_DOMAIN" json:"r2_domain,omitempty"`

	// UpYun provider (per-request HMAC)
	UpyunBucket   string `env:"UPYUN_BUCKET" json:"upyun_bucket,omitempty"`
	UpyunOperator string `env:"UPYUN_OPERATOR" json:"upyun_operator,omitempty"`
	UpyunPassword string `env:"UPYUN_PASSWORD" json:"-"` // Masked in JSON
	UpyunDomain   string `env:"UPYUN_DOMAIN" json:"upyun_domain,omitempty"`

	// COS provider (canonical-request signature)
	COSBucket    string `env:"COS_BUCKET" json:"cos_bucket,omitempty"`
	COSRegion    string `env:"COS_REGION" json:"cos_region,omitempty"`
	COSSecretID  string `env:"COS_SECRET_ID" json:"-"`  // Masked in JSON
	COSSecretKey string `env:"COS_SECRET_KEY" json:"-"` // Masked in JSON
	COSDomain    string `env:"COS_DOMAIN" json:"cos_domain,omitempty"`

	// Reverse geocoding
	GeocoderProvider  string `env:"GEOCODER_PROVIDER, default=none" json:"geocoder_provider"`
	GeocoderAPIKey    string `env:"GEOCODER_API_KEY" json:"-"` // Masked in JSON
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT, default=pluto-media" json:"geocoder_user_agent"`
	GeocoderLang      string `env:"GEOCODER_LANG, default=en" json:"geocoder_lang"`
	GeocoderTimeout   int    `env:"GEOCODER_TIMEOUT_SEC, default=3" json:"geocoder_timeout_sec"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// R2Enabled returns true if R2 configuration is complete.
func (c *Config) R2Enabled() bool {
	return c.R2Endpoint != "" && c.R2Token != "" && c.R2Domain != ""
}

// UpyunEnabled returns true if UpYun configuration is complete.
func (c *Config) UpyunEnabled() bool {
	return c.UpyunBucket != "" && c.UpyunOperator != "" && c.UpyunPassword != "" && c.UpyunDomain != ""
}

// COSEnabled returns true if COS configuration is complete.
func (c *Config) COSEnabled() bool {
	return c.COSBucket != "" && c.COSRegion != "" && c.COSSecretID != "" && c.COSSecretKey != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if !storage.Provider(c.DefaultProvider).IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.DefaultProvider)
	}
	switch strings.ToLower(c.GeocoderProvider) {
	case "none", "nominatim", "locationiq":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGeocoder, c.GeocoderProvider)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DefaultProvider: %s, UploadMaxMB: %d, LocalStorageDir: %s, GeocoderProvider: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DefaultProvider,
		c.UploadMaxMB,
		c.LocalStorageDir,
		c.GeocoderProvider,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
