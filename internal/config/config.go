// Package config loads runtime settings from the environment.
package config

import "fmt"

// Config captures all runtime settings for the forkd service.
// It is read once at startup and treated as immutable afterwards.
type Config struct {
	Listen        string // HTTP listen address
	DBPath        string // path to the host application's SQLite database
	ThumbnailsDir string // directory holding hash-named thumbnail files
	LogLevel      string
	RateLimitRPS  int // per-IP request limit per second, 0 disables
}

// FromEnv reads the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Listen:        ParseString("FORKD_LISTEN", ":47620"),
		DBPath:        ParseString("FORKD_DB_PATH", ""),
		ThumbnailsDir: ParseString("FORKD_THUMBNAILS_DIR", ""),
		LogLevel:      ParseString("FORKD_LOG_LEVEL", "info"),
		RateLimitRPS:  ParseInt("FORKD_RATE_LIMIT_RPS", 50),
	}
}

// Validate checks that all required settings are present and sane.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("FORKD_DB_PATH is required")
	}
	if c.ThumbnailsDir == "" {
		return fmt.Errorf("FORKD_THUMBNAILS_DIR is required")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}
