package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Facebook FacebookConfig `yaml:"facebook"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	HTTPPort        int             `yaml:"http_port"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	SessionTTL      time.Duration   `yaml:"session_ttl"`
	LogLevel        string          `yaml:"log_level"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// FacebookConfig contains Facebook app and Graph API configuration.
type FacebookConfig struct {
	AppID       string   `yaml:"app_id"`
	AppSecret   string   `yaml:"app_secret"`
	RedirectURL string   `yaml:"redirect_url"`
	APIVersion  string   `yaml:"api_version"`
	Scopes      []string `yaml:"scopes"`
}

// DatabaseConfig contains persistence configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// TelegramConfig contains optional sync notification configuration.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.HTTPPort)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_minute cannot be negative")
	}
	if c.Facebook.AppID == "" {
		return fmt.Errorf("facebook.app_id is required")
	}
	if c.Facebook.AppSecret == "" {
		return fmt.Errorf("facebook.app_secret is required")
	}
	if c.Facebook.RedirectURL != "" {
		if _, err := url.ParseRequestURI(c.Facebook.RedirectURL); err != nil {
			return fmt.Errorf("facebook.redirect_url is not a valid URL: %v", err)
		}
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	return nil
}

// applyDefaults fills in defaults for fields left unset.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 3000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 24 * time.Hour
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute = 1000
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 100
	}
	if c.Facebook.APIVersion == "" {
		c.Facebook.APIVersion = "v21.0"
	}
	if len(c.Facebook.Scopes) == 0 {
		c.Facebook.Scopes = []string{"email", "public_profile"}
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/leadsync.db"
	}
}
