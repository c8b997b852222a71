// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is loaded once at
// startup and passed by reference to the components that need it.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Site     SiteConfig     `mapstructure:"site" yaml:"site"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Harvest  HarvestConfig  `mapstructure:"harvest" yaml:"harvest"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SiteConfig identifies the target site and the credentials used against it.
// The password is never written to config files; it binds to
// HIVECRAWL_SITE_PASSWORD.
type SiteConfig struct {
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	LoginPath        string        `mapstructure:"login_path" yaml:"login_path"`
	Username         string        `mapstructure:"username" yaml:"username"`
	Password         string        `mapstructure:"password" yaml:"-"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts" yaml:"max_login_attempts"`
	CheckpointWait   time.Duration `mapstructure:"checkpoint_wait" yaml:"checkpoint_wait"`
	TwoFactorTimeout time.Duration `mapstructure:"two_factor_timeout" yaml:"two_factor_timeout"`
}

// LoginURL joins the base URL and login path.
func (s SiteConfig) LoginURL() string {
	return s.BaseURL + s.LoginPath
}

// ProxyConfig defines a single optional outbound proxy passed through to the
// browser process.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Address  string `mapstructure:"address" yaml:"address"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
}

// BrowserConfig holds settings for the browser process.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	Proxy             ProxyConfig   `mapstructure:"proxy" yaml:"proxy"`
}

// SessionConfig tunes the durable session store.
type SessionConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// RetentionDays: sessions idle longer than this are removed by cleanup.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
	// ReuseCeiling: sessions used more than this are removed by cleanup.
	ReuseCeiling int `mapstructure:"reuse_ceiling" yaml:"reuse_ceiling"`
	// SelectionCeiling: sessions at or above this use count are no longer
	// handed out, but stay on disk until cleanup.
	SelectionCeiling int `mapstructure:"selection_ceiling" yaml:"selection_ceiling"`
}

// DatabaseConfig holds the harvested-content database connection details.
// The URL binds to HIVECRAWL_DATABASE_URL; leaving it empty disables
// persistence (records are logged and dropped).
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// HarvestConfig tunes the per-run harvesting behavior.
type HarvestConfig struct {
	MaxPostsPerCommunity int `mapstructure:"max_posts_per_community" yaml:"max_posts_per_community"`
	ScrollPasses         int `mapstructure:"scroll_passes" yaml:"scroll_passes"`
	// CommunitiesPerMinute bounds how fast the run moves between
	// communities.
	CommunitiesPerMinute float64 `mapstructure:"communities_per_minute" yaml:"communities_per_minute"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "hivecrawl")
	v.SetDefault("logger.log_file", "hivecrawl.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Site --
	v.SetDefault("site.login_path", "/login")
	v.SetDefault("site.max_login_attempts", 3)
	v.SetDefault("site.checkpoint_wait", "5m")
	v.SetDefault("site.two_factor_timeout", "15s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.proxy.enabled", false)

	// -- Session store --
	v.SetDefault("session.dir", "sessions")
	v.SetDefault("session.retention_days", 30)
	v.SetDefault("session.reuse_ceiling", 100)
	v.SetDefault("session.selection_ceiling", 50)

	// -- Harvest --
	v.SetDefault("harvest.max_posts_per_community", 50)
	v.SetDefault("harvest.scroll_passes", 8)
	v.SetDefault("harvest.communities_per_minute", 2.0)
}

// NewFromViper creates a validated configuration instance from a viper
// object. Secrets are bound to environment variables here so they never have
// to appear in config files.
func NewFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("site.password", "HIVECRAWL_SITE_PASSWORD")
	v.BindEnv("browser.proxy.password", "HIVECRAWL_PROXY_PASSWORD")
	v.BindEnv("database.url", "HIVECRAWL_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Site.MaxLoginAttempts <= 0 {
		return fmt.Errorf("site.max_login_attempts must be a positive integer")
	}
	if c.Session.RetentionDays <= 0 {
		return fmt.Errorf("session.retention_days must be a positive integer")
	}
	if c.Session.SelectionCeiling <= 0 || c.Session.ReuseCeiling <= 0 {
		return fmt.Errorf("session ceilings must be positive integers")
	}
	if c.Session.SelectionCeiling > c.Session.ReuseCeiling {
		return fmt.Errorf("session.selection_ceiling must not exceed session.reuse_ceiling")
	}
	if c.Browser.Proxy.Enabled && c.Browser.Proxy.Address == "" {
		return fmt.Errorf("browser.proxy.address is required when the proxy is enabled")
	}
	if c.Harvest.MaxPostsPerCommunity <= 0 {
		return fmt.Errorf("harvest.max_posts_per_community must be a positive integer")
	}
	return nil
}
