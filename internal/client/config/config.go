package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the storefront CLI.
//
// The env tags are relative to the STOREFRONT_ prefix.
type Config struct {
	APIBaseURL        string        `env:"API_BASE_URL"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	DBPath            string        `env:"DB_PATH"`
	LogLevel          string        `env:"LOG_LEVEL"`
	LogFormat         string        `env:"LOG_FORMAT"`
	PageSize          int           `env:"PAGE_SIZE"`
	TokenLifetimeMins int           `env:"TOKEN_LIFETIME_MINS"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://dummyjson.com"
	c.RequestTimeout = 10 * time.Second
	c.DBPath = "storefront.db"
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.PageSize = 12
	c.TokenLifetimeMins = 60
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api base url %q", ErrInvalidConfig, c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is empty", ErrInvalidConfig)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidConfig)
	}
	if c.TokenLifetimeMins < 0 {
		return fmt.Errorf("%w: token lifetime must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if given), the environment and command-line flags. Later
// sources take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
