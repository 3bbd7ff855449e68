// Package config loads birbpay settings from BIRBPAY_* environment variables.
package config

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/birbparty/birb-pay/internal/cache"
	"github.com/birbparty/birb-pay/internal/telemetry"
	"github.com/birbparty/birb-pay/sdk"
)

// Prefix is prepended to every environment variable name
const Prefix = "BIRBPAY"

// Cache backend names
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

// Config holds all birbpay configuration
type Config struct {
	BaseURL              string        `split_words:"true"`
	Token                string        `split_words:"true"`
	Timeout              time.Duration `split_words:"true" default:"30s"`
	WrapResponse         bool          `split_words:"true" default:"false"`
	Compression          bool          `split_words:"true" default:"false"`
	CompressionThreshold int           `split_words:"true" default:"1024"`
	Debug                bool          `split_words:"true" default:"false"`
	UserAgent            string        `split_words:"true"`

	// Cache selects the response cache backend
	Cache    string               `split_words:"true" default:"none"`
	Redis    cache.RedisConfig    `split_words:"true"`
	Postgres cache.PostgresConfig `split_words:"true"`

	Telemetry telemetry.Config `split_words:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Cache = strings.ToLower(strings.TrimSpace(cfg.Cache))
	return &cfg, nil
}

// Validate checks values that the SDK does not validate itself
func (c *Config) Validate() error {
	switch c.Cache {
	case CacheNone, CacheMemory, CacheRedis, CachePostgres:
	default:
		return fmt.Errorf("unknown cache backend %q (want none, memory, redis or postgres)", c.Cache)
	}
	return nil
}

// SDKConfig builds the client configuration these settings describe
func (c *Config) SDKConfig() (*sdk.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg, err := sdk.NewConfig(c.BaseURL)
	if err != nil {
		return nil, err
	}

	cfg.SetAuthToken(c.Token)
	cfg.SetWrapResponse(c.WrapResponse)
	cfg.SetCompressionEnabled(c.Compression)
	cfg.SetDebugLogging(c.Debug)

	if err := cfg.SetTimeout(c.Timeout); err != nil {
		return nil, err
	}
	if err := cfg.SetCompressionThreshold(c.CompressionThreshold); err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		if err := cfg.SetUserAgent(c.UserAgent); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Usage writes a table of the recognized environment variables to w
func Usage(w io.Writer) error {
	var cfg Config
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(Prefix, &cfg, tabs, envconfig.DefaultTableFormat); err != nil {
		return err
	}
	return tabs.Flush()
}
