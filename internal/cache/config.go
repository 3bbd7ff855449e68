package cache

import (
	"fmt"
	"net/url"
	"time"
)

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	// Redis connection settings
	Host     string `split_words:"true" default:"localhost"`
	Port     int    `split_words:"true" default:"6379"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true" default:"0"`

	// Connection pool settings
	MaxRetries   int           `split_words:"true" default:"3"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `split_words:"true" default:"3s"`
	WriteTimeout time.Duration `split_words:"true" default:"3s"`
	PoolSize     int           `split_words:"true" default:"10"`
	MinIdleConns int           `split_words:"true" default:"1"`
	MaxIdleTime  time.Duration `split_words:"true" default:"5m"`

	// KeyPrefix namespaces every key the SDK writes
	KeyPrefix string `split_words:"true" default:"birbpay:"`

	// Applied when a call stages a policy without a TTL
	DefaultTTL time.Duration `split_words:"true" default:"1h"`
}

// DefaultRedisConfig returns the configuration used when nothing is set
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
		MaxIdleTime:  5 * time.Minute,
		KeyPrefix:    "birbpay:",
		DefaultTTL:   time.Hour,
	}
}

// Address returns the Redis server address
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig holds PostgreSQL cache configuration
type PostgresConfig struct {
	// URL overrides the individual connection fields when set
	URL string `split_words:"true"`

	Host     string `split_words:"true" default:"localhost"`
	Port     int    `split_words:"true" default:"5432"`
	User     string `split_words:"true" default:"birb"`
	Password string `split_words:"true"`
	Database string `split_words:"true" default:"birbpay"`
	SSLMode  string `split_words:"true" default:"disable"`

	MaxConns        int32         `split_words:"true" default:"10"`
	MinConns        int32         `split_words:"true" default:"1"`
	MaxConnLifetime time.Duration `split_words:"true" default:"1h"`
	MaxConnIdleTime time.Duration `split_words:"true" default:"30m"`

	Table      string        `split_words:"true" default:"sdk_response_cache"`
	DefaultTTL time.Duration `split_words:"true" default:"1h"`
}

// DefaultPostgresConfig returns the configuration used when nothing is set
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "birb",
		Database:        "birbpay",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		Table:           "sdk_response_cache",
		DefaultTTL:      time.Hour,
	}
}

// ConnectionString returns a PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c *PostgresConfig) tableOrDefault() string {
	if c.Table == "" {
		return DefaultPostgresConfig().Table
	}
	return c.Table
}
