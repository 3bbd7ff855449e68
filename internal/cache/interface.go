// Package cache provides shared response cache backends for the SDK
// pipeline. Both backends implement sdk.Cache.
package cache

import (
	"context"

	"github.com/birbparty/birb-pay/sdk"
)

// Store is an sdk.Cache backed by an external service
type Store interface {
	sdk.Cache

	// Ping checks if the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend connections
	Close() error
}

var (
	_ Store = (*RedisCache)(nil)
	_ Store = (*PostgresCache)(nil)
)

// Common errors
var (
	ErrCacheClosed = NewCacheError("cache is closed", false)
)

// CacheError represents a cache-specific error
type CacheError struct {
	Message    string
	Retryable  bool
	Underlying error
}

// NewCacheError creates a new cache error
func NewCacheError(message string, retryable bool) *CacheError {
	return &CacheError{
		Message:   message,
		Retryable: retryable,
	}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Underlying != nil {
		return e.Message + ": " + e.Underlying.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CacheError) Unwrap() error {
	return e.Underlying
}

// WithError adds an underlying error
func (e *CacheError) WithError(err error) *CacheError {
	e.Underlying = err
	return e
}

// IsRetryable returns whether the error is retryable
func (e *CacheError) IsRetryable() bool {
	return e.Retryable
}
