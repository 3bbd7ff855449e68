package sdk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/birb-pay/sdk/internal/sdktest"
)

// countingTransport records every request and answers with a fixed response
type countingTransport struct {
	mu       sync.Mutex
	calls    int
	requests []*TransportRequest
	resp     *Response
	err      error
}

func (c *countingTransport) Send(_ context.Context, req *TransportRequest) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *countingTransport) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// countingCache wraps a MemoryCache and counts reads and writes
type countingCache struct {
	*MemoryCache
	gets atomic.Int32
	sets atomic.Int32
}

func newCountingCache() *countingCache {
	return &countingCache{MemoryCache: NewMemoryCache()}
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	return c.MemoryCache.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets.Add(1)
	return c.MemoryCache.Set(ctx, key, value, ttl)
}

// brokenCache fails every operation
type brokenCache struct{}

var errCacheDown = errors.New("cache backend unavailable")

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}

func (brokenCache) Delete(context.Context, string) error {
	return errCacheDown
}

// newSuiteClient builds a client against the suite's TLS server with a null
// logger whose hook is returned for assertions.
func newSuiteClient(t *testing.T, ts *sdktest.TestSuite, opts ...Option) (*Client, *test.Hook) {
	t.Helper()
	cfg, err := NewConfig(ts.BaseURL)
	require.NoError(t, err)
	cfg.SetAuthToken(sdktest.TestToken)

	logger, hook := test.NewNullLogger()
	all := append([]Option{WithHTTPClient(ts.HTTPClient()), WithLogger(logger)}, opts...)
	client, err := NewClient(cfg, all...)
	require.NoError(t, err)
	return client, hook
}

// newFakeClient builds a client over an in-memory transport
func newFakeClient(t *testing.T, transport Transport, opts ...Option) (*Client, *test.Hook) {
	t.Helper()
	cfg, err := NewConfig("https://api.example.com/v2")
	require.NoError(t, err)
	cfg.SetAuthToken(sdktest.TestToken)

	logger, hook := test.NewNullLogger()
	all := append([]Option{WithTransport(transport), WithLogger(logger)}, opts...)
	client, err := NewClient(cfg, all...)
	require.NoError(t, err)
	return client, hook
}
