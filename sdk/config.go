package sdk

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCompressionThreshold is the body size, in bytes, from which bodies
	// are gzip-compressed once compression is enabled.
	DefaultCompressionThreshold = 1024

	// DefaultTimeout bounds a single transport call.
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection and runtime settings of a client.
//
// The base URL is fixed by NewConfig and can never change afterwards. Every
// other setting has its own typed setter that validates the new value; a
// rejected value leaves the configuration untouched and returns an *Error of
// kind KindConfigurationInvalid.
//
// A Config is safe for concurrent use. Each request reads a snapshot taken
// when it starts, so a setter running concurrently with a request never gives
// that request a half-updated view.
//
// Example:
//
//	cfg, err := sdk.NewConfig("https://api.payments.example.com/v2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.SetAuthToken(os.Getenv("MERCHANT_TOKEN"))
//	cfg.SetCompressionEnabled(true)
//	if err := cfg.SetCompressionThreshold(4096); err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	mu sync.RWMutex

	baseURL *url.URL

	authToken            string
	wrapResponse         bool
	compressionEnabled   bool
	compressionThreshold int
	debugLogging         bool
	timeout              time.Duration
	userAgent            string
	defaultHeaders       http.Header
}

// configSnapshot is the read-only view a single request works with
type configSnapshot struct {
	baseURL              url.URL
	authToken            string
	wrapResponse         bool
	compressionEnabled   bool
	compressionThreshold int
	debugLogging         bool
	timeout              time.Duration
	userAgent            string
	defaultHeaders       http.Header
}

// NewConfig creates a configuration for the backend at baseURL, which must be
// an absolute https URL with a host. Query strings and fragments are not
// allowed; a path prefix such as "/v2" is kept and every request path is
// joined beneath it.
func NewConfig(baseURL string) (*Config, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Config{
		baseURL:              u,
		compressionThreshold: DefaultCompressionThreshold,
		timeout:              DefaultTimeout,
		userAgent:            "birb-pay-go-sdk/" + SDKVersion,
		defaultHeaders:       make(http.Header),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, newError(KindConfigurationInvalid, "base URL is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newErrorf(KindConfigurationInvalid, err, "invalid base URL %q: %v", raw, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return nil, newErrorf(KindConfigurationInvalid, nil, "base URL %q must use https", raw)
	}
	if u.Host == "" {
		return nil, newErrorf(KindConfigurationInvalid, nil, "base URL %q has no host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, newErrorf(KindConfigurationInvalid, nil, "base URL %q must not carry a query or fragment", raw)
	}
	if u.User != nil {
		return nil, newErrorf(KindConfigurationInvalid, nil, "base URL must not embed credentials")
	}
	u.Scheme = "https"
	return u, nil
}

// BaseURL returns the base URL the configuration was created with.
func (c *Config) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL.String()
}

// SetBaseURL always fails: the base URL is fixed at construction. Create a new
// Config and client to talk to another backend.
func (c *Config) SetBaseURL(string) error {
	return newError(KindConfigurationInvalid, "base URL is immutable after construction", nil)
}

// AuthToken returns the bearer token, empty when unauthenticated.
func (c *Config) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// SetAuthToken sets the bearer token sent as "Authorization: Bearer <token>".
// An empty token disables the header.
func (c *Config) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = strings.TrimSpace(token)
}

// WrapResponse reports whether calls return the raw response instead of a
// decoded payload.
func (c *Config) WrapResponse() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wrapResponse
}

// SetWrapResponse toggles wrap-response mode.
func (c *Config) SetWrapResponse(wrap bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrapResponse = wrap
}

// CompressionEnabled reports whether request bodies may be compressed.
func (c *Config) CompressionEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compressionEnabled
}

// SetCompressionEnabled toggles gzip compression of request bodies.
func (c *Config) SetCompressionEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressionEnabled = enabled
}

// CompressionThreshold returns the minimum body size, in bytes, that gets
// compressed.
func (c *Config) CompressionThreshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compressionThreshold
}

// SetCompressionThreshold sets the minimum body size that gets compressed.
// Zero compresses every non-empty body; negative values are rejected.
func (c *Config) SetCompressionThreshold(bytes int) error {
	if bytes < 0 {
		return newErrorf(KindConfigurationInvalid, nil, "compression threshold must be non-negative, got %d", bytes)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressionThreshold = bytes
	return nil
}

// DebugLogging reports whether request failures are logged.
func (c *Config) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debugLogging
}

// SetDebugLogging toggles logging of request failures.
func (c *Config) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugLogging = enabled
}

// Timeout returns the per-call transport timeout.
func (c *Config) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// SetTimeout sets the per-call transport timeout. It must be positive.
func (c *Config) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return newErrorf(KindConfigurationInvalid, nil, "timeout must be positive, got %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
	return nil
}

// UserAgent returns the User-Agent sent with every request.
func (c *Config) UserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent
}

// SetUserAgent replaces the User-Agent header value. It must not be empty.
func (c *Config) SetUserAgent(ua string) error {
	if strings.TrimSpace(ua) == "" {
		return newError(KindConfigurationInvalid, "user agent must not be empty", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = ua
	return nil
}

// SetDefaultHeader adds a header sent with every request, below the caller's
// own headers in precedence. Authorization cannot be set this way; use
// SetAuthToken.
func (c *Config) SetDefaultHeader(key, value string) error {
	ck := http.CanonicalHeaderKey(strings.TrimSpace(key))
	if ck == "" {
		return newError(KindConfigurationInvalid, "header name must not be empty", nil)
	}
	if ck == "Authorization" {
		return newError(KindConfigurationInvalid, "set the Authorization header with SetAuthToken", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultHeaders.Set(ck, value)
	return nil
}

func (c *Config) snapshot() configSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return configSnapshot{
		baseURL:              *c.baseURL,
		authToken:            c.authToken,
		wrapResponse:         c.wrapResponse,
		compressionEnabled:   c.compressionEnabled,
		compressionThreshold: c.compressionThreshold,
		debugLogging:         c.debugLogging,
		timeout:              c.timeout,
		userAgent:            c.userAgent,
		defaultHeaders:       c.defaultHeaders.Clone(),
	}
}

// resolve joins a relative request path (optionally with a query string)
// beneath the base URL without doubling or dropping the separator.
func (s configSnapshot) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", newErrorf(KindConfigurationInvalid, err, "invalid request path %q: %v", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", newErrorf(KindConfigurationInvalid, nil, "request path %q must be relative to the base URL", path)
	}

	u := s.baseURL
	joined := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.EscapedPath(), "/")
	u.Path, u.RawPath, u.RawQuery, u.Fragment = "", "", "", ""

	resolved := u.String() + joined
	if ref.RawQuery != "" {
		resolved += "?" + ref.RawQuery
	}
	return resolved, nil
}
