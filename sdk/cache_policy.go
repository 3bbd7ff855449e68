package sdk

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CachePolicy is a one-shot cache directive for a single GET call: how long
// to keep the response (TTL) and, optionally, the key to keep it under.
//
// A policy is attached to exactly one Request. The pipeline reads it when the
// call starts and clears it when the call ends, whatever the outcome, so a
// policy never leaks into a later call. Reusing a cleared policy without
// setting it again therefore disables caching for that call.
//
// Example:
//
//	req := &sdk.Request{
//	    Method: http.MethodGet,
//	    Path:   "configuration",
//	    Cache:  sdk.WithCache(time.Hour, "merchant-config"),
//	}
//	payload, err := client.Execute(ctx, req)
type CachePolicy struct {
	mu  sync.Mutex
	ttl time.Duration
	key string
}

// WithCache builds a staged policy. A non-positive ttl leaves the TTL unset
// and an empty key leaves the key unset, in which case the pipeline derives
// one from the request.
func WithCache(ttl time.Duration, key string) *CachePolicy {
	p := &CachePolicy{}
	p.SetTTL(ttl)
	p.SetCacheKey(key)
	return p
}

// SetTTL sets the time-to-live. Values are truncated to whole seconds; a
// result of zero or less unsets the TTL.
func (p *CachePolicy) SetTTL(ttl time.Duration) *CachePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	ttl = ttl.Truncate(time.Second)
	if ttl <= 0 {
		ttl = 0
	}
	p.ttl = ttl
	return p
}

// SetCacheKey sets an explicit cache key. An empty key unsets it.
func (p *CachePolicy) SetCacheKey(key string) *CachePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.key = key
	return p
}

// TTL returns the staged time-to-live and whether one is set.
func (p *CachePolicy) TTL() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ttl, p.ttl > 0
}

// CacheKey returns the staged key and whether one is set.
func (p *CachePolicy) CacheKey() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key, p.key != ""
}

// Staged reports whether either field is set.
func (p *CachePolicy) Staged() bool {
	_, staged := p.take(false)
	return staged
}

// Clear unsets both the TTL and the key in one step. Clearing a nil policy is
// a no-op.
func (p *CachePolicy) Clear() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ttl = 0
	p.key = ""
}

// cacheDirective is the immutable copy of a policy used during one call
type cacheDirective struct {
	ttl time.Duration
	key string
}

// take copies the policy under its lock, optionally clearing it in the same
// critical section.
func (p *CachePolicy) take(clear bool) (cacheDirective, bool) {
	if p == nil {
		return cacheDirective{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := cacheDirective{ttl: p.ttl, key: p.key}
	if clear {
		p.ttl = 0
		p.key = ""
	}
	return d, d.ttl > 0 || d.key != ""
}

// cacheKeyHeaders are the request headers that change what a GET returns.
// Authorization is part of the key so two merchants never share an entry; it
// only ever enters the key hashed.
var cacheKeyHeaders = []string{"Accept", "Accept-Language", "Authorization"}

// DeriveCacheKey computes the deterministic cache key used when a policy does
// not name one. It hashes the method, the resolved URL and the headers that
// influence the response, so no credential appears in the key itself.
func DeriveCacheKey(method, resolvedURL string, header map[string][]string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(resolvedURL)
	for _, name := range cacheKeyHeaders {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(header[name], ","))
	}
	return "birbpay:" + strings.ToLower(method) + ":" + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
