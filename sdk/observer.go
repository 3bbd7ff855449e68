package sdk

import (
	"sync"
	"time"
)

// Observer provides hooks for monitoring pipeline calls.
// Implement this interface to track latencies and error rates, or to feed
// cache statistics into your observability stack.
//
// Observer methods run on the calling goroutine and should be fast and
// non-blocking. Paths and keys passed to them are already sanitized.
//
// Example implementation:
//
//	type LogObserver struct {
//	    logger *logrus.Logger
//	}
//
//	func (o *LogObserver) OnRequestStart(method, path string) {
//	    o.logger.Debugf("[START] %s %s", method, path)
//	}
//
//	func (o *LogObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
//	    if err != nil {
//	        o.logger.Warnf("[ERROR] %s %s - %v (took %v)", method, path, err, duration)
//	    }
//	}
//
//	client, err := sdk.NewClient(cfg, sdk.WithObserver(&LogObserver{logger: logrus.New()}))
type Observer interface {
	// OnRequestStart is called when a call enters the pipeline.
	OnRequestStart(method, path string)

	// OnRequestEnd is called when a call completes, with err nil on success.
	// Cache hits are reported too, with the short duration they take.
	OnRequestEnd(method, path string, duration time.Duration, err error)

	// OnCacheHit is called when a staged GET is served from the cache.
	OnCacheHit(key string)

	// OnCacheMiss is called when a staged GET finds nothing usable in the
	// cache, including when the cache backend failed.
	OnCacheMiss(key string)
}

// NoopObserver is a no-op implementation of Observer.
// This is the default observer used when none is configured.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(method, path string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {}

// OnCacheHit does nothing
func (n *NoopObserver) OnCacheHit(key string) {}

// OnCacheMiss does nothing
func (n *NoopObserver) OnCacheMiss(key string) {}

// MetricsCollector is a simple in-memory Observer. It counts requests and
// errors per endpoint and per error kind, keeps latencies, and tracks the
// cache hit rate.
//
// It is intended for debugging and tests; for production export use a
// Prometheus-backed Observer.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	client, _ := sdk.NewClient(cfg, sdk.WithObserver(metrics))
//	// Use client...
//
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Cache hit rate: %.2f%%\n", snapshot["cache_hit_rate"].(float64)*100)
type MetricsCollector struct {
	mu             sync.RWMutex
	requestCount   map[string]int64
	latencies      map[string][]time.Duration
	errorCount     map[string]int64
	errorKinds     map[string]int64
	cacheHitCount  int64
	cacheMissCount int64
}

// NewMetricsCollector creates a new metrics collector.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		errorCount:   make(map[string]int64),
		errorKinds:   make(map[string]int64),
	}
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(method, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+path]++
}

// OnRequestEnd records request duration and errors
func (m *MetricsCollector) OnRequestEnd(method, path string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + path
	m.latencies[key] = append(m.latencies[key], duration)
	if err != nil {
		m.errorCount[key]++
		m.errorKinds[KindOf(err).String()]++
	}
}

// OnCacheHit increments cache hit count
func (m *MetricsCollector) OnCacheHit(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHitCount++
}

// OnCacheMiss increments cache miss count
func (m *MetricsCollector) OnCacheMiss(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMissCount++
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of endpoint to request count
//   - "latencies": Map of endpoint to latency measurements
//   - "errors": Map of endpoint to error count
//   - "error_kinds": Map of error kind to count
//   - "cache_hits": Total cache hits
//   - "cache_misses": Total cache misses
//   - "cache_hit_rate": Calculated hit rate (0.0 to 1.0)
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requestsCopy := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requestsCopy[k] = v
	}

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}

	kindsCopy := make(map[string]int64, len(m.errorKinds))
	for k, v := range m.errorKinds {
		kindsCopy[k] = v
	}

	cacheTotal := m.cacheHitCount + m.cacheMissCount
	cacheHitRate := float64(0)
	if cacheTotal > 0 {
		cacheHitRate = float64(m.cacheHitCount) / float64(cacheTotal)
	}

	return map[string]interface{}{
		"requests":       requestsCopy,
		"latencies":      latenciesCopy,
		"errors":         errorsCopy,
		"error_kinds":    kindsCopy,
		"cache_hits":     m.cacheHitCount,
		"cache_misses":   m.cacheMissCount,
		"cache_hit_rate": cacheHitRate,
	}
}

// CompositeObserver fans every hook out to several observers in order.
// A panicking observer is recovered so it cannot break the others or the
// call being observed.
//
// Example:
//
//	observer := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    telemetry.NewPrometheusObserver(prometheus.DefaultRegisterer),
//	)
//	client, _ := sdk.NewClient(cfg, sdk.WithObserver(observer))
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				// Observer panicked, ignore
				_ = recover()
			}()
			fn(obs)
		}()
	}
}

// OnRequestStart notifies all observers of request start.
func (c *CompositeObserver) OnRequestStart(method, path string) {
	c.each(func(o Observer) { o.OnRequestStart(method, path) })
}

// OnRequestEnd notifies all observers of request completion.
func (c *CompositeObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	c.each(func(o Observer) { o.OnRequestEnd(method, path, duration, err) })
}

// OnCacheHit notifies all observers
func (c *CompositeObserver) OnCacheHit(key string) {
	c.each(func(o Observer) { o.OnCacheHit(key) })
}

// OnCacheMiss notifies all observers
func (c *CompositeObserver) OnCacheMiss(key string) {
	c.each(func(o Observer) { o.OnCacheMiss(key) })
}
