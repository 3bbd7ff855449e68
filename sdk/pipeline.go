package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HeaderRequestID carries the per-call request identifier
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/birbparty/birb-pay/sdk"
)

// Request describes one call through the pipeline.
//
// Example:
//
//	req := &sdk.Request{
//	    Method:         http.MethodGet,
//	    Path:           "payments/pay_123",
//	    ExpectedStatus: http.StatusOK,
//	    Into:           &payment,
//	}
type Request struct {
	// Method is the HTTP method, GET when empty
	Method string
	// Path is joined beneath the configured base URL and may carry a query
	Path string
	// Header holds caller headers; they win over every default
	Header http.Header
	// Body is sent as is, gzip-compressed when compression applies
	Body []byte
	// ExpectedStatus is the only accepted status, 200 when zero
	ExpectedStatus int
	// Cache is the one-shot cache directive for this call (GET only)
	Cache *CachePolicy
	// Into is the decode destination in decode mode
	Into interface{}
	// RawHandler turns the raw response into the payload in wrap mode
	RawHandler RawHandler
}

// NewJSONRequest builds a request whose body is v encoded as JSON.
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, newErrorf(KindConfigurationInvalid, err, "failed to encode request body: %v", err)
	}
	return &Request{Method: method, Path: path, Body: body}, nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r *Request) expectedStatus() int {
	if r.ExpectedStatus == 0 {
		return http.StatusOK
	}
	return r.ExpectedStatus
}

// Executor is implemented by Pipeline and Client.
type Executor interface {
	ExecuteAsync(ctx context.Context, req *Request) *Future[interface{}]
}

// Pipeline turns Requests into payloads: it resolves the URL, merges headers,
// compresses the body, consults the cache, calls the transport and hands the
// response to the ResponseWrapper. It never retries.
//
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	config     *Config
	transport  Transport
	cache      Cache
	logger     Logger
	observer   Observer
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewPipeline builds a pipeline over cfg. Without options it uses a
// RestyTransport, no cache, the logrus standard logger, a NoopObserver and
// the global OpenTelemetry tracer and propagator. A panic inside the observer
// is swallowed and never reaches the call.
func NewPipeline(cfg *Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, newError(KindConfigurationInvalid, "configuration is required", nil)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		config:     cfg,
		transport:  o.transport,
		cache:      o.cache,
		logger:     o.logger,
		observer:   NewCompositeObserver(o.observer),
		tracer:     o.tracer,
		propagator: o.propagator,
	}
	if p.transport == nil {
		p.transport = NewRestyTransport(o.httpClient, p.logger)
	}
	return p, nil
}

// Config returns the configuration the pipeline reads on every call.
func (p *Pipeline) Config() *Config {
	return p.config
}

// Execute runs req and waits for its result.
func (p *Pipeline) Execute(ctx context.Context, req *Request) (interface{}, error) {
	return p.ExecuteAsync(ctx, req).Result()
}

// ExecuteAsync runs req on its own goroutine and returns a future for the
// result. The request's cache policy is cleared once the call completes,
// whatever the outcome.
func (p *Pipeline) ExecuteAsync(ctx context.Context, req *Request) *Future[interface{}] {
	return goFuture(func() (interface{}, error) {
		return p.call(ctx, req)
	})
}

func (p *Pipeline) call(ctx context.Context, req *Request) (interface{}, error) {
	if req == nil {
		return nil, newError(KindConfigurationInvalid, "request is nil", nil)
	}
	defer req.Cache.Clear()

	method := req.method()
	path := Sanitize(req.Path)

	ctx, span := p.tracer.Start(ctx, "birbpay "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	p.observer.OnRequestStart(method, path)

	payload, err := p.run(ctx, p.config.snapshot(), method, req)

	p.observer.OnRequestEnd(method, path, time.Since(start), err)
	if err != nil {
		span.SetAttributes(attribute.String("birbpay.error_kind", KindOf(err).String()))
		span.SetStatus(codes.Error, Sanitize(err.Error()))
	}
	return payload, err
}

func (p *Pipeline) run(ctx context.Context, cfg configSnapshot, method string, req *Request) (interface{}, error) {
	directive, staged := req.Cache.take(false)

	resolved, err := cfg.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	header := p.mergeHeaders(ctx, cfg, req)
	requestID := header.Get(HeaderRequestID)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", Sanitize(resolved)),
		attribute.String("birbpay.request_id", requestID),
	)

	fail := func(err error) (interface{}, error) {
		if sdkErr, ok := err.(*Error); ok {
			sdkErr.withCall(method, resolved, requestID)
		}
		if cfg.debugLogging {
			errorf(p.logger, "birbpay: %s %s (request %s): %v", method, resolved, requestID, err)
		}
		return nil, err
	}

	body := req.Body
	if shouldCompress(cfg, body) {
		compressed, err := gzipBody(body)
		if err != nil {
			return fail(newErrorf(KindTransportFailure, err, "failed to compress request body: %v", err))
		}
		body = compressed
		header.Set("Content-Encoding", contentEncodingGzip)
	}

	wrapper := NewResponseWrapper(cfg.wrapResponse)

	useCache := method == http.MethodGet && staged && p.cache != nil
	var cacheKey string
	if useCache {
		cacheKey = directive.key
		if cacheKey == "" {
			cacheKey = DeriveCacheKey(method, resolved, header)
		}
		if cached, ok := p.lookup(ctx, cacheKey); ok {
			span.SetAttributes(attribute.Bool("birbpay.cache_hit", true))
			payload, err := wrapper.Handle(cached, req)
			if err != nil {
				return fail(err)
			}
			return payload, nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	resp, err := p.transport.Send(sendCtx, &TransportRequest{
		Method: method,
		URL:    resolved,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return fail(newErrorf(KindTransportFailure, err, "%s %s failed: %v", method, resolved, err))
	}
	if resp == nil {
		return fail(newErrorf(KindTransportFailure, nil, "%s %s: transport returned no response", method, resolved))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	payload, err := wrapper.Handle(resp, req)
	if err != nil {
		return fail(err)
	}
	if useCache {
		p.store(ctx, cacheKey, resp, directive.ttl)
	}
	return payload, nil
}

// mergeHeaders layers, lowest precedence first: ambient defaults, the
// configured default headers, the bearer token, trace context, then the
// caller's headers. A request ID is generated when none was given.
func (p *Pipeline) mergeHeaders(ctx context.Context, cfg configSnapshot, req *Request) http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	h.Set("User-Agent", cfg.userAgent)
	for k, vs := range cfg.defaultHeaders {
		h[k] = append([]string(nil), vs...)
	}
	if len(req.Body) > 0 {
		h.Set("Content-Type", "application/json")
	}
	if cfg.authToken != "" {
		h.Set("Authorization", "Bearer "+cfg.authToken)
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(h))

	for k, vs := range req.Header {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if h.Get(HeaderRequestID) == "" {
		h.Set(HeaderRequestID, uuid.NewString())
	}
	return h
}

// lookup reads and decodes a cached response. Backend failures and corrupt
// entries count as misses.
func (p *Pipeline) lookup(ctx context.Context, key string) (*Response, bool) {
	data, found, err := p.cache.Get(ctx, key)
	key = Sanitize(key)
	if err != nil {
		warnf(p.logger, "birbpay: cache lookup for %q failed, treating as miss: %v", key, err)
		p.observer.OnCacheMiss(key)
		return nil, false
	}
	if !found {
		p.observer.OnCacheMiss(key)
		return nil, false
	}
	resp, err := decodeCachedResponse(data)
	if err != nil {
		warnf(p.logger, "birbpay: discarding corrupt cache entry %q: %v", key, err)
		p.observer.OnCacheMiss(key)
		return nil, false
	}
	p.observer.OnCacheHit(key)
	return resp, true
}

func (p *Pipeline) store(ctx context.Context, key string, resp *Response, ttl time.Duration) {
	data, err := encodeCachedResponse(resp)
	if err != nil {
		warnf(p.logger, "birbpay: failed to encode response for cache key %q: %v", key, err)
		return
	}
	if err := p.cache.Set(ctx, key, data, ttl); err != nil {
		warnf(p.logger, "birbpay: cache store for %q failed, skipping: %v", key, err)
	}
}

// Option configures a Pipeline or Client.
type Option func(*options)

type options struct {
	transport  Transport
	httpClient *http.Client
	cache      Cache
	logger     Logger
	observer   Observer
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func defaultOptions() options {
	return options{
		logger:     defaultLogger(),
		observer:   &NoopObserver{},
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// WithTransport replaces the default RestyTransport.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithHTTPClient sets the http.Client the default RestyTransport sends
// through. Ignored when WithTransport is also given.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithCacheStore sets the cache GET responses are stored in when a request
// carries a cache policy. Without one, policies are cleared but ignored.
func WithCacheStore(c Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithLogger sets the logger for warnings and debug failure logs.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the observer notified of requests and cache lookups.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithTracer sets the tracer used for the per-call client span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithPropagator sets the propagator that injects trace context headers.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		if prop != nil {
			o.propagator = prop
		}
	}
}
