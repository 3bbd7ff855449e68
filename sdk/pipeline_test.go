package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/birbparty/birb-pay/sdk/internal/sdktest"
)

func TestPipeline_CachedGetHitsTransportOnce(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	cache := newCountingCache()
	client, _ := newSuiteClient(t, ts, WithCacheStore(cache))

	first, err := client.Execute(ts.Context, &Request{
		Method: http.MethodGet,
		Path:   "configuration",
		Cache:  WithCache(60*time.Second, "cfg"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ts.Server.GetRequestCount())
	assert.Equal(t, int32(1), cache.sets.Load())

	second, err := client.Execute(ts.Context, &Request{
		Method: http.MethodGet,
		Path:   "configuration",
		Cache:  WithCache(60*time.Second, "cfg"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ts.Server.GetRequestCount(), "second call is served from the cache")
	assert.Equal(t, int32(1), cache.sets.Load())
	assert.Equal(t, first, second)
}

func TestPipeline_PolicyIsClearedAfterEveryCall(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.WithErrorResponse("GET "+sdktest.APIPrefix+"/broken", http.StatusInternalServerError, "internal", "boom")
	cache := newCountingCache()
	client, _ := newSuiteClient(t, ts, WithCacheStore(cache))

	t.Run("success", func(t *testing.T) {
		policy := WithCache(time.Minute, "ok")
		_, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: policy})
		require.NoError(t, err)
		assert.False(t, policy.Staged())
	})

	t.Run("status mismatch", func(t *testing.T) {
		policy := WithCache(time.Minute, "broken")
		_, err := client.Execute(ts.Context, &Request{Path: "broken", Cache: policy})
		require.Error(t, err)
		assert.Equal(t, KindStatusMismatch, KindOf(err))
		code, _ := StatusCode(err)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.False(t, policy.Staged())

		_, found, _ := cache.MemoryCache.Get(ts.Context, "broken")
		assert.False(t, found, "failed calls are not cached")
	})

	t.Run("invalid path", func(t *testing.T) {
		policy := WithCache(time.Minute, "abs")
		before := ts.Server.GetRequestCount()
		_, err := client.Execute(ts.Context, &Request{Path: "https://evil.example.com/", Cache: policy})
		assert.Equal(t, KindConfigurationInvalid, KindOf(err))
		assert.False(t, policy.Staged())
		assert.Equal(t, before, ts.Server.GetRequestCount())
	})

	t.Run("non-GET ignores the cache", func(t *testing.T) {
		policy := WithCache(time.Minute, "post")
		req, err := NewJSONRequest(http.MethodPost, "payments", map[string]int{"amount": 10})
		require.NoError(t, err)
		req.ExpectedStatus = http.StatusCreated
		req.Cache = policy

		_, err = client.Execute(ts.Context, req)
		require.NoError(t, err)
		assert.False(t, policy.Staged())
		_, found, _ := cache.MemoryCache.Get(ts.Context, "post")
		assert.False(t, found)
	})
}

func TestPipeline_DerivedCacheKey(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	cache := newCountingCache()
	client, _ := newSuiteClient(t, ts, WithCacheStore(cache))

	for i := 0; i < 3; i++ {
		_, err := client.Execute(ts.Context, &Request{Path: "payments/pay_1", Cache: WithCache(time.Minute, "")})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, ts.Server.GetRequestCount())
	assert.Equal(t, 1, cache.Len())
}

func TestPipeline_NoCacheStoreMeansNoCaching(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)

	for i := 0; i < 2; i++ {
		_, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "cfg")})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, ts.Server.GetRequestCount())
}

func TestPipeline_BrokenCacheIsNotFatal(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, hook := newSuiteClient(t, ts, WithCacheStore(brokenCache{}))

	payload, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "cfg")})
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Equal(t, 1, ts.Server.GetRequestCount())

	require.Len(t, hook.AllEntries(), 2, "one warning for the lookup, one for the store")
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
	}
}

func TestPipeline_HeaderMerge(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)
	require.NoError(t, client.Config().SetDefaultHeader("X-Merchant-Id", "m_1"))
	require.NoError(t, client.Config().SetDefaultHeader("Accept-Language", "de"))

	t.Run("defaults", func(t *testing.T) {
		_, err := client.Execute(ts.Context, &Request{Path: "configuration"})
		require.NoError(t, err)

		h := ts.RequireLastRequest().Headers
		sdktest.AssertHeader(t, h, "Authorization", "Bearer "+sdktest.TestToken)
		sdktest.AssertHeader(t, h, "Accept", "application/json")
		sdktest.AssertHeader(t, h, "User-Agent", "birb-pay-go-sdk/"+SDKVersion)
		sdktest.AssertHeader(t, h, "X-Merchant-Id", "m_1")
		sdktest.AssertHeader(t, h, "Accept-Language", "de")
		assert.NotEmpty(t, h.Get(HeaderRequestID))
		assert.Empty(t, h.Get("Content-Type"), "no body, no content type")
	})

	t.Run("caller wins", func(t *testing.T) {
		_, err := client.Execute(ts.Context, &Request{
			Path: "configuration",
			Header: http.Header{
				"authorization":   {"Bearer caller-token"},
				"Accept-Language": {"fr"},
				"X-Request-Id":    {"req-42"},
			},
		})
		require.NoError(t, err)

		h := ts.RequireLastRequest().Headers
		sdktest.AssertHeader(t, h, "Authorization", "Bearer caller-token")
		sdktest.AssertHeader(t, h, "Accept-Language", "fr")
		sdktest.AssertHeader(t, h, HeaderRequestID, "req-42")
		sdktest.AssertHeader(t, h, "X-Merchant-Id", "m_1")
	})

	t.Run("no token, no authorization", func(t *testing.T) {
		client.Config().SetAuthToken("")
		defer client.Config().SetAuthToken(sdktest.TestToken)

		_, err := client.Execute(ts.Context, &Request{Path: "configuration"})
		require.NoError(t, err)
		assert.Empty(t, ts.RequireLastRequest().Headers.Get("Authorization"))
	})
}

func TestPipeline_Compression(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)
	cfg := client.Config()
	require.NoError(t, cfg.SetCompressionThreshold(64))

	large := sdktest.LargeJSON(256)
	small := []byte(`{"amount":1}`)

	tests := []struct {
		name       string
		enabled    bool
		body       []byte
		compressed bool
	}{
		{"above threshold", true, large, true},
		{"below threshold", true, small, false},
		{"disabled", false, large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.SetCompressionEnabled(tt.enabled)

			_, err := client.Execute(ts.Context, &Request{
				Method:         http.MethodPost,
				Path:           "payments",
				Body:           tt.body,
				ExpectedStatus: http.StatusCreated,
			})
			require.NoError(t, err)

			rec := ts.RequireLastRequest()
			sdktest.AssertHeader(t, rec.Headers, "Content-Type", "application/json")
			if !tt.compressed {
				assert.Empty(t, rec.Headers.Get("Content-Encoding"))
				assert.Equal(t, tt.body, rec.Body)
				return
			}
			sdktest.AssertHeader(t, rec.Headers, "Content-Encoding", "gzip")
			plain, err := sdktest.GunzipBody(rec.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, plain)
		})
	}
}

func TestPipeline_QueryAndEscapedPath(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)

	_, err := client.Execute(ts.Context, &Request{Path: BuildPath("payments/{0}", "pay 1/a") + "?expand=refunds"})
	require.NoError(t, err)

	rec := ts.RequireLastRequest()
	assert.Equal(t, sdktest.APIPrefix+"/payments/pay%201%2Fa", rec.Path)
	assert.Equal(t, "expand=refunds", rec.Query)
}

func TestPipeline_TransportFailure(t *testing.T) {
	transport := &countingTransport{err: fmt.Errorf("dial tcp: connection refused (Authorization: Bearer %s)", sdktest.TestToken)}
	client, hook := newFakeClient(t, transport)
	client.Config().SetDebugLogging(true)
	policy := WithCache(time.Minute, "k")

	_, err := client.Execute(context.Background(), &Request{Path: "configuration", Cache: policy})
	require.Error(t, err)

	assert.Equal(t, KindTransportFailure, KindOf(err))
	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.NotContains(t, err.Error(), sdktest.TestToken)
	assert.Equal(t, 1, transport.Calls(), "transport failures are never retried")
	assert.False(t, policy.Staged())

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.NotContains(t, hook.LastEntry().Message, sdktest.TestToken)
}

func TestPipeline_TransportFailureIsQuietWithoutDebug(t *testing.T) {
	client, hook := newFakeClient(t, &countingTransport{err: errors.New("reset by peer")})

	_, err := client.Execute(context.Background(), &Request{Path: "configuration"})
	assert.Equal(t, KindTransportFailure, KindOf(err))
	assert.Empty(t, hook.AllEntries())
}

func TestPipeline_Timeout(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.WithDelayedResponse("GET "+sdktest.APIPrefix+"/slow", 2*time.Second, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]string{"status": "late"}
	})
	client, _ := newSuiteClient(t, ts)
	require.NoError(t, client.Config().SetTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.Execute(ts.Context, &Request{Path: "slow"})

	assert.Equal(t, KindTransportFailure, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)

	ctx, cancel := context.WithCancel(ts.Context)
	cancel()

	_, err := client.Execute(ctx, &Request{Path: "configuration"})
	assert.Equal(t, KindTransportFailure, KindOf(err))
}

func TestPipeline_ErrorCarriesCallDetails(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.WithErrorResponse("GET "+sdktest.APIPrefix+"/payments/missing", http.StatusNotFound, "not_found", "no such payment")
	client, _ := newSuiteClient(t, ts)

	_, err := client.Execute(ts.Context, &Request{
		Path:   "payments/missing",
		Header: http.Header{HeaderRequestID: {"req-7"}},
	})

	var sdkErr *Error
	require.True(t, errors.As(err, &sdkErr))
	assert.Equal(t, http.MethodGet, sdkErr.Method)
	assert.Equal(t, ts.BaseURL+"/payments/missing", sdkErr.URL)
	assert.Equal(t, "req-7", sdkErr.RequestID)

	body, ok := ErrorBody[sdktest.APIError](err)
	require.True(t, ok)
	assert.Equal(t, "not_found", body.Code)
}

func TestPipeline_WrapMode(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	cache := newCountingCache()
	client, _ := newSuiteClient(t, ts, WithCacheStore(cache))
	client.Config().SetWrapResponse(true)

	payload, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "raw")})
	require.NoError(t, err)
	resp, ok := payload.(*Response)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.FromCache)

	payload, err = client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "raw")})
	require.NoError(t, err)
	cached := payload.(*Response)
	assert.True(t, cached.FromCache)
	assert.Equal(t, resp.Body, cached.Body)
	assert.Equal(t, 1, ts.Server.GetRequestCount())
}

func TestPipeline_NoContent(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)

	for _, wrap := range []bool{false, true} {
		client.Config().SetWrapResponse(wrap)
		payload, err := client.Execute(ts.Context, &Request{
			Method:         http.MethodDelete,
			Path:           "payments/pay_1",
			ExpectedStatus: http.StatusNoContent,
		})
		require.NoError(t, err)
		assert.Nil(t, payload, "wrap=%v", wrap)
	}
}

func TestPipeline_AsyncMatchesSync(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts)

	blocking, err := client.Execute(ts.Context, &Request{Path: "payments/pay_9"})
	require.NoError(t, err)
	async, err := client.ExecuteAsync(ts.Context, &Request{Path: "payments/pay_9"}).Await(ts.Context)
	require.NoError(t, err)

	assert.Equal(t, blocking, async)
}

func TestPipeline_ConcurrentCalls(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts, WithCacheStore(NewMemoryCache()))

	helper := sdktest.NewConcurrentTestHelper(t)
	helper.Run(20, func(id int) error {
		payment, err := Do[sdktest.Payment](ts.Context, client, &Request{
			Path:  BuildPath("payments/{0}", fmt.Sprintf("pay_%d", id%5)),
			Cache: WithCache(time.Minute, ""),
		})
		if err != nil {
			return err
		}
		if payment.ID != fmt.Sprintf("pay_%d", id%5) {
			return fmt.Errorf("got payment %s", payment.ID)
		}
		return nil
	})
	helper.Wait()

	assert.LessOrEqual(t, ts.Server.GetRequestCount(), 20)
}

func TestPipeline_NilRequest(t *testing.T) {
	client, _ := newFakeClient(t, &countingTransport{})
	_, err := client.Execute(context.Background(), nil)
	assert.Equal(t, KindConfigurationInvalid, KindOf(err))
}

func TestNewPipeline_RequiresConfig(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.Equal(t, KindConfigurationInvalid, KindOf(err))
}

func TestPipeline_Tracing(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	client, _ := newSuiteClient(t, ts,
		WithTracer(tp.Tracer("test")),
		WithPropagator(propagation.TraceContext{}),
	)

	_, err := client.Execute(ts.Context, &Request{Path: "configuration"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "birbpay GET", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.NotEmpty(t, ts.RequireLastRequest().Headers.Get("Traceparent"))
}

func TestPipeline_Observer(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	metrics := NewMetricsCollector()
	client, _ := newSuiteClient(t, ts, WithCacheStore(NewMemoryCache()), WithObserver(metrics))

	for i := 0; i < 2; i++ {
		_, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "cfg")})
		require.NoError(t, err)
	}
	_, err := client.Execute(ts.Context, &Request{Path: "nowhere"})
	require.Error(t, err)

	snapshot := metrics.GetMetrics()
	assert.Equal(t, int64(1), snapshot["cache_hits"])
	assert.Equal(t, int64(1), snapshot["cache_misses"])
	assert.Equal(t, int64(2), snapshot["requests"].(map[string]int64)["GET configuration"])
	assert.Equal(t, int64(1), snapshot["error_kinds"].(map[string]int64)["status_mismatch"])
}

func TestPipeline_PanickingObserver(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts, WithCacheStore(NewMemoryCache()), WithObserver(&panickingObserver{}))

	for i := 0; i < 2; i++ {
		payload, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "cfg")})
		require.NoError(t, err, "call %d", i)
		assert.NotNil(t, payload)
	}
	assert.Equal(t, 1, ts.Server.GetRequestCount(), "the cache hit still happened")
}

func TestPipeline_PanickingRawHandler(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	client, _ := newSuiteClient(t, ts, WithCacheStore(NewMemoryCache()))
	client.Config().SetWrapResponse(true)

	policy := WithCache(time.Minute, "cfg")
	_, err := client.Execute(ts.Context, &Request{
		Path:  "configuration",
		Cache: policy,
		RawHandler: func(*Response) (interface{}, error) {
			panic("handler bug")
		},
	})

	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Contains(t, err.Error(), "handler bug")
	assert.False(t, policy.Staged(), "the policy is cleared even when the call panics")
}

// keyRecorder records the cache keys it is notified about
type keyRecorder struct {
	NoopObserver
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) OnCacheMiss(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
}

func (k *keyRecorder) OnCacheHit(key string) {
	k.OnCacheMiss(key)
}

func TestPipeline_ObserverSeesSanitizedCacheKeys(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	recorder := &keyRecorder{}
	client, _ := newSuiteClient(t, ts, WithCacheStore(NewMemoryCache()), WithObserver(recorder))

	for i := 0; i < 2; i++ {
		_, err := client.Execute(ts.Context, &Request{
			Path:  "configuration",
			Cache: WithCache(time.Minute, "cfg?api_key=sk_live_123"),
		})
		require.NoError(t, err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, []string{"cfg?api_key=***", "cfg?api_key=***"}, recorder.keys)
}
