package telemetry

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/birbparty/birb-pay/sdk"
)

const metricsNamespace = "birbpay_sdk"

// PrometheusObserver records pipeline activity as Prometheus metrics. It
// implements sdk.Observer.
type PrometheusObserver struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	inFlight        prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

var _ sdk.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers the SDK metrics with reg
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)

	return &PrometheusObserver{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total number of requests issued through the pipeline",
		}, []string{"method", "outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of pipeline calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of failed calls by error kind",
		}, []string{"kind"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "requests_in_flight",
			Help:      "Calls currently in progress",
		}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		}),
	}
}

// OnRequestStart implements sdk.Observer
func (o *PrometheusObserver) OnRequestStart(method, path string) {
	o.inFlight.Inc()
}

// OnRequestEnd implements sdk.Observer
func (o *PrometheusObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	o.inFlight.Dec()
	o.requestDuration.WithLabelValues(method).Observe(duration.Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		o.errorsTotal.WithLabelValues(sdk.KindOf(err).String()).Inc()
	}
	o.requestsTotal.WithLabelValues(method, outcome).Inc()
}

// OnCacheHit implements sdk.Observer
func (o *PrometheusObserver) OnCacheHit(key string) {
	o.cacheHits.Inc()
}

// OnCacheMiss implements sdk.Observer
func (o *PrometheusObserver) OnCacheMiss(key string) {
	o.cacheMisses.Inc()
}

// WriteMetrics writes everything gathered from g in the Prometheus text
// exposition format.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
