// Package telemetry wires logging, tracing and metrics for the birbpay
// command.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Telemetry holds the initialized components
type Telemetry struct {
	Logger   *logrus.Logger
	Registry *prometheus.Registry
	Observer *PrometheusObserver

	provider   *sdktrace.TracerProvider
	fileLogger *FileLogger
}

// Init initializes all telemetry components. Logs go to logOut. When tracing
// is enabled the tracer provider and W3C propagator are installed globally.
func Init(ctx context.Context, cfg *Config, logOut io.Writer) (*Telemetry, error) {
	logger, fileLogger, err := NewLogger(cfg, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	provider, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		if fileLogger != nil {
			_ = fileLogger.Close()
		}
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if provider != nil {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	registry := prometheus.NewRegistry()

	t := &Telemetry{
		Logger:     logger,
		Registry:   registry,
		Observer:   NewPrometheusObserver(registry),
		provider:   provider,
		fileLogger: fileLogger,
	}

	logger.WithFields(logrus.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
		"tracing":     provider != nil,
	}).Debug("Telemetry initialized")

	return t, nil
}

// Tracer returns a tracer from the configured provider, or a no-op tracer
// when tracing is disabled.
func (t *Telemetry) Tracer(name string) trace.Tracer {
	if t.provider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return t.provider.Tracer(name)
}

// Shutdown flushes pending spans and closes open files
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error

	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			t.Logger.WithError(err).Error("Failed to close tracing")
			firstErr = err
		}
	}

	if t.fileLogger != nil {
		if err := t.fileLogger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
