package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// shutdownTimeout bounds Cleanup.
const shutdownTimeout = 5 * time.Second

// Telemetry carries the tracer and meter providers and the login
// instruments registered on the meter provider. Metrics is never nil for a
// Telemetry returned by Init or New; with the exporter set to "none" the
// instruments record into a no-op provider.
type Telemetry struct {
	config         *Config
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metrics        *Metrics

	shutdowns    []func(context.Context) error
	shutdownOnce sync.Once
	shutdownErr  error
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// Init sets up tracing and metrics for cfg and installs the providers as the
// otel globals so spans started in the provider client and the linking
// service are exported. The returned func flushes and stops the exporters.
func Init(ctx context.Context, cfg *Config) (*Telemetry, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	tel := &Telemetry{
		config:         cfg,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}

	if cfg.ShouldEnable() && cfg.TracesEnabled {
		tp, err := initTracerProvider(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		tel.tracerProvider = tp
		tel.onShutdown(tp)
		otel.SetTracerProvider(tp)
	}

	if cfg.ShouldEnable() && cfg.MetricsEnabled {
		mp, err := initMeterProvider(ctx, cfg)
		if err != nil {
			tel.Cleanup()
			return nil, nil, err
		}
		tel.meterProvider = mp
		tel.onShutdown(mp)
		otel.SetMeterProvider(mp)
	}

	metrics, err := InitMetrics(tel.meterProvider)
	if err != nil {
		tel.Cleanup()
		return nil, nil, err
	}
	tel.metrics = metrics

	return tel, tel.Cleanup, nil
}

// New wraps providers the caller owns and registers the login instruments
// on mp. Shutdown does not stop the providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	metrics, err := InitMetrics(mp)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig()
	cfg.TracesEnabled = true
	cfg.MetricsEnabled = true
	return &Telemetry{
		config:         cfg,
		tracerProvider: tp,
		meterProvider:  mp,
		metrics:        metrics,
	}, nil
}

func (t *Telemetry) onShutdown(p any) {
	if s, ok := p.(shutdowner); ok {
		t.shutdowns = append(t.shutdowns, s.Shutdown)
	}
}

// TracerProvider returns the tracer provider, a no-op one when unset.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t.tracerProvider == nil {
		return tracenoop.NewTracerProvider()
	}
	return t.tracerProvider
}

// MeterProvider returns the meter provider, a no-op one when unset.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t.meterProvider == nil {
		return metricnoop.NewMeterProvider()
	}
	return t.meterProvider
}

// Metrics returns the login and HTTP instruments.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Shutdown stops the exporters in the order they were started. Metric
// readers export their last collection on shutdown. Only the first call
// does any work.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		var errs []error
		for _, fn := range t.shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		t.shutdownErr = errors.Join(errs...)
	})
	return t.shutdownErr
}

// Cleanup shuts down with a bounded timeout, for use with defer.
func (t *Telemetry) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = t.Shutdown(ctx)
}

// Config returns the telemetry configuration.
func (t *Telemetry) Config() *Config {
	return t.config
}
