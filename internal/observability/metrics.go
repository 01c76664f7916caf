package observability

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Login outcomes recorded on LoginCount.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeProviderError  = "provider_error"
	OutcomeInvalidClaims  = "invalid_claims"
	OutcomeStoreError     = "store_error"
)

// Metrics holds common metric instruments.
type Metrics struct {
	// HTTP server metrics
	HTTPRequestCount    metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPResponseSize    metric.Int64Histogram

	// Login flow metrics
	LoginCount            metric.Int64Counter
	AccountsCreated       metric.Int64Counter
	LinkRacesLost         metric.Int64Counter
	PendingRequests       metric.Int64Counter
	ProviderVerifyLatency metric.Float64Histogram
}

// InitMetrics initializes and returns metric instruments.
func InitMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("glogin")

	m := &Metrics{}

	var err error
	m.HTTPRequestCount, err = meter.Int64Counter(
		"http.server.request_count",
		metric.WithDescription("Number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request count counter: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request_duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	m.HTTPResponseSize, err = meter.Int64Histogram(
		"http.server.response_size",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create response size histogram: %w", err)
	}

	m.LoginCount, err = meter.Int64Counter(
		"glogin.login.count",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login counter: %w", err)
	}

	m.AccountsCreated, err = meter.Int64Counter(
		"glogin.accounts.created",
		metric.WithDescription("Local accounts created on first login"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounts counter: %w", err)
	}

	m.LinkRacesLost, err = meter.Int64Counter(
		"glogin.link.races_lost",
		metric.WithDescription("First logins whose account was orphaned by a concurrent login"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create race counter: %w", err)
	}

	m.PendingRequests, err = meter.Int64Counter(
		"glogin.pending_requests.created",
		metric.WithDescription("Authorization requests started"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending request counter: %w", err)
	}

	m.ProviderVerifyLatency, err = meter.Float64Histogram(
		"glogin.provider.verify_duration",
		metric.WithDescription("Latency of authorization code verification"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider latency histogram: %w", err)
	}

	return m, nil
}

// RecordLogin counts a login attempt. Nil-safe.
func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.LoginCount.Add(ctx, 1, metric.WithAttributes(AttrLoginOutcome.String(outcome)))
}

// RecordLinking counts what a successful login did to the account tables.
// Nil-safe.
func (m *Metrics) RecordLinking(ctx context.Context, created, raceLost bool) {
	if m == nil {
		return
	}
	if created {
		m.AccountsCreated.Add(ctx, 1)
	}
	if raceLost {
		m.AccountsCreated.Add(ctx, 1)
		m.LinkRacesLost.Add(ctx, 1)
	}
}

// RecordPendingRequest counts a started authorization. Nil-safe.
func (m *Metrics) RecordPendingRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.PendingRequests.Add(ctx, 1)
}

// RecordVerify records how long a provider verification took. Nil-safe.
func (m *Metrics) RecordVerify(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.ProviderVerifyLatency.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(AttrVerifyOK.Bool(ok)))
}

// initMeterProvider builds an SDK meter provider exporting through the
// configured exporter.
func initMeterProvider(ctx context.Context, cfg *Config) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter

	switch cfg.Exporter {
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		exporter = exp
	case ExporterOTLP:
		conn, err := dialCollector(ctx, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown exporter: %s", cfg.Exporter)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// dialCollector connects to an OTLP collector, waiting at most five seconds.
func dialCollector(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to OTLP collector at %s: %w", endpoint, err)
	}
	return conn, nil
}

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
