package metrics

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Mutation kinds recorded by RecordMutation.
const (
	MutationPost    = "post"
	MutationEdit    = "edit"
	MutationComment = "comment"
	MutationFollow  = "follow"
	MutationSignup  = "signup"
)

// Metrics holds the application instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequests    metric.Int64Counter
	HTTPDuration    metric.Float64Histogram
	PageCacheHits   metric.Int64Counter
	PageCacheMisses metric.Int64Counter
	Mutations       metric.Int64Counter
}

// Setup builds the meter provider on a private Prometheus registry and
// returns the handler that serves it.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := prom.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"yt_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"yt_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, err
	}

	m.PageCacheHits, err = meter.Int64Counter(
		"yt_page_cache_hits_total",
		metric.WithDescription("Whole-page cache hits"),
	)
	if err != nil {
		return nil, err
	}

	m.PageCacheMisses, err = meter.Int64Counter(
		"yt_page_cache_misses_total",
		metric.WithDescription("Whole-page cache misses"),
	)
	if err != nil {
		return nil, err
	}

	m.Mutations, err = meter.Int64Counter(
		"yt_mutations_total",
		metric.WithDescription("Accepted writes by kind"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

// RecordCacheHit takes the request path rather than the full key so the
// per-viewer part of the key does not explode label cardinality.
func (m *Metrics) RecordCacheHit(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.PageCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.PageCacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

func (m *Metrics) RecordMutation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
