// Package metrics holds the label-aware probe counters and latency histograms.
//
// The label schema is the union of every target's label keys and is fixed
// when the Aggregator is built. A target that lacks a schema key reports ""
// for it, so every series carries the same set of label dimensions.
package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hamed0406/pingprobe/internal/domain"
)

const (
	Namespace = "pingprobe"

	LabelAddress = "address"
	LabelStatus  = "status"
)

// DefaultBuckets are latency histogram bounds in milliseconds.
var DefaultBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type options struct {
	buckets []float64
	meter   metric.Meter
}

type Option func(*options)

// WithBuckets overrides the latency histogram bounds (milliseconds).
func WithBuckets(b []float64) Option {
	return func(o *options) { o.buckets = b }
}

// WithMeter mirrors every observation into OpenTelemetry instruments
// created from m, using the same attribute set as the Prometheus labels.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

type Aggregator struct {
	schema   []string
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	otelAttempts metric.Int64Counter
	otelLatency  metric.Float64Histogram
}

// New builds an Aggregator whose schema is the union of targets' label keys.
func New(targets []domain.Target, opts ...Option) (*Aggregator, error) {
	o := options{buckets: DefaultBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	schema := domain.LabelSchema(targets)
	for _, k := range schema {
		if k == LabelAddress || k == LabelStatus {
			return nil, fmt.Errorf("label %q is reserved", k)
		}
	}

	a := &Aggregator{
		schema:   schema,
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "probe_attempts_total",
			Help:      "Total probe attempts by address, outcome status and target labels.",
		}, append([]string{LabelAddress, LabelStatus}, schema...)),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "probe_latency_ms",
			Help:      "Round trip latency of successful probes in milliseconds.",
			Buckets:   o.buckets,
		}, append([]string{LabelAddress}, schema...)),
	}
	if err := a.registry.Register(a.attempts); err != nil {
		return nil, fmt.Errorf("register attempts: %w", err)
	}
	if err := a.registry.Register(a.latency); err != nil {
		return nil, fmt.Errorf("register latency: %w", err)
	}

	if o.meter != nil {
		var err error
		a.otelAttempts, err = o.meter.Int64Counter(Namespace+".probe.attempts",
			metric.WithDescription("Total probe attempts by address, outcome status and target labels."),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			return nil, fmt.Errorf("otel attempts: %w", err)
		}
		a.otelLatency, err = o.meter.Float64Histogram(Namespace+".probe.latency",
			metric.WithDescription("Round trip latency of successful probes."),
			metric.WithUnit("ms"),
			metric.WithExplicitBucketBoundaries(o.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("otel latency: %w", err)
		}
	}

	// Zero-valued series for every status so rates work from the first scrape.
	for i := range targets {
		values := a.labelValues(&targets[i])
		for _, s := range domain.Statuses {
			a.attempts.WithLabelValues(append([]string{targets[i].Address, string(s)}, values...)...)
		}
	}
	return a, nil
}

// Observe records one outcome. Safe for concurrent use.
func (a *Aggregator) Observe(out domain.Outcome) {
	values := a.labelValues(out.Target)
	addr := out.Target.Address

	a.attempts.WithLabelValues(append([]string{addr, string(out.Status)}, values...)...).Inc()
	if out.Success {
		a.latency.WithLabelValues(append([]string{addr}, values...)...).Observe(out.LatencyMS)
	}

	if a.otelAttempts != nil {
		ctx := context.Background()
		base := a.attributes(addr, values)
		a.otelAttempts.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String(LabelStatus, string(out.Status)))...))
		if out.Success {
			a.otelLatency.Record(ctx, out.LatencyMS, metric.WithAttributes(base...))
		}
	}
}

// Schema returns the label keys shared by every series, in order.
func (a *Aggregator) Schema() []string {
	return append([]string(nil), a.schema...)
}

// LabelValues returns t's value for each schema key, "" where t has none.
func (a *Aggregator) LabelValues(t *domain.Target) map[string]string {
	m := make(map[string]string, len(a.schema))
	for _, k := range a.schema {
		m[k] = t.LabelValue(k)
	}
	return m
}

func (a *Aggregator) Registry() *prometheus.Registry {
	return a.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (a *Aggregator) Handler(errorLog *log.Logger) http.Handler {
	opts := promhttp.HandlerOpts{Registry: a.registry}
	if errorLog != nil {
		opts.ErrorLog = errorLog
	}
	return promhttp.HandlerFor(a.registry, opts)
}

func (a *Aggregator) labelValues(t *domain.Target) []string {
	values := make([]string, len(a.schema))
	for i, k := range a.schema {
		values[i] = t.LabelValue(k)
	}
	return values
}

func (a *Aggregator) attributes(addr string, values []string) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(values)+2)
	kv = append(kv, attribute.String(LabelAddress, addr))
	for i, k := range a.schema {
		kv = append(kv, attribute.String(k, values[i]))
	}
	return kv
}
