package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability records assembly and job metrics through an OTel meter
// exported to prometheus, and opens spans on the global tracer.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	tracer        trace.Tracer

	jobCounter       otelmetric.Int64Counter
	jobDuration      otelmetric.Float64Histogram
	assemblyCounter  otelmetric.Int64Counter
	assemblyDuration otelmetric.Float64Histogram
}

// Instrument names use underscores so the exported series keep the same name
// under either prometheus naming scheme.

// New registers the exporter with the default prometheus registry.
func New(serviceName string) (*Observability, error) {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
}

// NewWithRegisterer registers the exporter with reg.
func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o := &Observability{
		meterProvider: provider,
		meter:         meter,
		tracer:        otel.Tracer(serviceName),
	}
	o.jobCounter, _ = meter.Int64Counter("petition_jobs_processed",
		otelmetric.WithDescription("Number of jobs processed"))
	o.jobDuration, _ = meter.Float64Histogram("petition_job_duration",
		otelmetric.WithDescription("Job processing duration"), otelmetric.WithUnit("ms"))
	o.assemblyCounter, _ = meter.Int64Counter("petition_letter_assemblies",
		otelmetric.WithDescription("Letter assembly runs"))
	o.assemblyDuration, _ = meter.Float64Histogram("petition_letter_assembly_duration",
		otelmetric.WithDescription("Letter assembly duration"), otelmetric.WithUnit("ms"))
	return o, nil
}

// Noop returns an Observability that records nothing.
func Noop() *Observability {
	return &Observability{}
}

// StartSpan opens a span on the global tracer. It is a no-op span unless a
// tracer provider has been installed.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("petition-workers")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// RecordAssembly counts one assembly run and its duration by outcome.
func (o *Observability) RecordAssembly(ctx context.Context, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.assemblyCounter != nil {
		o.assemblyCounter.Add(ctx, 1, attrs)
	}
	if o.assemblyDuration != nil {
		o.assemblyDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() error {
	if o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
