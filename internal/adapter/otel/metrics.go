package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tradeloom"

// Metrics holds all tradeloom metric instruments. A nil *Metrics records
// nothing, so callers need not check whether telemetry is configured.
type Metrics struct {
	Resolutions    metric.Int64Counter
	PhaseRuns      metric.Int64Counter
	PhaseDuration  metric.Float64Histogram
	TenantsCreated metric.Int64Counter
	SearchResults  metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Resolutions, err = meter.Int64Counter("tradeloom.tenant.resolutions",
		metric.WithDescription("Tenant resolutions by source and outcome"))
	if err != nil {
		return nil, err
	}

	m.PhaseRuns, err = meter.Int64Counter("tradeloom.provision.phases",
		metric.WithDescription("Provisioning phase executions by phase and outcome"))
	if err != nil {
		return nil, err
	}

	m.PhaseDuration, err = meter.Float64Histogram("tradeloom.provision.phase.duration_seconds",
		metric.WithDescription("Provisioning phase duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TenantsCreated, err = meter.Int64Counter("tradeloom.tenants.created",
		metric.WithDescription("Number of tenants created"))
	if err != nil {
		return nil, err
	}

	m.SearchResults, err = meter.Int64Histogram("tradeloom.search.results",
		metric.WithDescription("Results returned per search request"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordResolution counts one tenant resolution attempt.
func (m *Metrics) RecordResolution(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}

// RecordPhase records one provisioning phase.
func (m *Metrics) RecordPhase(ctx context.Context, phase, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("phase", phase), attribute.String("outcome", outcome))
	m.PhaseRuns.Add(ctx, 1, attrs)
	m.PhaseDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordTenantCreated counts a created tenant by origin.
func (m *Metrics) RecordTenantCreated(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.TenantsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordSearch records the size of one search response.
func (m *Metrics) RecordSearch(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.SearchResults.Record(ctx, int64(n))
}
