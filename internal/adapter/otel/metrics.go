package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "nusahire"

// Metrics holds the counters recorded by the tenancy and identity core.
// A nil *Metrics records nothing.
type Metrics struct {
	resolutions metric.Int64Counter
	proxy       metric.Int64Counter
	decisions   metric.Int64Counter
	tokens      metric.Int64Counter
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates instruments on mp.
func NewMetricsWithProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.resolutions, err = meter.Int64Counter("nusahire.tenant.resolutions",
		metric.WithDescription("Tenant resolution outcomes"))
	if err != nil {
		return nil, err
	}

	m.proxy, err = meter.Int64Counter("nusahire.proxy.lookups",
		metric.WithDescription("Proxy credential bridge lookups"))
	if err != nil {
		return nil, err
	}

	m.decisions, err = meter.Int64Counter("nusahire.permission.decisions",
		metric.WithDescription("Permission evaluator decisions"))
	if err != nil {
		return nil, err
	}

	m.tokens, err = meter.Int64Counter("nusahire.tokens.minted",
		metric.WithDescription("Cross-system tokens built"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Resolution records a tenant resolution outcome: id, slug, historical,
// redirect, central, not_found or error.
func (m *Metrics) Resolution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ProxyLookup records a bridge lookup result: hit, miss or error.
func (m *Metrics) ProxyLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.proxy.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Decision records allow, forbidden, unauthorized or error.
func (m *Metrics) Decision(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// TokenMinted records ok or error.
func (m *Metrics) TokenMinted(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.tokens.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
