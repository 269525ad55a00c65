// Package observe provides the OpenTelemetry metric instruments of the game
// session and the HTTP middleware that records request latency.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter bridge so they can be scraped from /metrics.
// Tests should use [NewMetrics] with a ManualReader-backed provider. Every
// Record method is a no-op on a nil *Metrics, so components may run without
// observability wired.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/user/elemelon"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// WorldGenDuration tracks how long a full world generation takes.
	WorldGenDuration metric.Float64Histogram

	// TickDuration tracks the cost of one simulation tick.
	TickDuration metric.Float64Histogram

	// PlacementAttempts counts sampler candidates. Use with attribute:
	//   attribute.String("category", ...)
	PlacementAttempts metric.Int64Counter

	// PlacementFailures counts objects skipped because the sampler ran out
	// of attempts. Use with attribute: attribute.String("category", ...)
	PlacementFailures metric.Int64Counter

	// TempleTransitions counts temple state changes. Use with attributes:
	//   attribute.String("element", ...), attribute.String("state", ...)
	TempleTransitions metric.Int64Counter

	// ShopPurchases counts purchase attempts. Use with attributes:
	//   attribute.String("item", ...), attribute.String("status", ...)
	ShopPurchases metric.Int64Counter

	// Saves counts save and load operations. Use with attributes:
	//   attribute.String("op", ...), attribute.String("kind", ...), attribute.String("status", ...)
	Saves metric.Int64Counter

	// ActiveBosses tracks bosses currently alive.
	ActiveBosses metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time.
	HTTPRequestDuration metric.Float64Histogram
}

var durationBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.WorldGenDuration, err = m.Float64Histogram("elemelon.world.generation.duration",
		metric.WithDescription("Latency of a full world generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TickDuration, err = m.Float64Histogram("elemelon.tick.duration",
		metric.WithDescription("Latency of one simulation tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("elemelon.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PlacementAttempts, err = m.Int64Counter("elemelon.placement.attempts",
		metric.WithDescription("Candidate positions drawn by the placement sampler."),
	); err != nil {
		return nil, err
	}
	if met.PlacementFailures, err = m.Int64Counter("elemelon.placement.failures",
		metric.WithDescription("Objects skipped because placement ran out of attempts."),
	); err != nil {
		return nil, err
	}
	if met.TempleTransitions, err = m.Int64Counter("elemelon.temple.transitions",
		metric.WithDescription("Temple state transitions by element and new state."),
	); err != nil {
		return nil, err
	}
	if met.ShopPurchases, err = m.Int64Counter("elemelon.shop.purchases",
		metric.WithDescription("Shop purchase attempts by item and status."),
	); err != nil {
		return nil, err
	}
	if met.Saves, err = m.Int64Counter("elemelon.saves",
		metric.WithDescription("Save and load operations by kind and status."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveBosses, err = m.Int64UpDownCounter("elemelon.active_bosses",
		metric.WithDescription("Number of bosses currently alive."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordPlacement records the sampler work of one generation stage.
func (m *Metrics) RecordPlacement(ctx context.Context, category string, attempts, failures int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("category", category))
	m.PlacementAttempts.Add(ctx, int64(attempts), attrs)
	if failures > 0 {
		m.PlacementFailures.Add(ctx, int64(failures), attrs)
	}
}

// RecordWorldGeneration records the duration of a world generation.
func (m *Metrics) RecordWorldGeneration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.WorldGenDuration.Record(ctx, seconds)
}

// RecordTick records the duration of a simulation tick.
func (m *Metrics) RecordTick(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.TickDuration.Record(ctx, seconds)
}

// RecordTempleTransition records a temple entering state.
func (m *Metrics) RecordTempleTransition(ctx context.Context, element, state string) {
	if m == nil {
		return
	}
	m.TempleTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("element", element),
			attribute.String("state", state),
		),
	)
}

// RecordPurchase records a shop purchase attempt.
func (m *Metrics) RecordPurchase(ctx context.Context, item, status string) {
	if m == nil {
		return
	}
	m.ShopPurchases.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("item", item),
			attribute.String("status", status),
		),
	)
}

// RecordSave records a save or load operation.
func (m *Metrics) RecordSave(ctx context.Context, op, kind, status string) {
	if m == nil {
		return
	}
	m.Saves.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// BossSpawned increments the active boss gauge.
func (m *Metrics) BossSpawned(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveBosses.Add(ctx, 1)
}

// BossDefeated decrements the active boss gauge.
func (m *Metrics) BossDefeated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveBosses.Add(ctx, -1)
}

// BossesCleared removes n bosses that left play without being defeated.
func (m *Metrics) BossesCleared(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ActiveBosses.Add(ctx, -int64(n))
}
