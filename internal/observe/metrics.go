// Package observe provides application-wide observability primitives for
// Tablevox: OpenTelemetry metrics, distributed tracing, and structured
// logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Tablevox metrics.
const meterName = "github.com/tablevox/tablevox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// PreprocessDuration tracks audio cleanup latency.
	PreprocessDuration metric.Float64Histogram

	// TranscribeDuration tracks transcription latency.
	TranscribeDuration metric.Float64Histogram

	// RespondDuration tracks agent response latency.
	RespondDuration metric.Float64Histogram

	// SynthesizeDuration tracks speech synthesis latency per reply.
	SynthesizeDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end utterance-to-reply latency.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// UtteranceRejections counts preprocessor rejections. Use with
	// attribute.String("reason", ...).
	UtteranceRejections metric.Int64Counter

	// Hallucinations counts rejected transcripts. Use with
	// attribute.String("reason", ...).
	Hallucinations metric.Int64Counter

	// TurnsDropped counts utterances dropped because a turn was already in
	// flight on the session.
	TurnsDropped metric.Int64Counter

	// TurnsCompleted counts turns that produced a reply. Use with
	// attribute.String("status", ...).
	TurnsCompleted metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histogram := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.PreprocessDuration, err = histogram("tablevox.preprocess.duration",
		"Latency of utterance audio cleanup."); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = histogram("tablevox.transcribe.duration",
		"Latency of transcription."); err != nil {
		return nil, err
	}
	if met.RespondDuration, err = histogram("tablevox.respond.duration",
		"Latency of agent response generation."); err != nil {
		return nil, err
	}
	if met.SynthesizeDuration, err = histogram("tablevox.synthesize.duration",
		"Latency of reply speech synthesis."); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = histogram("tablevox.turn.duration",
		"End-to-end utterance-to-reply latency."); err != nil {
		return nil, err
	}

	if met.UtteranceRejections, err = m.Int64Counter("tablevox.utterance.rejections",
		metric.WithDescription("Utterances rejected by the preprocessor, by reason."),
	); err != nil {
		return nil, err
	}
	if met.Hallucinations, err = m.Int64Counter("tablevox.transcript.hallucinations",
		metric.WithDescription("Transcripts rejected by the hallucination filter, by reason."),
	); err != nil {
		return nil, err
	}
	if met.TurnsDropped, err = m.Int64Counter("tablevox.turns.dropped",
		metric.WithDescription("Utterances dropped because a turn was already in flight."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCompleted, err = m.Int64Counter("tablevox.turns.completed",
		metric.WithDescription("Completed turns by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("tablevox.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("tablevox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("tablevox.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRejection records a preprocessor rejection with its reason.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	m.UtteranceRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordHallucination records a rejected transcript with its reason.
func (m *Metrics) RecordHallucination(ctx context.Context, reason string) {
	m.Hallucinations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordProviderRequest records a provider request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
