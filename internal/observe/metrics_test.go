package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"tablevox.preprocess.duration", m.PreprocessDuration},
		{"tablevox.transcribe.duration", m.TranscribeDuration},
		{"tablevox.respond.duration", m.RespondDuration},
		{"tablevox.synthesize.duration", m.SynthesizeDuration},
		{"tablevox.turn.duration", m.TurnDuration},
	}
	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)
	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			md := findMetric(rm, tc.name)
			if md == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := md.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is %T, want Histogram[float64]", tc.name, md.Data)
			}
			if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
				t.Errorf("unexpected data points: %+v", hist.DataPoints)
			}
		})
	}
}

func TestCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRejection(ctx, "too_short")
	m.RecordHallucination(ctx, "word_repetition")
	m.RecordHallucination(ctx, "garbage_phrase")
	m.TurnsDropped.Add(ctx, 1)
	m.RecordProviderRequest(ctx, "elevenlabs", "synthesize", "ok")
	m.RecordProviderError(ctx, "openai", "respond")
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)

	sum := func(name string) int64 {
		md := findMetric(rm, name)
		if md == nil {
			t.Fatalf("metric %q not found", name)
		}
		data, ok := md.Data.(metricdata.Sum[int64])
		if !ok {
			t.Fatalf("metric %q is %T, want Sum[int64]", name, md.Data)
		}
		var total int64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		return total
	}

	if got := sum("tablevox.utterance.rejections"); got != 1 {
		t.Errorf("rejections = %d, want 1", got)
	}
	if got := sum("tablevox.transcript.hallucinations"); got != 2 {
		t.Errorf("hallucinations = %d, want 2", got)
	}
	if got := sum("tablevox.turns.dropped"); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := sum("tablevox.provider.requests"); got != 1 {
		t.Errorf("provider requests = %d, want 1", got)
	}
	if got := sum("tablevox.provider.errors"); got != 1 {
		t.Errorf("provider errors = %d, want 1", got)
	}
	if got := sum("tablevox.active_sessions"); got != 0 {
		t.Errorf("active sessions = %d, want 0", got)
	}
}
