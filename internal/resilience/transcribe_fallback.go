package resilience

import (
	"context"

	"github.com/tablevox/tablevox/pkg/provider/transcribe"
)

// TranscribeFallback implements [transcribe.Transcriber] with automatic
// failover across multiple transcription backends, each behind its own
// circuit breaker.
type TranscribeFallback struct {
	group *FallbackGroup[transcribe.Transcriber]
}

// Compile-time interface assertion.
var _ transcribe.Transcriber = (*TranscribeFallback)(nil)

// NewTranscribeFallback creates a fallback with primary as the preferred
// backend.
func NewTranscribeFallback(primary transcribe.Transcriber, primaryName string, cfg FallbackConfig) *TranscribeFallback {
	return &TranscribeFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *TranscribeFallback) AddFallback(name string, t transcribe.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the request against the first healthy backend.
func (f *TranscribeFallback) Transcribe(ctx context.Context, wav []byte, req transcribe.Request) (*transcribe.Result, error) {
	return ExecuteWithResult(f.group, func(t transcribe.Transcriber) (*transcribe.Result, error) {
		return t.Transcribe(ctx, wav, req)
	})
}
