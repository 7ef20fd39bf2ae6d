package resilience

import (
	"context"

	"github.com/tablevox/tablevox/pkg/provider/synthesize"
)

// SynthesizeFallback implements [synthesize.Synthesizer] with automatic
// failover across multiple synthesis backends. Failover applies to stream
// setup only; once a backend has accepted the stream, mid-stream failures
// surface to the caller as a closed audio channel.
type SynthesizeFallback struct {
	group *FallbackGroup[synthesize.Synthesizer]
}

// Compile-time interface assertion.
var _ synthesize.Synthesizer = (*SynthesizeFallback)(nil)

// NewSynthesizeFallback creates a fallback with primary as the preferred
// backend.
func NewSynthesizeFallback(primary synthesize.Synthesizer, primaryName string, cfg FallbackConfig) *SynthesizeFallback {
	return &SynthesizeFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesizer as a fallback.
func (f *SynthesizeFallback) AddFallback(name string, s synthesize.Synthesizer) {
	f.group.AddFallback(name, s)
}

// SynthesizeStream opens a stream against the first healthy backend.
func (f *SynthesizeFallback) SynthesizeStream(ctx context.Context, text <-chan string, voice synthesize.Voice) (<-chan []byte, error) {
	return ExecuteWithResult(f.group, func(s synthesize.Synthesizer) (<-chan []byte, error) {
		return s.SynthesizeStream(ctx, text, voice)
	})
}
