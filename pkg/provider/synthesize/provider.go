// Package synthesize defines the Synthesizer interface for text-to-speech
// backends.
//
// A synthesizer wraps a speech synthesis service (e.g. ElevenLabs, or a
// local Piper instance) and presents a uniform streaming interface. The
// entry point is SynthesizeStream, which accepts a channel of text
// fragments and returns a channel of raw PCM audio bytes as they become
// available, so playback can start before the full reply is synthesised.
//
// Implementations must be safe for concurrent use.
package synthesize

import "context"

// Voice identifies a voice profile at the backing service.
type Voice struct {
	// ID is the provider-assigned voice identifier.
	ID string

	// Name is a human-readable label for logs and configuration.
	Name string
}

// Synthesizer is the abstraction over any text-to-speech backend.
type Synthesizer interface {
	// SynthesizeStream consumes text fragments from the text channel and
	// returns a channel that emits raw PCM audio byte slices (16 kHz mono
	// 16-bit little-endian) as they are synthesised.
	//
	// The returned audio channel is closed by the implementation when all
	// text has been synthesised or when ctx is cancelled. The caller must
	// drain the audio channel to avoid blocking the implementation's
	// internal goroutines.
	//
	// Returns a non-nil error only if the stream cannot be started. Errors
	// during synthesis are signalled by closing the audio channel early;
	// callers should check ctx.Err() to distinguish cancellation from
	// provider failure.
	SynthesizeStream(ctx context.Context, text <-chan string, voice Voice) (<-chan []byte, error)
}
