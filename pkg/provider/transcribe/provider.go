// Package transcribe defines the Transcriber interface for batch
// speech-to-text backends.
//
// Tablevox transcribes whole utterances: the speech segmenter hands over one
// bounded, preprocessed audio buffer per user turn, so the provider surface
// is a single WAV-in, text-out call rather than a streaming session. This
// keeps backends trivially swappable between a hosted OpenAI-compatible
// endpoint and a local whisper.cpp model.
//
// Implementations must be safe for concurrent use: utterances from multiple
// voice sessions are transcribed against one shared Transcriber.
package transcribe

import "context"

// Request carries recognition hints alongside the audio.
type Request struct {
	// Language is the target transcription language as a lowercase ISO 639-1
	// code (e.g. "en"). Providers may transcribe speech in another language
	// phonetically into this target. Empty means auto-detect.
	Language string

	// VocabularyHint is a short free-text prompt listing domain terms (menu
	// items, dish names) that the recognizer should prefer. Providers that
	// do not support prompting ignore it.
	VocabularyHint string
}

// Result is a committed transcription of one utterance.
type Result struct {
	// Text is the transcribed speech.
	Text string

	// Confidence is the provider's overall confidence in [0, 1]. Zero when
	// the backend does not report confidence.
	Confidence float64
}

// Transcriber is the abstraction over any batch speech-to-text backend.
type Transcriber interface {
	// Transcribe converts one WAV-wrapped PCM16 utterance to text. The call
	// blocks until the backend commits a result or ctx is cancelled.
	Transcribe(ctx context.Context, wav []byte, req Request) (*Result, error)
}
