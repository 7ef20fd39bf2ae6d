// Package synth streams a synthesized voice reply sentence by sentence
// with cooperative cancellation.
//
// The reply text is split on sentence-final punctuation and each sentence
// is synthesized in order. A stop request is honored at every sentence
// boundary and at every audio chunk boundary within a sentence, so a
// "stop speaking" control lands within one chunk of playback. The stream
// start and end markers are always emitted, cancelled or not, so the
// client can reliably reset its playback state.
package synth

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/tablevox/tablevox/pkg/provider/synthesize"
)

// StopFlag is a per-session cancellation flag for the current synthesis
// pass. Safe for concurrent use: the receive loop sets it while the
// streamer polls it.
type StopFlag struct {
	v atomic.Bool
}

// Request asks the current synthesis pass to stop.
func (f *StopFlag) Request() { f.v.Store(true) }

// Clear resets the flag for the next pass.
func (f *StopFlag) Clear() { f.v.Store(false) }

// Requested reports whether a stop has been requested.
func (f *StopFlag) Requested() bool { return f.v.Load() }

// Emitter receives the ordered audio events of one synthesis pass.
type Emitter interface {
	// AudioStart marks the beginning of the reply's audio stream.
	AudioStart() error

	// AudioChunk delivers one chunk of raw PCM16 reply audio.
	AudioChunk(pcm []byte) error

	// AudioEnd marks the end of the reply's audio stream. Called exactly
	// once per pass, whether the pass completed or was cancelled.
	AudioEnd() error
}

// sentenceEnders are sentence-final punctuation runes across the scripts
// the pipeline serves: Latin, CJK full-width, and Devanagari danda.
var sentenceEnders = map[rune]struct{}{
	'.': {}, '!': {}, '?': {}, '…': {},
	'。': {}, '！': {}, '？': {},
	'।': {}, '॥': {},
}

// SplitSentences splits text into an ordered sequence of sentences on
// sentence-final punctuation. The punctuation stays attached to its
// sentence. Text without any sentence ender is returned as one sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var sb strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		sb.WriteRune(r)
		if _, ok := sentenceEnders[r]; !ok {
			continue
		}
		// A sentence ends at punctuation followed by whitespace or end of
		// text; "3.50" and "v2.5" stay intact.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			sentences = append(sentences, s)
		}
		sb.Reset()
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Streamer runs synthesis passes against a synthesize provider.
// Safe for concurrent use across sessions; each pass is sequential.
type Streamer struct {
	synth synthesize.Synthesizer
	voice synthesize.Voice
}

// NewStreamer creates a Streamer speaking with the given voice.
func NewStreamer(s synthesize.Synthesizer, voice synthesize.Voice) *Streamer {
	return &Streamer{synth: s, voice: voice}
}

// Stream synthesizes text sentence by sentence, delivering audio through
// emit. The stop flag is cleared on entry and on every exit path; AudioEnd
// is emitted on every exit path after AudioStart succeeded.
//
// A stop request aborts before the next sentence and between chunks of the
// current sentence. Returns the first emit or provider error; a stop is
// not an error.
func (s *Streamer) Stream(ctx context.Context, text string, stop *StopFlag, emit Emitter) error {
	stop.Clear()
	defer stop.Clear()

	if err := emit.AudioStart(); err != nil {
		return fmt.Errorf("synth: emit audio start: %w", err)
	}

	streamErr := s.streamSentences(ctx, text, stop, emit)

	if err := emit.AudioEnd(); err != nil && streamErr == nil {
		return fmt.Errorf("synth: emit audio end: %w", err)
	}
	return streamErr
}

func (s *Streamer) streamSentences(ctx context.Context, text string, stop *StopFlag, emit Emitter) error {
	for _, sentence := range SplitSentences(text) {
		if stop.Requested() {
			return nil
		}
		if err := s.streamOne(ctx, sentence, stop, emit); err != nil {
			return err
		}
	}
	return nil
}

// streamOne synthesizes a single sentence, checking the stop flag between
// chunks.
func (s *Streamer) streamOne(ctx context.Context, sentence string, stop *StopFlag, emit Emitter) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	textCh := make(chan string, 1)
	textCh <- sentence
	close(textCh)

	audioCh, err := s.synth.SynthesizeStream(sctx, textCh, s.voice)
	if err != nil {
		return fmt.Errorf("synth: start stream: %w", err)
	}

	for chunk := range audioCh {
		if stop.Requested() {
			cancel()
			for range audioCh {
				// Drain so the provider goroutine can exit.
			}
			return nil
		}
		if err := emit.AudioChunk(chunk); err != nil {
			cancel()
			for range audioCh {
			}
			return fmt.Errorf("synth: emit chunk: %w", err)
		}
	}
	return ctx.Err()
}
