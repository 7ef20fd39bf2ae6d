// Package mock provides a test double for the synthesize.Synthesizer
// interface.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/pkg/provider/synthesize"
)

// StreamCall records a single invocation of Synthesizer.SynthesizeStream.
type StreamCall struct {
	// Fragments are the text fragments read from the text channel, in order.
	Fragments []string

	// Voice is the requested voice profile.
	Voice synthesize.Voice
}

// Synthesizer is a mock implementation of synthesize.Synthesizer.
//
// For each text fragment consumed it emits ChunksPerFragment audio chunks
// of ChunkSize zero bytes, so tests can count chunks per sentence without
// a real backend.
type Synthesizer struct {
	mu sync.Mutex

	// ChunksPerFragment is the number of audio chunks emitted per text
	// fragment. Defaults to 1 when zero.
	ChunksPerFragment int

	// ChunkSize is the byte length of each emitted chunk. Defaults to 640
	// (20 ms at 16 kHz mono PCM16) when zero.
	ChunkSize int

	// StartErr, if non-nil, is returned by SynthesizeStream before any
	// audio is produced.
	StartErr error

	// Calls records every SynthesizeStream invocation in order. Fragment
	// slices are populated as the stream goroutine consumes text, so tests
	// should drain the audio channel before inspecting them.
	Calls []*StreamCall
}

// Compile-time check that Synthesizer satisfies synthesize.Synthesizer.
var _ synthesize.Synthesizer = (*Synthesizer)(nil)

// SynthesizeStream implements [synthesize.Synthesizer].
func (s *Synthesizer) SynthesizeStream(ctx context.Context, text <-chan string, voice synthesize.Voice) (<-chan []byte, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}

	call := &StreamCall{Voice: voice}
	s.mu.Lock()
	s.Calls = append(s.Calls, call)
	chunksPer := s.ChunksPerFragment
	chunkSize := s.ChunkSize
	s.mu.Unlock()
	if chunksPer <= 0 {
		chunksPer = 1
	}
	if chunkSize <= 0 {
		chunkSize = 640
	}

	audioCh := make(chan []byte, 16)
	go func() {
		defer close(audioCh)
		for {
			select {
			case fragment, ok := <-text:
				if !ok {
					return
				}
				s.mu.Lock()
				call.Fragments = append(call.Fragments, fragment)
				s.mu.Unlock()
				for i := 0; i < chunksPer; i++ {
					select {
					case audioCh <- make([]byte, chunkSize):
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return audioCh, nil
}

// CallCount returns the number of recorded SynthesizeStream calls.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// Fragments returns a copy of the fragments consumed by call i.
func (s *Synthesizer) Fragments(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.Calls) {
		return nil
	}
	out := make([]string, len(s.Calls[i].Fragments))
	copy(out, s.Calls[i].Fragments)
	return out
}

// Reset clears all recorded calls.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = nil
}
