// Package mock provides a test double for the transcribe.Transcriber
// interface.
//
// Use Transcriber to script transcription results and inspect the audio and
// hints submitted by the pipeline.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/pkg/provider/transcribe"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// WAV is a copy of the audio passed to Transcribe.
	WAV []byte
	// Req is the request passed to Transcribe.
	Req transcribe.Request
}

// Transcriber is a mock implementation of transcribe.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results is the sequence of results returned by successive Transcribe
	// calls. When exhausted, the last entry repeats. When empty, a zero
	// Result is returned.
	Results []transcribe.Result

	// Err, if non-nil, is returned as the error from every Transcribe call.
	Err error

	// Calls records every Transcribe invocation in order.
	Calls []TranscribeCall

	next int
}

// Compile-time check that Transcriber satisfies transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and returns the next scripted result.
func (t *Transcriber) Transcribe(_ context.Context, wav []byte, req transcribe.Request) (*transcribe.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := make([]byte, len(wav))
	copy(cp, wav)
	t.Calls = append(t.Calls, TranscribeCall{WAV: cp, Req: req})

	if t.Err != nil {
		return nil, t.Err
	}
	if len(t.Results) == 0 {
		return &transcribe.Result{}, nil
	}
	i := t.next
	if i >= len(t.Results) {
		i = len(t.Results) - 1
	} else {
		t.next++
	}
	r := t.Results[i]
	return &r, nil
}

// CallCount returns the number of recorded Transcribe calls.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Reset clears recorded calls and rewinds the result sequence.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
	t.next = 0
}
