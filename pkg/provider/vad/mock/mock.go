// Package mock provides a test double for the vad.Engine interface.
//
// Use Engine to script per-frame probabilities and inspect the frames that
// were submitted for classification.
//
// Example:
//
//	eng := &mock.Engine{Probabilities: []float64{0.1, 0.8, 0.8}}
//	p, _ := eng.Classify(frame, 16000)
package mock

import (
	"sync"

	"github.com/tablevox/tablevox/pkg/provider/vad"
)

// ClassifyCall records a single invocation of Engine.Classify.
type ClassifyCall struct {
	// FrameLen is the sample count of the frame passed to Classify.
	FrameLen int
	// SampleRate is the sample rate passed to Classify.
	SampleRate int
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Probabilities is the sequence of results returned by successive
	// Classify calls. When exhausted, the last value repeats. When empty,
	// Classify returns 0.
	Probabilities []float64

	// Err, if non-nil, is returned as the error from every Classify call.
	Err error

	// Calls records every Classify invocation in order.
	Calls []ClassifyCall

	next int
}

// Compile-time check that Engine satisfies vad.Engine.
var _ vad.Engine = (*Engine)(nil)

// Classify records the call and returns the next scripted probability.
func (e *Engine) Classify(frame []float32, sampleRate int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, ClassifyCall{FrameLen: len(frame), SampleRate: sampleRate})
	if e.Err != nil {
		return 0, e.Err
	}
	if len(e.Probabilities) == 0 {
		return 0, nil
	}
	i := e.next
	if i >= len(e.Probabilities) {
		i = len(e.Probabilities) - 1
	} else {
		e.next++
	}
	return e.Probabilities[i], nil
}

// Reset clears recorded calls and rewinds the probability sequence.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = nil
	e.next = 0
}
