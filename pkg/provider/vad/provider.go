// Package vad defines the Engine interface for frame-level voice activity
// detection backends.
//
// An Engine wraps a speech detection model (Silero over an inference sidecar,
// or the built-in energy detector) and scores one audio frame at a time.
// Scoring is stateless from the pipeline's point of view: any temporal
// smoothing is the model's own concern. The speech segmenter layers its
// state machine on top of the raw per-frame probabilities.
//
// Implementations must be safe for concurrent use; a server scores frames
// from many sessions against one shared Engine.
package vad

// Engine scores single audio frames for speech probability.
type Engine interface {
	// Classify returns the speech probability in [0, 1] for one frame of
	// float32 mono samples at the given sample rate. Implementations may
	// return an error for unexpected frame lengths or internal model
	// failures; callers treat an error as silence.
	Classify(frame []float32, sampleRate int) (float64, error)
}
