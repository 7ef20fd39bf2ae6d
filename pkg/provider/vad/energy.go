package vad

import (
	"fmt"
	"math"
)

const (
	// defaultFloor is the RMS level (float scale, 0–1) treated as certain
	// silence. Roughly -52 dBFS, below typical room tone.
	defaultFloor = 0.0025

	// defaultCeiling is the RMS level treated as certain speech.
	// Roughly -28 dBFS, comfortably inside conversational level.
	defaultCeiling = 0.04
)

// EnergyEngine is a pure-Go [Engine] that maps frame RMS energy to a speech
// probability. It is the fallback when no model-backed detector is
// configured, and the detector used throughout the test suite.
//
// The mapping is linear between a floor and a ceiling RMS level: at or below
// the floor the probability is 0, at or above the ceiling it is 1. Energy
// detection cannot tell speech from other loud sounds; the segmenter's
// hangover and the downstream preprocessing rejections absorb most of the
// resulting false positives.
//
// EnergyEngine is stateless and safe for concurrent use.
type EnergyEngine struct {
	floor   float64
	ceiling float64
}

var _ Engine = (*EnergyEngine)(nil)

// EnergyOption configures an [EnergyEngine].
type EnergyOption func(*EnergyEngine)

// WithEnergyFloor sets the RMS level (0–1 float scale) mapped to probability 0.
func WithEnergyFloor(floor float64) EnergyOption {
	return func(e *EnergyEngine) { e.floor = floor }
}

// WithEnergyCeiling sets the RMS level (0–1 float scale) mapped to probability 1.
func WithEnergyCeiling(ceiling float64) EnergyOption {
	return func(e *EnergyEngine) { e.ceiling = ceiling }
}

// NewEnergyEngine creates an energy detector with the supplied options.
func NewEnergyEngine(opts ...EnergyOption) (*EnergyEngine, error) {
	e := &EnergyEngine{
		floor:   defaultFloor,
		ceiling: defaultCeiling,
	}
	for _, o := range opts {
		o(e)
	}
	if e.floor < 0 || e.ceiling <= e.floor {
		return nil, fmt.Errorf("vad: invalid energy bounds: floor=%g ceiling=%g", e.floor, e.ceiling)
	}
	return e, nil
}

// Classify implements [Engine].
func (e *EnergyEngine) Classify(frame []float32, sampleRate int) (float64, error) {
	if len(frame) == 0 {
		return 0, fmt.Errorf("vad: empty frame")
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("vad: invalid sample rate %d", sampleRate)
	}

	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))

	switch {
	case rms <= e.floor:
		return 0, nil
	case rms >= e.ceiling:
		return 1, nil
	default:
		return (rms - e.floor) / (e.ceiling - e.floor), nil
	}
}
