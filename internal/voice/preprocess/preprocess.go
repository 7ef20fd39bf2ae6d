// Package preprocess cleans a raw utterance before transcription.
//
// The pipeline is: minimum-length check, stationary noise reduction,
// amplitude-based silence trimming with a small margin, a second
// minimum-length check on the trimmed audio, and peak normalization.
// Rejections are non-fatal: they carry a typed error so the caller can
// abort the current turn quietly instead of surfacing a failure.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tablevox/tablevox/pkg/audio"
)

// Rejection errors. All are expected outcomes for noise captures, not
// failures; test with [IsRejection] or errors.Is.
var (
	// ErrTooShort rejects utterances below the raw minimum duration.
	ErrTooShort = errors.New("preprocess: utterance too short")

	// ErrAllSilence rejects utterances with no sample above the trim
	// threshold.
	ErrAllSilence = errors.New("preprocess: utterance is all silence")

	// ErrTrimmedTooShort rejects utterances whose speech content after
	// trimming is below the trimmed minimum duration.
	ErrTrimmedTooShort = errors.New("preprocess: trimmed utterance too short")
)

// IsRejection reports whether err is a non-fatal input rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrTooShort) ||
		errors.Is(err, ErrAllSilence) ||
		errors.Is(err, ErrTrimmedTooShort)
}

const (
	// trimThreshold is the absolute amplitude (full scale 1.0) a sample
	// must exceed to count as speech when locating trim boundaries.
	trimThreshold = 0.015

	// trimMargin is the audio kept on each side of the detected speech
	// span so plosives and trailing fricatives are not clipped.
	trimMargin = 50 * time.Millisecond

	// normalizeTarget is the post-normalization peak amplitude.
	normalizeTarget = 0.9

	// gateWindow is the analysis window for the noise gate.
	gateWindow = 512

	// gateOpenFactor scales the estimated noise floor; windows below
	// floor*gateOpenFactor are attenuated quadratically toward zero.
	gateOpenFactor = 2.0
)

// Config tunes the preprocessor.
type Config struct {
	// SampleRate of the input PCM in Hz.
	SampleRate int

	// MinSegmentSeconds rejects raw utterances shorter than this.
	MinSegmentSeconds float64

	// MinTrimmedSeconds rejects trimmed utterances shorter than this.
	MinTrimmedSeconds float64
}

// Preprocessor cleans utterances. Safe for concurrent use.
type Preprocessor struct {
	cfg Config
}

// New creates a Preprocessor. Returns an error when cfg is incoherent.
func New(cfg Config) (*Preprocessor, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("preprocess: SampleRate must be positive")
	}
	if cfg.MinSegmentSeconds <= 0 || cfg.MinTrimmedSeconds <= 0 {
		return nil, fmt.Errorf("preprocess: minimum durations must be positive")
	}
	if cfg.MinTrimmedSeconds > cfg.MinSegmentSeconds {
		return nil, fmt.Errorf("preprocess: MinTrimmedSeconds must not exceed MinSegmentSeconds")
	}
	return &Preprocessor{cfg: cfg}, nil
}

// Process runs the cleanup pipeline on raw PCM16 mono audio and returns
// the cleaned PCM. A nil error means the audio is ready for transcription;
// rejection errors satisfy [IsRejection].
func (p *Preprocessor) Process(pcm []byte) ([]byte, error) {
	minRawBytes := int(float64(p.cfg.SampleRate)*p.cfg.MinSegmentSeconds) * audio.BytesPerSample
	if len(pcm) < minRawBytes {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrTooShort, len(pcm), minRawBytes)
	}

	samples := audio.BytesToFloat32(pcm)
	samples = reduceNoise(samples)

	start, end, ok := speechSpan(samples, trimThreshold)
	if !ok {
		return nil, ErrAllSilence
	}
	margin := int(float64(p.cfg.SampleRate) * trimMargin.Seconds())
	start = max(0, start-margin)
	end = min(len(samples), end+margin)
	trimmed := samples[start:end]

	minTrimmedSamples := int(float64(p.cfg.SampleRate) * p.cfg.MinTrimmedSeconds)
	if len(trimmed) < minTrimmedSamples {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTrimmedTooShort, len(trimmed), minTrimmedSamples)
	}

	normalize(trimmed, normalizeTarget)
	return audio.Float32ToBytes(trimmed), nil
}

// reduceNoise applies a soft gate that attenuates windows near the
// estimated stationary noise floor while leaving speech untouched. The
// floor is the 10th-percentile window RMS, so steady background hum sets
// the reference even when most of the capture is speech.
func reduceNoise(samples []float32) []float32 {
	if len(samples) < gateWindow*2 {
		return samples
	}

	numWindows := len(samples) / gateWindow
	rmsPerWindow := make([]float64, numWindows)
	for w := 0; w < numWindows; w++ {
		rmsPerWindow[w] = windowRMS(samples[w*gateWindow : (w+1)*gateWindow])
	}

	sorted := make([]float64, len(rmsPerWindow))
	copy(sorted, rmsPerWindow)
	sort.Float64s(sorted)
	floor := sorted[len(sorted)/10]
	if floor <= 0 {
		return samples
	}

	openLevel := floor * gateOpenFactor
	out := make([]float32, len(samples))
	copy(out, samples)
	for w := 0; w < numWindows; w++ {
		if rmsPerWindow[w] >= openLevel {
			continue
		}
		// Quadratic ramp keeps the transition inaudible at the gate edge.
		ratio := rmsPerWindow[w] / openLevel
		gain := float32(ratio * ratio)
		for i := w * gateWindow; i < (w+1)*gateWindow; i++ {
			out[i] *= gain
		}
	}
	return out
}

// speechSpan returns the index range [start, end) covering the first
// through last sample whose absolute amplitude exceeds threshold.
func speechSpan(samples []float32, threshold float32) (start, end int, ok bool) {
	start = -1
	for i, s := range samples {
		if abs32(s) > threshold {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

// normalize scales samples in place so the peak reaches target.
func normalize(samples []float32, target float32) {
	var peak float32
	for _, s := range samples {
		if a := abs32(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	gain := target / peak
	for i := range samples {
		samples[i] *= gain
	}
}

func windowRMS(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
