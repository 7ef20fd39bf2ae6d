// Package audio provides PCM plumbing shared by the voice pipeline: sample
// format conversion, signal-level measurement, and WAV container wrapping.
//
// All functions operate on 16-bit signed little-endian PCM unless stated
// otherwise. The pipeline is mono 16 kHz end to end, so no resampling or
// channel conversion is needed here.
package audio

import (
	"encoding/binary"
	"math"
)

// BytesPerSample is the size of one PCM16 sample.
const BytesPerSample = 2

// BytesToFloat32 converts little-endian PCM16 bytes to float32 samples in
// [-1, 1]. A trailing odd byte is ignored.
func BytesToFloat32(pcm []byte) []float32 {
	n := len(pcm) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToBytes converts float32 samples in [-1, 1] to little-endian PCM16
// bytes. Samples outside the valid range are clipped.
func Float32ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := int16(f * 32767)
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out
}

// RMS returns the root-mean-square energy of PCM16 audio in 16-bit units
// (0–32767). Returns 0 for empty or truncated input.
func RMS(pcm []byte) float64 {
	n := len(pcm) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Peak returns the largest absolute sample value of PCM16 audio in 16-bit
// units (0–32768).
func Peak(pcm []byte) int {
	peak := 0
	for i := 0; i+BytesPerSample <= len(pcm); i += BytesPerSample {
		s := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Duration returns the playback duration in seconds of PCM16 mono audio at
// the given sample rate.
func Duration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(pcm)/BytesPerSample) / float64(sampleRate)
}
