package preprocess

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tablevox/tablevox/pkg/audio"
)

const testRate = 16000

func testConfig() Config {
	return Config{
		SampleRate:        testRate,
		MinSegmentSeconds: 0.5,
		MinTrimmedSeconds: 0.25,
	}
}

func mustNew(t *testing.T) *Preprocessor {
	t.Helper()
	p, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// silence returns seconds of zero PCM16 audio.
func silence(seconds float64) []byte {
	return make([]byte, int(float64(testRate)*seconds)*audio.BytesPerSample)
}

// burst returns seconds of constant-amplitude square wave samples.
func burst(seconds float64, amplitude float32) []byte {
	n := int(float64(testRate) * seconds)
	samples := make([]float32, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	return audio.Float32ToBytes(samples)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero segment minimum", func(c *Config) { c.MinSegmentSeconds = 0 }},
		{"zero trimmed minimum", func(c *Config) { c.MinTrimmedSeconds = 0 }},
		{"trimmed above segment", func(c *Config) { c.MinTrimmedSeconds = 1.0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("New accepted invalid config, want error")
			}
		})
	}
}

func TestRejectsTooShort(t *testing.T) {
	t.Parallel()

	p := mustNew(t)
	_, err := p.Process(burst(0.3, 0.5))
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
	if !IsRejection(err) {
		t.Error("IsRejection = false for ErrTooShort")
	}
}

func TestRejectsAllSilence(t *testing.T) {
	t.Parallel()

	p := mustNew(t)
	_, err := p.Process(silence(1.0))
	if !errors.Is(err, ErrAllSilence) {
		t.Fatalf("err = %v, want ErrAllSilence", err)
	}
	if !IsRejection(err) {
		t.Error("IsRejection = false for ErrAllSilence")
	}
}

func TestRejectsTrimmedTooShort(t *testing.T) {
	t.Parallel()

	// A 0.1 s blip inside one second of silence trims to roughly 0.2 s
	// with margins, below the 0.25 s minimum.
	p := mustNew(t)
	pcm := append(silence(0.45), burst(0.1, 0.5)...)
	pcm = append(pcm, silence(0.45)...)
	_, err := p.Process(pcm)
	if !errors.Is(err, ErrTrimmedTooShort) {
		t.Fatalf("err = %v, want ErrTrimmedTooShort", err)
	}
}

func TestAcceptsAndNormalizes(t *testing.T) {
	t.Parallel()

	p := mustNew(t)
	pcm := append(silence(0.3), burst(0.5, 0.4)...)
	pcm = append(pcm, silence(0.3)...)
	out, err := p.Process(pcm)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Trimmed to the burst plus a 50 ms margin on each side.
	gotDur := audio.Duration(out, testRate)
	if gotDur < 0.55 || gotDur > 0.7 {
		t.Errorf("trimmed duration = %.3fs, want about 0.6s", gotDur)
	}

	// Peak normalized to the target amplitude.
	peak := audio.Peak(out)
	target := float64(normalizeTarget)
	want := int(target * 32767)
	if peak < want-300 || peak > want+300 {
		t.Errorf("peak = %d, want about %d", peak, want)
	}
}

func TestShortConfirmationAccepted(t *testing.T) {
	t.Parallel()

	// A 0.3 s word ("yes") inside a longer capture survives the trimmed
	// minimum of 0.25 s.
	p := mustNew(t)
	pcm := append(silence(0.4), burst(0.3, 0.5)...)
	pcm = append(pcm, silence(0.4)...)
	if _, err := p.Process(pcm); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestRejectionAlwaysBeforeOutput(t *testing.T) {
	t.Parallel()

	p := mustNew(t)
	for _, pcm := range [][]byte{nil, {}, silence(0.1), burst(0.49, 0.5)} {
		out, err := p.Process(pcm)
		if err == nil {
			t.Fatalf("Process(%d bytes) accepted, want rejection", len(pcm))
		}
		if out != nil {
			t.Errorf("Process returned output alongside error %v", err)
		}
	}
}

func TestDeterministic(t *testing.T) {
	t.Parallel()

	p := mustNew(t)
	pcm := append(silence(0.3), burst(0.5, 0.4)...)
	pcm = append(pcm, silence(0.3)...)
	a, errA := p.Process(pcm)
	b, errB := p.Process(pcm)
	if (errA == nil) != (errB == nil) {
		t.Fatalf("errors differ: %v vs %v", errA, errB)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical input produced different output")
	}
}
