package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestBytesToFloat32RoundTrip(t *testing.T) {
	t.Parallel()

	in := pcm16(0, 16384, -16384, 32767, -32768)
	floats := BytesToFloat32(in)
	if len(floats) != 5 {
		t.Fatalf("want 5 samples, got %d", len(floats))
	}
	if floats[0] != 0 {
		t.Errorf("sample 0: want 0, got %f", floats[0])
	}
	if math.Abs(float64(floats[1])-0.5) > 0.001 {
		t.Errorf("sample 1: want ~0.5, got %f", floats[1])
	}
	if math.Abs(float64(floats[4])+1.0) > 0.001 {
		t.Errorf("sample 4: want ~-1.0, got %f", floats[4])
	}

	back := Float32ToBytes(floats)
	if len(back) != len(in) {
		t.Fatalf("round trip length: want %d, got %d", len(in), len(back))
	}
}

func TestFloat32ToBytesClips(t *testing.T) {
	t.Parallel()

	out := Float32ToBytes([]float32{2.0, -2.0})
	if got := int16(binary.LittleEndian.Uint16(out)); got != 32767 {
		t.Errorf("positive clip: want 32767, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[2:])); got != -32767 {
		t.Errorf("negative clip: want -32767, got %d", got)
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	if got := RMS(nil); got != 0 {
		t.Errorf("empty: want 0, got %f", got)
	}
	if got := RMS(pcm16(0, 0, 0, 0)); got != 0 {
		t.Errorf("silence: want 0, got %f", got)
	}
	// Constant amplitude: RMS equals the amplitude.
	if got := RMS(pcm16(1000, -1000, 1000, -1000)); math.Abs(got-1000) > 0.01 {
		t.Errorf("constant amplitude: want 1000, got %f", got)
	}
}

func TestPeak(t *testing.T) {
	t.Parallel()

	if got := Peak(pcm16(10, -500, 200)); got != 500 {
		t.Errorf("want 500, got %d", got)
	}
	if got := Peak(nil); got != 0 {
		t.Errorf("empty: want 0, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	// 16000 samples at 16 kHz = 1 second.
	pcm := make([]byte, 16000*2)
	if got := Duration(pcm, 16000); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("want 1.0s, got %f", got)
	}
}

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	pcm := pcm16(1, 2, 3, 4)
	wav := EncodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("want %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE magic: %q %q", wav[:4], wav[8:12])
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 16000 {
		t.Errorf("sample rate: want 16000, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(pcm)) {
		t.Errorf("data length: want %d, got %d", len(pcm), got)
	}
}
