// Package whisper provides a transcribe.Transcriber backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH.
//
// The model is loaded once at construction and shared across all concurrent
// transcriptions; each call creates its own whisper context, which is the
// binding's unit of thread confinement.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/tablevox/tablevox/pkg/provider/transcribe"
)

const defaultLanguage = "en"

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithLanguage sets the default transcription language used when a request
// does not specify one. Default: "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// Transcriber implements [transcribe.Transcriber] using a local whisper.cpp
// model. Safe for concurrent use.
type Transcriber struct {
	model    whisperlib.Model
	language string
}

// Compile-time check that *Transcriber satisfies transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// New loads the whisper.cpp model from modelPath. The caller must call
// Close when the transcriber is no longer needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements [transcribe.Transcriber]. The WAV payload must be
// PCM16 mono at the model's expected sample rate (16 kHz).
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte, req transcribe.Request) (*transcribe.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	samples, err := wavToFloat32(wav)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return nil, errors.New("whisper: no audio samples")
	}

	// Each whisper context is single-use and not thread-safe; the model
	// itself can be shared.
	wctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = t.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}
	if req.VocabularyHint != "" {
		wctx.SetInitialPrompt(req.VocabularyHint)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(segment.Text))
	}

	return &transcribe.Result{
		Text: strings.Join(parts, " "),
		// whisper.cpp does not expose a usable overall confidence.
		Confidence: 0,
	}, nil
}

// wavToFloat32 extracts the PCM16 data chunk from a RIFF/WAVE payload and
// converts it to float32 samples in [-1, 1]. Only canonical PCM16 files are
// supported; anything else is an error rather than garbage audio.
func wavToFloat32(wav []byte) ([]float32, error) {
	if len(wav) < 12 || string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE payload")
	}

	// Walk chunks until "data".
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if body+size > len(wav) {
			size = len(wav) - body
		}
		if id == "data" {
			pcm := wav[body : body+size]
			n := len(pcm) / 2
			out := make([]float32, n)
			for i := 0; i < n; i++ {
				out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
			}
			return out, nil
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}
	return nil, errors.New("missing data chunk")
}
