// Package openaicompat provides a transcribe.Transcriber backed by any
// OpenAI-compatible POST /v1/audio/transcriptions endpoint: the hosted
// OpenAI API, a whisper-server instance, or any gateway speaking the same
// multipart protocol.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tablevox/tablevox/pkg/provider/transcribe"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "whisper-1"
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read back for
	// the error message.
	maxErrorBody = 2048
)

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithBaseURL overrides the default API base URL (e.g. a local
// whisper-server at "http://localhost:8080").
func WithBaseURL(url string) Option {
	return func(t *Transcriber) { t.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the transcription model name. Default: "whisper-1".
func WithModel(model string) Option {
	return func(t *Transcriber) { t.model = model }
}

// WithTimeout sets the per-request HTTP timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) { t.httpClient.Timeout = d }
}

// Transcriber implements [transcribe.Transcriber] over the OpenAI-compatible
// multipart transcription protocol. It is safe for concurrent use.
type Transcriber struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Compile-time check that *Transcriber satisfies transcribe.Transcriber.
var _ transcribe.Transcriber = (*Transcriber)(nil)

// New creates a Transcriber. apiKey may be empty for unauthenticated local
// servers.
func New(apiKey string, opts ...Option) *Transcriber {
	t := &Transcriber{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// transcriptionResponse is the verbose_json response body. The plain json
// format only carries "text"; segments appear when the server supports
// verbose output and are used to derive a confidence score.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Transcribe implements [transcribe.Transcriber].
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte, req transcribe.Request) (*transcribe.Result, error) {
	if len(wav) == 0 {
		return nil, errors.New("openaicompat: empty audio")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("openaicompat: create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("openaicompat: write audio: %w", err)
	}

	writer.WriteField("model", t.model)
	writer.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		writer.WriteField("language", req.Language)
	}
	if req.VocabularyHint != "" {
		writer.WriteField("prompt", req.VocabularyHint)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("openaicompat: finalize form: %w", err)
	}

	endpoint := t.baseURL + "/v1/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: create request: %w", err)
	}
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("openaicompat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("openaicompat: decode response: %w", err)
	}

	return &transcribe.Result{
		Text:       strings.TrimSpace(tr.Text),
		Confidence: confidenceFromSegments(tr.Segments),
	}, nil
}

// confidenceFromSegments maps whisper's average log probabilities to a rough
// [0, 1] confidence. Log probs near 0 mean high confidence; -1 and below
// mean the decoder was guessing. Returns 0 when no segments are present.
func confidenceFromSegments(segments []struct {
	AvgLogprob float64 `json:"avg_logprob"`
}) float64 {
	if len(segments) == 0 {
		return 0
	}
	var sum float64
	for _, s := range segments {
		sum += s.AvgLogprob
	}
	avg := sum / float64(len(segments))
	conf := 1 + avg // avg_logprob of 0 → 1.0, of -1 → 0.0
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return conf
}
