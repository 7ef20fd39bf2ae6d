package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	storemock "github.com/tablevox/tablevox/internal/store/mock"
	"github.com/tablevox/tablevox/internal/transcript"
	"github.com/tablevox/tablevox/internal/voice/preprocess"
	"github.com/tablevox/tablevox/internal/voice/segment"
	"github.com/tablevox/tablevox/internal/voice/synth"
	"github.com/tablevox/tablevox/internal/voice/turn"
	"github.com/tablevox/tablevox/pkg/audio"
	respondmock "github.com/tablevox/tablevox/pkg/provider/respond/mock"
	"github.com/tablevox/tablevox/pkg/provider/synthesize"
	synthmock "github.com/tablevox/tablevox/pkg/provider/synthesize/mock"
	"github.com/tablevox/tablevox/pkg/provider/transcribe"
	transcribemock "github.com/tablevox/tablevox/pkg/provider/transcribe/mock"
	vadmock "github.com/tablevox/tablevox/pkg/provider/vad/mock"
)

const (
	testRate = 16000

	// frameSamples is 100 ms per frame so a handful of frames clears the
	// preprocessor's minimum durations.
	frameSamples = testRate / 10
)

type serverFixture struct {
	engine *vadmock.Engine
	store  *storemock.Store
	srv    *httptest.Server
}

func newServerFixture(t *testing.T, readTimeout time.Duration) *serverFixture {
	t.Helper()

	pre, err := preprocess.New(preprocess.Config{
		SampleRate:        testRate,
		MinSegmentSeconds: 0.5,
		MinTrimmedSeconds: 0.25,
	})
	if err != nil {
		t.Fatalf("preprocess.New: %v", err)
	}
	transcriber := &transcribemock.Transcriber{
		Results: []transcribe.Result{{Text: "one masala dosa please", Confidence: 0.9}},
	}
	responder := &respondmock.Responder{Replies: []string{"Added to your order."}}
	synthProv := &synthmock.Synthesizer{ChunksPerFragment: 1}
	filter := transcript.NewFilter(transcript.FilterConfig{MaxWords: 100, BaseLanguage: "en"})
	orch := turn.New(
		turn.Config{SampleRate: testRate, BaseLanguage: "en", TurnTimeout: 10 * time.Second},
		pre, transcriber, filter, responder,
		turn.WithStreamer(synth.NewStreamer(synthProv, synthesize.Voice{ID: "voice-test"})),
	)

	f := &serverFixture{
		engine: &vadmock.Engine{},
		store:  &storemock.Store{},
	}
	s := New(Config{
		SampleRate:  testRate,
		ReadTimeout: readTimeout,
		Language:    "en",
		Segment: segment.Config{
			SpeechThreshold:       0.6,
			SilenceThreshold:      0.3,
			SilenceFramesRequired: 3,
			PrerollFrames:         2,
		},
	}, f.engine, orch, WithStore(f.store))

	mux := http.NewServeMux()
	s.Register(mux)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *serverFixture) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) outboundMessage {
	t.Helper()
	var msg outboundMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frame []byte) {
	t.Helper()
	err := wsjson.Write(ctx, conn, inboundMessage{
		Type:  msgAudioChunk,
		Audio: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		t.Fatalf("send frame: %v", err)
	}
}

// silentFrame is one frame of zeros.
func silentFrame() []byte {
	return make([]byte, frameSamples*audio.BytesPerSample)
}

// loudFrame is one frame of alternating strong samples.
func loudFrame() []byte {
	samples := make([]float32, frameSamples)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.4
		} else {
			samples[i] = -0.4
		}
	}
	return audio.Float32ToBytes(samples)
}

func TestConnectionEstablished(t *testing.T) {
	t.Parallel()

	f := newServerFixture(t, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "")
	msg := readMessage(t, ctx, conn)
	if msg.Type != msgConnectionEstablished {
		t.Fatalf("first message type = %q, want %q", msg.Type, msgConnectionEstablished)
	}
	if msg.SessionID == "" {
		t.Error("connection_established missing session_id")
	}
	if msg.Language != "en" {
		t.Errorf("language = %q, want en", msg.Language)
	}
}

func TestLanguageQueryParameter(t *testing.T) {
	t.Parallel()

	f := newServerFixture(t, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "?lang=de")
	msg := readMessage(t, ctx, conn)
	if msg.Language != "de" {
		t.Errorf("language = %q, want de", msg.Language)
	}
}

func TestVoiceTurnOverWebSocket(t *testing.T) {
	t.Parallel()

	f := newServerFixture(t, time.Minute)
	// Two quiet frames fill the pre-roll, five loud frames trigger and hold
	// speech, three quiet frames end the utterance.
	f.engine.Probabilities = []float64{
		0.1, 0.1,
		0.9, 0.9, 0.9, 0.9, 0.9,
		0.1, 0.1, 0.1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "")
	if msg := readMessage(t, ctx, conn); msg.Type != msgConnectionEstablished {
		t.Fatalf("first message = %q", msg.Type)
	}

	for i := 0; i < 2; i++ {
		sendFrame(t, ctx, conn, silentFrame())
	}
	for i := 0; i < 5; i++ {
		sendFrame(t, ctx, conn, loudFrame())
	}
	for i := 0; i < 3; i++ {
		sendFrame(t, ctx, conn, silentFrame())
	}

	var types []string
	for {
		msg := readMessage(t, ctx, conn)
		types = append(types, msg.Type)
		switch msg.Type {
		case msgTranscript:
			if msg.Text != "one masala dosa please" {
				t.Errorf("transcript = %q", msg.Text)
			}
		case msgResponseText:
			if msg.Text != "Added to your order." {
				t.Errorf("response text = %q", msg.Text)
			}
		case msgAudioChunk:
			if msg.Audio == "" {
				t.Error("audio_chunk missing payload")
			}
		}
		if msg.Type == msgProcessingEnd {
			break
		}
	}

	want := []string{
		msgSpeechStarted,
		msgSpeechEnded,
		msgProcessingStart,
		msgTranscript,
		msgResponseText,
		msgAudioStart,
		msgAudioChunk,
		msgAudioEnd,
		msgProcessingEnd,
	}
	if len(types) != len(want) {
		t.Fatalf("message sequence = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("message sequence = %v, want %v", types, want)
		}
	}
}

func TestKeepalivePing(t *testing.T) {
	t.Parallel()

	f := newServerFixture(t, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "")
	if msg := readMessage(t, ctx, conn); msg.Type != msgConnectionEstablished {
		t.Fatalf("first message = %q", msg.Type)
	}
	if msg := readMessage(t, ctx, conn); msg.Type != msgPing {
		t.Errorf("idle message = %q, want %q", msg.Type, msgPing)
	}
}

func TestSessionRowsWritten(t *testing.T) {
	t.Parallel()

	f := newServerFixture(t, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "")
	msg := readMessage(t, ctx, conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.After(3 * time.Second)
	for {
		created := f.store.SessionLanguage(msg.SessionID)
		closed := f.store.ClosedCount()
		if created != "" && closed == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session rows not written: created=%q closed=%d", created, closed)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSessionLanguageFallback(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  string
	}{
		{"", "en"},
		{"?lang=ta", "ta"},
		{"?lang=DE", "en"},
		{"?lang=deu", "en"},
		{"?lang=d1", "en"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws"+tc.query, nil)
		if got := sessionLanguage(r, "en"); got != tc.want {
			t.Errorf("sessionLanguage(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}
