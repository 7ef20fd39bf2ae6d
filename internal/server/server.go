// Package server exposes the voice session WebSocket endpoint.
//
// One connection carries one voice session. The receive loop feeds every
// inbound audio frame through the VAD engine and the speech segmenter;
// completed utterances are handed to the turn orchestrator in a separate
// goroutine so the loop keeps consuming frames during processing. When no
// frame arrives within the read timeout the loop sends a keepalive ping
// instead of treating the lull as a disconnect.
package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/internal/store"
	"github.com/tablevox/tablevox/internal/voice/segment"
	"github.com/tablevox/tablevox/internal/voice/turn"
	"github.com/tablevox/tablevox/pkg/audio"
	"github.com/tablevox/tablevox/pkg/provider/vad"
)

// Config tunes the server.
type Config struct {
	// SampleRate of inbound audio in Hz.
	SampleRate int

	// ReadTimeout is the bounded wait on each frame receive. On expiry the
	// server sends a keepalive ping and keeps waiting.
	ReadTimeout time.Duration

	// Language is the default reply language (lowercase ISO 639-1) for
	// sessions that do not request one.
	Language string

	// Segment configures the per-session speech segmenter.
	Segment segment.Config
}

// Server accepts voice session connections. Safe for concurrent use; all
// per-connection state lives in the handler.
type Server struct {
	cfg     Config
	engine  vad.Engine
	orch    *turn.Orchestrator
	store   store.Store
	metrics *observe.Metrics
}

// Option is a functional option for Server.
type Option func(*Server)

// WithStore attaches a session store. Session rows are best-effort; store
// failures never reject a connection.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server.
func New(cfg Config, engine vad.Engine, orch *turn.Orchestrator, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		orch:   orch,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Register adds the /ws route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	seg, err := segment.New(s.cfg.Segment)
	if err != nil {
		log.Error("segmenter config invalid", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "server misconfigured")
		return
	}

	sessionID := newSessionID()
	language := sessionLanguage(r, s.cfg.Language)
	sess := turn.NewSession(sessionID, language)
	sender := newWSSender(conn)
	log = log.With("session_id", sessionID)

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	s.createSession(ctx, sess, log)
	defer s.closeSession(sess, log)

	// Teardown stops any in-flight synthesis at the next chunk boundary.
	defer sess.Stop.Request()

	if err := sender.ConnectionEstablished(sessionID, language); err != nil {
		log.Debug("send connection_established failed", "error", err)
		return
	}
	log.Info("voice session connected", "remote", r.RemoteAddr, "language", language)

	s.receiveLoop(ctx, conn, sess, sender, seg, log)
	log.Info("voice session closed")
}

// receiveLoop reads messages until the connection drops. A reader
// goroutine decouples the websocket read from the keepalive timer; a read
// context deadline is not usable here because its expiry would close the
// connection.
func (s *Server) receiveLoop(ctx context.Context, conn *websocket.Conn, sess *turn.Session, sender *wsSender, seg *segment.Segmenter, log *slog.Logger) {
	msgs := make(chan inboundMessage)
	go func() {
		defer close(msgs)
		for {
			var msg inboundMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				log.Debug("websocket read ended", "error", err)
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepalive := time.NewTimer(s.cfg.ReadTimeout)
	defer keepalive.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if !keepalive.Stop() {
				select {
				case <-keepalive.C:
				default:
				}
			}
			keepalive.Reset(s.cfg.ReadTimeout)
			s.dispatch(ctx, sess, sender, seg, msg, log)

		case <-keepalive.C:
			if err := sender.Ping(); err != nil {
				log.Debug("keepalive ping failed", "error", err)
				return
			}
			keepalive.Reset(s.cfg.ReadTimeout)

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sess *turn.Session, sender *wsSender, seg *segment.Segmenter, msg inboundMessage, log *slog.Logger) {
	switch msg.Type {
	case msgAudioChunk:
		frame, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			log.Debug("invalid audio payload", "error", err)
			return
		}
		s.handleFrame(ctx, sess, sender, seg, frame, log)

	case msgControl:
		if msg.Action == actionStopSpeech {
			log.Debug("stop_speech requested")
			sess.Stop.Request()
			return
		}
		log.Debug("unknown control action", "action", msg.Action)

	default:
		log.Debug("unknown message type", "type", msg.Type)
	}
}

// handleFrame classifies one frame and drives the segmenter. Classifier
// failure is scored as silence so a broken model can never hold a session
// in the speaking state.
func (s *Server) handleFrame(ctx context.Context, sess *turn.Session, sender *wsSender, seg *segment.Segmenter, frame []byte, log *slog.Logger) {
	samples := audio.BytesToFloat32(frame)
	p, err := s.engine.Classify(samples, s.cfg.SampleRate)
	if err != nil {
		log.Debug("frame classification failed, scoring as silence", "error", err)
		p = 0
	}

	ev := seg.Process(frame, p)
	switch ev.Kind {
	case segment.EventSpeechStarted:
		log.Debug("speech started")
		if err := sender.SpeechStarted(); err != nil {
			log.Debug("send speech_started failed", "error", err)
		}

	case segment.EventSpeechEnded:
		log.Debug("speech ended", "bytes", len(ev.Utterance))
		if err := sender.SpeechEnded(); err != nil {
			log.Debug("send speech_ended failed", "error", err)
		}
		go s.orch.Process(ctx, sess, sender, ev.Utterance)
	}
}

func (s *Server) createSession(ctx context.Context, sess *turn.Session, log *slog.Logger) {
	if s.store == nil {
		return
	}
	if err := s.store.CreateSession(ctx, sess.ID, sess.Language); err != nil {
		log.Warn("session row create failed", "error", err)
	}
}

func (s *Server) closeSession(sess *turn.Session, log *slog.Logger) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.CloseSession(ctx, sess.ID); err != nil {
		log.Warn("session row close failed", "error", err)
	}
}

// newSessionID produces a random 16-byte hex session identifier.
func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms; a timestamp
		// keeps the session usable if it somehow does.
		return "session-" + time.Now().UTC().Format("20060102T150405.000000000")
	}
	return hex.EncodeToString(b)
}

// sessionLanguage picks the reply language from the lang query parameter,
// falling back to the configured default for absent or malformed values.
func sessionLanguage(r *http.Request, fallback string) string {
	lang := r.URL.Query().Get("lang")
	if len(lang) != 2 {
		return fallback
	}
	for _, c := range lang {
		if c < 'a' || c > 'z' {
			return fallback
		}
	}
	return lang
}
