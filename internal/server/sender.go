package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tablevox/tablevox/internal/voice/turn"
)

// writeTimeout bounds one outbound message so a stalled client cannot
// block a turn forever.
const writeTimeout = 10 * time.Second

// wsSender delivers protocol messages over one WebSocket connection. A
// mutex serializes writes because the receive loop (pings, speech events)
// and the turn goroutine (everything else) both send.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Compile-time check that *wsSender satisfies turn.Sender.
var _ turn.Sender = (*wsSender)(nil)

func newWSSender(conn *websocket.Conn) *wsSender {
	return &wsSender{conn: conn}
}

func (s *wsSender) send(msg outboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		return fmt.Errorf("server: write %s: %w", msg.Type, err)
	}
	return nil
}

// ConnectionEstablished announces the session to the client.
func (s *wsSender) ConnectionEstablished(sessionID, language string) error {
	return s.send(outboundMessage{
		Type:      msgConnectionEstablished,
		SessionID: sessionID,
		Language:  language,
	})
}

// SpeechStarted signals that an utterance capture began.
func (s *wsSender) SpeechStarted() error {
	return s.send(outboundMessage{Type: msgSpeechStarted})
}

// SpeechEnded signals that an utterance capture completed.
func (s *wsSender) SpeechEnded() error {
	return s.send(outboundMessage{Type: msgSpeechEnded})
}

// Ping is the keepalive sent when no frame arrives within the read
// timeout.
func (s *wsSender) Ping() error {
	return s.send(outboundMessage{Type: msgPing})
}

// ProcessingStart implements [turn.Sender].
func (s *wsSender) ProcessingStart() error {
	return s.send(outboundMessage{Type: msgProcessingStart})
}

// ProcessingEnd implements [turn.Sender].
func (s *wsSender) ProcessingEnd() error {
	return s.send(outboundMessage{Type: msgProcessingEnd})
}

// Transcript implements [turn.Sender].
func (s *wsSender) Transcript(text string) error {
	return s.send(outboundMessage{Type: msgTranscript, Text: text})
}

// ResponseText implements [turn.Sender].
func (s *wsSender) ResponseText(text string) error {
	return s.send(outboundMessage{Type: msgResponseText, Text: text})
}

// Error implements [turn.Sender].
func (s *wsSender) Error(message string) error {
	return s.send(outboundMessage{Type: msgError, Message: message})
}

// AudioStart implements [synth.Emitter].
func (s *wsSender) AudioStart() error {
	return s.send(outboundMessage{Type: msgAudioStart})
}

// AudioChunk implements [synth.Emitter].
func (s *wsSender) AudioChunk(chunk []byte) error {
	return s.send(outboundMessage{
		Type:  msgAudioChunk,
		Audio: base64.StdEncoding.EncodeToString(chunk),
	})
}

// AudioEnd implements [synth.Emitter].
func (s *wsSender) AudioEnd() error {
	return s.send(outboundMessage{Type: msgAudioEnd})
}
