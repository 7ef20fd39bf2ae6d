package turn

import (
	"sync"
	"sync/atomic"

	"github.com/tablevox/tablevox/internal/voice/synth"
	"github.com/tablevox/tablevox/pkg/provider/respond"
)

// Session is the per-connection state shared between the receive loop and
// the orchestrator's background unit. The single-flight guard ensures the
// two never mutate it concurrently; the atomic flags exist because the
// guard itself must be race-free.
type Session struct {
	// ID identifies the session in logs, metrics, and the store.
	ID string

	// Language is the session's reply language (lowercase ISO 639-1).
	Language string

	// Stop is the cancellation flag for the current synthesis pass.
	Stop synth.StopFlag

	processing     atomic.Bool
	hallucinations atomic.Int32

	mu      sync.Mutex
	history []respond.Exchange
}

// NewSession creates a session.
func NewSession(id, language string) *Session {
	return &Session{ID: id, Language: language}
}

// TryBeginTurn attempts to acquire the single-flight guard. It returns
// false when a turn is already in flight.
func (s *Session) TryBeginTurn() bool {
	return s.processing.CompareAndSwap(false, true)
}

// EndTurn releases the single-flight guard.
func (s *Session) EndTurn() {
	s.processing.Store(false)
}

// Processing reports whether a turn is currently in flight.
func (s *Session) Processing() bool {
	return s.processing.Load()
}

// RecordHallucination increments the consecutive-hallucination counter and
// returns the new count.
func (s *Session) RecordHallucination() int {
	return int(s.hallucinations.Add(1))
}

// ResetHallucinations clears the consecutive-hallucination counter.
func (s *Session) ResetHallucinations() {
	s.hallucinations.Store(0)
}

// Hallucinations returns the current consecutive-hallucination count.
func (s *Session) Hallucinations() int {
	return int(s.hallucinations.Load())
}

// AppendExchange records a completed user/agent exchange.
func (s *Session) AppendExchange(user, agent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, respond.Exchange{User: user, Agent: agent})
}

// History returns a copy of the session's exchanges, oldest first.
func (s *Session) History() []respond.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]respond.Exchange, len(s.history))
	copy(out, s.history)
	return out
}
