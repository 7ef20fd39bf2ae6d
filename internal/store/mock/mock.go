// Package mock provides an in-memory test double for the store.Store
// interface.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/internal/store"
)

// Store is an in-memory store.Store implementation.
type Store struct {
	mu sync.Mutex

	// Err, if non-nil, is returned from every method.
	Err error

	// Sessions maps session ID to language for created sessions.
	Sessions map[string]string

	// Closed lists session IDs passed to CloseSession.
	Closed []string

	// Turns records every saved turn in order.
	Turns []store.Turn
}

// Compile-time check that *Store satisfies store.Store.
var _ store.Store = (*Store)(nil)

// CreateSession implements [store.Store].
func (s *Store) CreateSession(_ context.Context, sessionID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.Sessions == nil {
		s.Sessions = make(map[string]string)
	}
	s.Sessions[sessionID] = language
	return nil
}

// CloseSession implements [store.Store].
func (s *Store) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Closed = append(s.Closed, sessionID)
	return nil
}

// SaveTurn implements [store.Store].
func (s *Store) SaveTurn(_ context.Context, t store.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Turns = append(s.Turns, t)
	return nil
}

// SessionLanguage returns the language recorded for sessionID, or "" when
// the session was never created.
func (s *Store) SessionLanguage(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Sessions[sessionID]
}

// ClosedCount returns the number of CloseSession calls.
func (s *Store) ClosedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Closed)
}

// TurnCount returns the number of saved turns.
func (s *Store) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Turns)
}

// Close implements [store.Store].
func (s *Store) Close() {}
