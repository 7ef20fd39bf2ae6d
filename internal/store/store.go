// Package store defines the persistence interface for voice sessions and
// completed turns.
package store

import (
	"context"
	"time"
)

// Turn is one completed utterance-to-reply cycle.
type Turn struct {
	// SessionID identifies the voice session the turn belongs to.
	SessionID string

	// Transcript is the accepted, corrected transcript.
	Transcript string

	// Reply is the agent's reply as sent to the client.
	Reply string

	// Language is the session language at the time of the turn.
	Language string

	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}

// Store persists sessions and turns. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateSession records a new voice session.
	CreateSession(ctx context.Context, sessionID, language string) error

	// CloseSession marks a session as ended.
	CloseSession(ctx context.Context, sessionID string) error

	// SaveTurn appends a completed turn to the session's log.
	SaveTurn(ctx context.Context, t Turn) error

	// Close releases the underlying connections.
	Close()
}
