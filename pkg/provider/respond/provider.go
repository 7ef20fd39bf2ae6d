// Package respond defines the Responder interface for the downstream
// conversational ordering agent.
//
// The voice pipeline treats the agent as a black box: one accepted
// transcript in, one reply text out. Cart manipulation, menu lookups, and
// whatever reasoning the agent does happen behind this boundary.
//
// Implementations must be safe for concurrent use.
package respond

import "context"

// SessionContext carries the per-connection conversational state the agent
// needs to answer in context.
type SessionContext struct {
	// SessionID identifies the voice session for agent-side state.
	SessionID string

	// Language is the session's reply language (lowercase ISO 639-1).
	Language string

	// MenuVocabulary lists the menu item names available to order.
	MenuVocabulary []string

	// History holds prior exchanges of this session, oldest first.
	History []Exchange
}

// Exchange is one completed user/agent turn.
type Exchange struct {
	User  string
	Agent string
}

// Responder is the abstraction over the downstream ordering agent.
type Responder interface {
	// Respond returns the agent's reply to transcript. The reply is plain
	// text in the session's working language, ready for translation and
	// speech synthesis.
	Respond(ctx context.Context, transcript string, sctx SessionContext) (string, error)
}
