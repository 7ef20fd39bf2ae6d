// Package mock provides a test double for the respond.Responder interface.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/pkg/provider/respond"
)

// RespondCall records a single invocation of Responder.Respond.
type RespondCall struct {
	Transcript string
	SessionCtx respond.SessionContext
}

// Responder is a mock implementation of respond.Responder.
//
// Replies are consumed in order; when exhausted, the last reply repeats.
type Responder struct {
	mu sync.Mutex

	// Replies are returned by successive Respond calls.
	Replies []string

	// Err, if non-nil, is returned as the error from every Respond call.
	Err error

	// Calls records every Respond invocation in order.
	Calls []RespondCall

	next int
}

// Compile-time check that Responder satisfies respond.Responder.
var _ respond.Responder = (*Responder)(nil)

// Respond records the call and returns the next scripted reply.
func (r *Responder) Respond(_ context.Context, transcript string, sctx respond.SessionContext) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RespondCall{Transcript: transcript, SessionCtx: sctx})
	if r.Err != nil {
		return "", r.Err
	}
	if len(r.Replies) == 0 {
		return "", nil
	}
	reply := r.Replies[min(r.next, len(r.Replies)-1)]
	r.next++
	return reply, nil
}

// CallCount returns the number of recorded Respond calls.
func (r *Responder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// Reset clears all recorded calls and rewinds the reply script.
func (r *Responder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
	r.next = 0
}
