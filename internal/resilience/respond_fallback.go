package resilience

import (
	"context"

	"github.com/tablevox/tablevox/pkg/provider/respond"
)

// RespondFallback implements [respond.Responder] with automatic failover
// across multiple agent backends, each behind its own circuit breaker.
type RespondFallback struct {
	group *FallbackGroup[respond.Responder]
}

// Compile-time interface assertion.
var _ respond.Responder = (*RespondFallback)(nil)

// NewRespondFallback creates a fallback with primary as the preferred
// backend.
func NewRespondFallback(primary respond.Responder, primaryName string, cfg FallbackConfig) *RespondFallback {
	return &RespondFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional responder as a fallback.
func (f *RespondFallback) AddFallback(name string, r respond.Responder) {
	f.group.AddFallback(name, r)
}

// Respond runs the transcript against the first healthy backend.
func (f *RespondFallback) Respond(ctx context.Context, transcript string, sessionCtx respond.SessionContext) (string, error) {
	return ExecuteWithResult(f.group, func(r respond.Responder) (string, error) {
		return r.Respond(ctx, transcript, sessionCtx)
	})
}
