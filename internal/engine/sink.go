package engine

import "github.com/ppiankov/slopwatch/internal/model"

// Sink receives claims and verdicts as they are produced. Implementations
// must not block; the engine never waits on delivery.
type Sink interface {
	SendClaim(claim model.Claim)
	SendVerdict(verdict model.Verdict)
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) SendClaim(model.Claim)     {}
func (NopSink) SendVerdict(model.Verdict) {}
