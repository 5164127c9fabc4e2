package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/slopwatch/internal/model"
)

// Registry manages domain detectors
type Registry struct {
	detectors []Detector
	generic   Detector
	timeout   time.Duration
}

// NewRegistry creates an empty registry; timeout bounds each Analyze call
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		detectors: make([]Detector, 0),
		timeout:   timeout,
	}
}

// NewDefaultRegistry builds the registry from the enabled detectors, in order.
// The generic detector, when enabled, is always the fallback.
func NewDefaultRegistry(cfg *model.Config) *Registry {
	registry := NewRegistry(cfg.DetectorTimeout)
	params := cfg.Thresholds

	for _, name := range cfg.EnabledDetectors {
		switch model.Domain(name) {
		case model.DomainStyling:
			registry.Register(NewStylingDetector(params))
		case model.DomainScripting:
			registry.Register(NewScriptingDetector(params))
		case model.DomainSecurity:
			registry.Register(NewSecurityDetector(params))
		case model.DomainTesting:
			registry.Register(NewTestingDetector(params))
		case model.DomainErrors:
			registry.Register(NewErrorsDetector(params))
		case model.DomainGeneric:
			registry.SetFallback(NewGenericDetector(params))
		}
	}

	return registry
}

// Register registers a new detector
func (r *Registry) Register(detector Detector) {
	r.detectors = append(r.detectors, detector)
}

// SetFallback sets the detector used when no registered detector can handle a claim
func (r *Registry) SetFallback(detector Detector) {
	r.generic = detector
}

// Select finds the first detector that can handle the claim, or nil
func (r *Registry) Select(claim model.Claim) Detector {
	for _, d := range r.detectors {
		if d.CanHandle(claim) {
			return d
		}
	}
	if r.generic != nil && r.generic.CanHandle(claim) {
		return r.generic
	}
	return nil
}

// Names lists registered detectors in selection order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors)+1)
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	if r.generic != nil {
		names = append(names, r.generic.Name())
	}
	return names
}

// Related is the relatedness predicate between a claim and a file change
func (r *Registry) Related(claim model.Claim, change model.FileChangeEvent) bool {
	if d := r.Select(claim); d != nil {
		if rel, ok := d.(Relevance); ok {
			return rel.Relevant(change)
		}
	}
	return relatedBySource(change)
}

// Analyze selects a detector and runs it with a time bound. A missing
// detector, a timeout or a panic all produce an unknown verdict.
func (r *Registry) Analyze(ctx context.Context, claim model.Claim, changes []model.FileChangeEvent) model.Verdict {
	detector := r.Select(claim)
	if detector == nil {
		return unknownVerdict(claim, "", "no suitable detector")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan model.Verdict, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Detector panicked", "detector", detector.Name(), "claim_id", claim.ID, "panic", p)
				done <- unknownVerdict(claim, detector.Name(), fmt.Sprintf("detector failed: %v", p))
			}
		}()
		done <- detector.Analyze(claim, changes)
	}()

	select {
	case v := <-done:
		v.Confidence = model.ClampConfidence(v.Confidence)
		return v
	case <-ctx.Done():
		slog.Warn("Detector timed out", "detector", detector.Name(), "claim_id", claim.ID, "timeout", r.timeout)
		return unknownVerdict(claim, detector.Name(), "detector timed out")
	}
}

func unknownVerdict(claim model.Claim, detector, reason string) model.Verdict {
	return model.Verdict{
		ClaimID:      claim.ID,
		ClaimText:    claim.Text,
		Domain:       claim.Domain,
		Status:       model.StatusUnknown,
		Confidence:   0,
		Reason:       reason,
		DetectorName: detector,
	}
}
