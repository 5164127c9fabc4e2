package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/slopwatch/internal/detect"
	"github.com/ppiankov/slopwatch/internal/extract"
	"github.com/ppiankov/slopwatch/internal/model"
)

// CheckResult is the outcome of a one-shot check
type CheckResult struct {
	Claims   []model.Claim   `json:"claims"`
	Verdicts []model.Verdict `json:"verdicts"`
}

// Check extracts claims from text and classifies each one against the given
// changes immediately, without timers or a correlation window. It is the
// offline counterpart of the engine's evaluation step.
func Check(ctx context.Context, cfg *model.Config, text string, changes []model.FileChangeEvent) (*CheckResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor := extract.NewClaimExtractor(cfg.Thresholds)
	registry := detect.NewDefaultRegistry(cfg)

	result := &CheckResult{
		Claims:   extractor.Extract(extract.PlainText(text)),
		Verdicts: []model.Verdict{},
	}

	now := time.Now()
	for i := range result.Claims {
		claim := &result.Claims[i]
		claim.ID = uuid.NewString()
		claim.CreatedAt = now

		var related []model.FileChangeEvent
		for _, change := range changes {
			if registry.Related(*claim, change) {
				related = append(related, change)
			}
		}

		v := registry.Analyze(ctx, *claim, related)
		v.ID = uuid.NewString()
		v.ResolvedAt = time.Now()
		result.Verdicts = append(result.Verdicts, v)
	}

	return result, nil
}
