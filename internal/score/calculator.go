package score

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/slopwatch/internal/metrics"
	"github.com/ppiankov/slopwatch/internal/model"
	"github.com/ppiankov/slopwatch/internal/store"
)

// Source is the read side of a verdict store
type Source interface {
	Verdicts(ctx context.Context, filter store.Filter) ([]model.Verdict, error)
	CountClaims(ctx context.Context, since time.Time) (int, error)
}

// Calculator computes scores over a trailing window of stored verdicts
type Calculator struct {
	source Source
	scorer *Scorer
	window time.Duration
	now    func() time.Time
}

// NewCalculator creates a calculator with the given trailing window
func NewCalculator(source Source, window time.Duration) *Calculator {
	return &Calculator{
		source: source,
		scorer: NewScorer(),
		window: window,
		now:    time.Now,
	}
}

// SlopScore returns lies / analyzed for verdicts resolved since the given time
func (c *Calculator) SlopScore(ctx context.Context, since time.Time) (float64, error) {
	verdicts, err := c.source.Verdicts(ctx, store.Filter{Since: since})
	if err != nil {
		return 0, fmt.Errorf("loading verdicts: %w", err)
	}
	return c.scorer.SlopScore(verdicts), nil
}

// Stats aggregates the trailing window; pending comes from the engine
func (c *Calculator) Stats(ctx context.Context, pending int) (model.Stats, error) {
	since := c.now().Add(-c.window)

	verdicts, err := c.source.Verdicts(ctx, store.Filter{Since: since})
	if err != nil {
		return model.Stats{}, fmt.Errorf("loading verdicts: %w", err)
	}
	claims, err := c.source.CountClaims(ctx, since)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting claims: %w", err)
	}

	stats := c.scorer.Calculate(verdicts, claims, pending)
	metrics.SlopScore.Set(stats.SlopScore)
	return stats, nil
}
