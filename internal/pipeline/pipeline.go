// Package pipeline wires extraction, watching, correlation, storage and
// forwarding into one running slopwatch instance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/slopwatch/internal/detect"
	"github.com/ppiankov/slopwatch/internal/engine"
	"github.com/ppiankov/slopwatch/internal/extract"
	"github.com/ppiankov/slopwatch/internal/metrics"
	"github.com/ppiankov/slopwatch/internal/model"
	"github.com/ppiankov/slopwatch/internal/score"
	"github.com/ppiankov/slopwatch/internal/store"
	"github.com/ppiankov/slopwatch/internal/watch"
	"github.com/ppiankov/slopwatch/internal/worker"
)

// retentionInterval is how often old records are pruned
const retentionInterval = time.Hour

// Options carries optional collaborators; zero values use production defaults
type Options struct {
	Logger     *slog.Logger
	Clock      engine.Clock
	Store      store.Store // Overrides cfg.Store
	HTTPClient *http.Client
}

// Pipeline is one running slopwatch instance
type Pipeline struct {
	cfg       *model.Config
	extractor *extract.ClaimExtractor
	registry  *detect.Registry
	store     store.Store
	engine    *engine.Engine
	watcher   *watch.Watcher
	forwarder *worker.Forwarder // nil when forwarding is disabled
	calc      *score.Calculator
	clock     engine.Clock
	logger    *slog.Logger
	watching  chan struct{}
}

// New validates cfg and builds every component. Call Run to start them.
func New(cfg *model.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = engine.RealClock()
	}

	st := opts.Store
	if st == nil {
		var err error
		if st, err = store.Open(cfg.Store); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	p := &Pipeline{
		cfg:       cfg,
		extractor: extract.NewClaimExtractor(cfg.Thresholds),
		registry:  detect.NewDefaultRegistry(cfg),
		store:     st,
		calc:      score.NewCalculator(st, cfg.ScoreWindow),
		clock:     opts.Clock,
		logger:    opts.Logger.With("component", "pipeline"),
		watching:  make(chan struct{}),
		watcher: watch.New(watch.Options{
			Debounce:   cfg.Debounce,
			BufferSize: cfg.BufferSize,
			Logger:     opts.Logger,
		}),
	}

	sink, err := p.buildSink(opts)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p.engine, err = engine.New(engine.OptionsFromConfig(cfg), engine.Deps{
		Analyzer: p.registry,
		Recorder: st,
		Sink:     sink,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
	})
	if err != nil {
		p.closeForwarder()
		_ = st.Close()
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) buildSink(opts Options) (engine.Sink, error) {
	if p.cfg.Forward.URL == "" {
		return engine.NopSink{}, nil
	}
	f, err := worker.NewForwarder(p.cfg.Forward, opts.HTTPClient, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("forwarder: %w", err)
	}
	p.forwarder = f
	return f, nil
}

// Run starts the engine, the watcher pump and the retention sweep, and
// blocks until ctx is cancelled or the watcher cannot start.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.engine.Run(gctx)
	})

	g.Go(func() error {
		changes, err := p.watcher.Start(gctx, p.cfg.ProjectPath, p.cfg.Include, p.cfg.Exclude)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		close(p.watching)
		return p.pump(gctx, changes)
	})

	g.Go(func() error {
		store.RunRetention(gctx, p.store, p.cfg.Retention, retentionInterval, p.logger)
		return nil
	})

	err := g.Wait()
	p.watcher.Stop()
	return err
}

// Watching is closed once the project watcher is running
func (p *Pipeline) Watching() <-chan struct{} {
	return p.watching
}

// pump forwards watcher events into the engine until the stream closes
func (p *Pipeline) pump(ctx context.Context, changes <-chan model.FileChangeEvent) error {
	for change := range changes {
		if err := p.engine.SubmitChange(ctx, change); err != nil {
			if errors.Is(err, engine.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("Dropping file change", "path", change.Path, "error", err)
		}
	}
	return nil
}

// Close releases the forwarder and the store. Call after Run returns.
func (p *Pipeline) Close() error {
	p.closeForwarder()
	return p.store.Close()
}

func (p *Pipeline) closeForwarder() {
	if p.forwarder != nil {
		p.forwarder.Close()
	}
}

// SubmitMessage extracts claims from an assistant message and hands them to
// the engine. Messages from other roles yield no claims.
func (p *Pipeline) SubmitMessage(ctx context.Context, sessionID, role, content string, ts time.Time) ([]model.Claim, error) {
	if !extract.IsClaimSource(role) {
		return nil, nil
	}

	claims := p.extractor.Extract(extract.PlainText(content))
	if len(claims) == 0 {
		return nil, nil
	}

	now := p.clock.Now()
	createdAt := ts
	if createdAt.IsZero() || createdAt.After(now) {
		createdAt = now
	}

	for i := range claims {
		claims[i].ID = uuid.NewString()
		claims[i].SessionID = sessionID
		claims[i].CreatedAt = createdAt

		if err := p.engine.SubmitClaim(ctx, claims[i]); err != nil {
			return claims[:i], fmt.Errorf("submit claim: %w", err)
		}
		metrics.ClaimsExtracted.WithLabelValues(string(claims[i].Domain)).Inc()
	}

	p.logger.Debug("Claims extracted", "session", sessionID, "count", len(claims))
	return claims, nil
}

// RecentVerdicts returns verdicts resolved since the given time, newest first
func (p *Pipeline) RecentVerdicts(ctx context.Context, since time.Time) ([]model.Verdict, error) {
	return p.store.Verdicts(ctx, store.Filter{Since: since})
}

// Verdict returns the terminal verdict of one claim, if it has one
func (p *Pipeline) Verdict(ctx context.Context, claimID string) (model.Verdict, bool, error) {
	return p.store.Verdict(ctx, claimID)
}

// Stats aggregates the score window. It keeps answering after the engine
// has stopped, reporting no pending claims.
func (p *Pipeline) Stats(ctx context.Context) (model.Stats, error) {
	pending, err := p.engine.Pending(ctx)
	if err != nil && !errors.Is(err, engine.ErrStopped) {
		return model.Stats{}, fmt.Errorf("pending claims: %w", err)
	}
	return p.calc.Stats(ctx, pending)
}

// AnalyzePending evaluates every pending claim now
func (p *Pipeline) AnalyzePending(ctx context.Context) (int, error) {
	return p.engine.AnalyzePending(ctx)
}

// SubmitChange feeds an externally observed change into the engine
func (p *Pipeline) SubmitChange(ctx context.Context, change model.FileChangeEvent) error {
	return p.engine.SubmitChange(ctx, change)
}
