// Package engine correlates claims with file changes. A single goroutine
// owns the pending claims, the recent-changes buffer and every timer;
// producers only enqueue onto one bounded channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/slopwatch/internal/metrics"
	"github.com/ppiankov/slopwatch/internal/model"
)

// ErrStopped is returned for submissions after the engine has shut down
var ErrStopped = errors.New("engine stopped")

// lookback is how far before a claim's creation a change may still correlate
const lookback = 5 * time.Second

// engineDetector is the detector name recorded on expiry verdicts
const engineDetector = "engine"

// Analyzer selects and runs a detector. Implemented by detect.Registry.
type Analyzer interface {
	Analyze(ctx context.Context, claim model.Claim, changes []model.FileChangeEvent) model.Verdict
	Related(claim model.Claim, change model.FileChangeEvent) bool
}

// Recorder persists claims and terminal verdicts
type Recorder interface {
	SaveClaim(ctx context.Context, claim model.Claim) error
	SaveVerdict(ctx context.Context, verdict model.Verdict) error
}

// Options are the engine's timing and sizing parameters
type Options struct {
	Window        time.Duration
	InitialDelay  time.Duration
	SettleDelay   time.Duration
	SweepInterval time.Duration
	AutoAnalyze   bool
	QueueSize     int
	BufferSize    int
}

// OptionsFromConfig derives engine options from a validated config
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		Window:        cfg.AnalysisWindow,
		InitialDelay:  cfg.InitialDelay(),
		SettleDelay:   cfg.SettleDelay,
		SweepInterval: cfg.SweepInterval,
		AutoAnalyze:   cfg.AutoAnalyze,
		QueueSize:     cfg.QueueSize,
		BufferSize:    cfg.BufferSize,
	}
}

// Deps are the engine's injected collaborators. Analyzer and Recorder are
// required; the rest default to a real clock, a NopSink and slog.Default.
type Deps struct {
	Analyzer Analyzer
	Recorder Recorder
	Sink     Sink
	Clock    Clock
	Logger   *slog.Logger
}

type entry struct {
	claim model.Claim
	state model.ClaimState
}

type claimMsg struct{ claim model.Claim }
type changeMsg struct{ change model.FileChangeEvent }
type analyzeMsg struct{ reply chan int }
type pendingMsg struct{ reply chan int }

// Engine is the correlation state machine
type Engine struct {
	opts     Options
	analyzer Analyzer
	recorder Recorder
	sink     Sink
	clock    Clock
	logger   *slog.Logger

	inbox    chan any
	results  chan model.Verdict
	stopping chan struct{}
	done     chan struct{}
	running  atomic.Bool
	wg       sync.WaitGroup
	baseCtx  context.Context

	// Owned by the Run goroutine
	pending    map[string]*entry
	evaluating map[string]*entry
	buffer     []model.FileChangeEvent
	timers     *delayQueue
}

// New creates an engine; call Run to start its loop
func New(opts Options, deps Deps) (*Engine, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("engine: analyzer is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("engine: recorder is required")
	}
	if opts.Window <= 0 || opts.InitialDelay <= 0 || opts.SettleDelay <= 0 || opts.SweepInterval <= 0 {
		return nil, fmt.Errorf("engine: window and delays must be positive")
	}
	if opts.QueueSize <= 0 || opts.BufferSize <= 0 {
		return nil, fmt.Errorf("engine: queue and buffer sizes must be positive")
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Engine{
		opts:       opts,
		analyzer:   deps.Analyzer,
		recorder:   deps.Recorder,
		sink:       deps.Sink,
		clock:      deps.Clock,
		logger:     deps.Logger.With("component", "engine"),
		inbox:      make(chan any, opts.QueueSize),
		results:    make(chan model.Verdict),
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
		pending:    make(map[string]*entry),
		evaluating: make(map[string]*entry),
		timers:     newDelayQueue(),
	}, nil
}

// SubmitClaim enqueues a claim. It blocks only while the queue is full.
func (e *Engine) SubmitClaim(ctx context.Context, claim model.Claim) error {
	return e.send(ctx, claimMsg{claim: claim})
}

// SubmitChange enqueues a file change
func (e *Engine) SubmitChange(ctx context.Context, change model.FileChangeEvent) error {
	return e.send(ctx, changeMsg{change: change})
}

// AnalyzePending evaluates every pending claim immediately and returns how
// many were dispatched
func (e *Engine) AnalyzePending(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := e.send(ctx, analyzeMsg{reply: reply}); err != nil {
		return 0, err
	}
	return e.await(ctx, reply)
}

// Pending returns the number of claims awaiting evaluation. The answer
// reflects every message submitted before the call.
func (e *Engine) Pending(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := e.send(ctx, pendingMsg{reply: reply}); err != nil {
		return 0, err
	}
	return e.await(ctx, reply)
}

// Done is closed once Run has returned and in-flight work has finished
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) send(ctx context.Context, msg any) error {
	select {
	case <-e.stopping:
		return ErrStopped
	default:
	}

	select {
	case e.inbox <- msg:
		return nil
	case <-e.stopping:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) await(ctx context.Context, reply chan int) (int, error) {
	select {
	case n := <-reply:
		return n, nil
	case <-e.stopping:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Run is the engine loop. It returns when ctx is cancelled, after
// cancelling all timers and waiting for in-flight evaluations.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer close(e.done)

	e.baseCtx = context.WithoutCancel(ctx)
	e.timers.Arm(sweepKey, timerSweep, e.clock.Now().Add(e.opts.SweepInterval))

	e.logger.Info("Correlation engine started",
		"window", e.opts.Window,
		"initial_delay", e.opts.InitialDelay,
		"auto_analyze", e.opts.AutoAnalyze)

	var wake <-chan time.Time
	var wakeAt time.Time

	for {
		// Re-arm the wakeup only when the earliest deadline moved
		if next, ok := e.timers.Peek(); ok {
			if wake == nil || !next.Equal(wakeAt) {
				wakeAt = next
				wake = e.clock.After(next.Sub(e.clock.Now()))
			}
		} else {
			wake = nil
		}

		select {
		case <-ctx.Done():
			e.shutdown()
			return nil

		case msg := <-e.inbox:
			e.handle(msg)

		case v := <-e.results:
			e.resolve(v)

		case <-wake:
			wake = nil
			e.fire()
		}
	}
}

func (e *Engine) shutdown() {
	close(e.stopping)
	e.timers.Clear()
	e.wg.Wait()

	if n := len(e.pending); n > 0 {
		e.logger.Info("Correlation engine stopped with unresolved claims", "pending", n)
	} else {
		e.logger.Info("Correlation engine stopped")
	}
	metrics.PendingClaims.Set(0)
}

func (e *Engine) handle(msg any) {
	switch m := msg.(type) {
	case claimMsg:
		e.addClaim(m.claim)
	case changeMsg:
		e.addChange(m.change)
	case analyzeMsg:
		m.reply <- e.analyzeAll()
	case pendingMsg:
		m.reply <- len(e.pending)
	}
}

func (e *Engine) addClaim(claim model.Claim) {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = e.clock.Now()
	}
	if _, ok := e.pending[claim.ID]; ok {
		e.logger.Debug("Duplicate claim ignored", "claim_id", claim.ID)
		return
	}
	if _, ok := e.evaluating[claim.ID]; ok {
		e.logger.Debug("Duplicate claim ignored", "claim_id", claim.ID)
		return
	}

	ent := &entry{claim: claim, state: model.StatePending}
	e.pending[claim.ID] = ent
	e.sink.SendClaim(claim)
	e.spawn(func() {
		if err := e.recorder.SaveClaim(e.baseCtx, claim); err != nil {
			e.logger.Error("Failed to save claim", "claim_id", claim.ID, "error", err)
		}
	})

	if e.opts.AutoAnalyze {
		e.timers.Arm(claim.ID, timerEvaluate, e.clock.Now().Add(e.opts.InitialDelay))
		e.transition(ent, model.StateScheduled)
	}

	e.logger.Debug("Claim registered",
		"claim_id", claim.ID,
		"domain", claim.Domain,
		"action", claim.Action,
		"confidence", claim.Confidence,
		"state", ent.state)
	metrics.PendingClaims.Set(float64(len(e.pending)))
}

func (e *Engine) addChange(change model.FileChangeEvent) {
	now := e.clock.Now()
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = now
	}

	e.buffer = append(e.buffer, change)
	e.evict(now)

	if !e.opts.AutoAnalyze {
		return
	}

	for id, ent := range e.pending {
		if change.OccurredAt.After(ent.claim.CreatedAt.Add(e.opts.Window)) {
			continue
		}
		if !e.analyzer.Related(ent.claim, change) {
			continue
		}
		// Let further related edits land before evaluating
		e.timers.Cancel(id)
		e.timers.Arm(id, timerEvaluate, now.Add(e.opts.SettleDelay))
		e.transition(ent, model.StateScheduled)
		e.logger.Debug("Claim re-armed by related change", "claim_id", id, "path", change.Path)
	}
}

// evict drops buffered changes older than the window plus the lookback,
// then the oldest ones beyond the buffer capacity
func (e *Engine) evict(now time.Time) {
	cutoff := now.Add(-(e.opts.Window + lookback))
	kept := e.buffer[:0]
	for _, c := range e.buffer {
		if !c.OccurredAt.Before(cutoff) {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(e.buffer); i++ {
		e.buffer[i] = model.FileChangeEvent{}
	}
	e.buffer = kept

	if over := len(e.buffer) - e.opts.BufferSize; over > 0 {
		e.buffer = append(e.buffer[:0], e.buffer[over:]...)
	}
	metrics.BufferedChanges.Set(float64(len(e.buffer)))
}

func (e *Engine) fire() {
	now := e.clock.Now()
	for _, item := range e.timers.PopDue(now) {
		switch item.kind {
		case timerSweep:
			e.sweep(now)
			e.timers.Arm(sweepKey, timerSweep, now.Add(e.opts.SweepInterval))
		case timerEvaluate:
			e.evaluate(item.key)
		}
	}
}

func (e *Engine) analyzeAll() int {
	dispatched := 0
	for id := range e.pending {
		if e.evaluate(id) {
			dispatched++
		}
	}
	return dispatched
}

// evaluate moves a claim out of pending and analyzes it off-loop. A claim
// that is no longer pending is skipped, so a claim is dispatched at most once.
func (e *Engine) evaluate(id string) bool {
	ent, ok := e.pending[id]
	if !ok {
		return false
	}
	delete(e.pending, id)
	e.timers.Cancel(id)
	e.transition(ent, model.StateEvaluating)
	e.evaluating[id] = ent
	metrics.PendingClaims.Set(float64(len(e.pending)))

	claim := ent.claim
	changes := e.correlated(claim)

	e.logger.Debug("Evaluating claim", "claim_id", id, "changes", len(changes))

	e.spawn(func() {
		start := time.Now()
		v := e.analyzer.Analyze(e.baseCtx, claim, changes)
		detector := v.DetectorName
		if detector == "" {
			detector = "none"
		}
		metrics.AnalysisLatency.WithLabelValues(detector).Observe(time.Since(start).Seconds())

		v = e.finish(claim, v)
		select {
		case e.results <- v:
		case <-e.stopping:
		}
	})
	return true
}

// correlated snapshots the buffered changes inside the claim's window that
// satisfy the relatedness predicate
func (e *Engine) correlated(claim model.Claim) []model.FileChangeEvent {
	from := claim.CreatedAt.Add(-lookback)
	to := claim.CreatedAt.Add(e.opts.Window)

	var out []model.FileChangeEvent
	for _, c := range e.buffer {
		if c.OccurredAt.Before(from) || c.OccurredAt.After(to) {
			continue
		}
		if e.analyzer.Related(claim, c) {
			out = append(out, c)
		}
	}
	return out
}

// sweep expires pending claims older than twice the window
func (e *Engine) sweep(now time.Time) {
	stale := 2 * e.opts.Window
	expired := 0
	for id, ent := range e.pending {
		if now.Sub(ent.claim.CreatedAt) <= stale {
			continue
		}
		e.timers.Cancel(id)
		delete(e.pending, id)
		e.transition(ent, model.StateExpired)
		expired++

		claim := ent.claim
		e.spawn(func() {
			e.finish(claim, model.Verdict{
				Status:       model.StatusUnknown,
				Reason:       model.ExpiredReason,
				DetectorName: engineDetector,
				Expired:      true,
			})
		})
	}
	e.evict(now)

	if expired > 0 {
		e.logger.Info("Expired stale claims", "count", expired, "pending", len(e.pending))
	}
	metrics.PendingClaims.Set(float64(len(e.pending)))
}

// finish stamps, persists and forwards a terminal verdict
func (e *Engine) finish(claim model.Claim, v model.Verdict) model.Verdict {
	v.ID = uuid.NewString()
	v.ClaimID = claim.ID
	if v.ClaimText == "" {
		v.ClaimText = claim.Text
	}
	if v.Domain == "" {
		v.Domain = claim.Domain
	}
	v.Confidence = model.ClampConfidence(v.Confidence)
	v.ResolvedAt = e.clock.Now()

	if err := e.recorder.SaveVerdict(e.baseCtx, v); err != nil {
		e.logger.Error("Failed to save verdict", "claim_id", claim.ID, "error", err)
	}
	e.sink.SendVerdict(v)
	metrics.Verdicts.WithLabelValues(v.DetectorName, string(v.Status)).Inc()
	return v
}

func (e *Engine) resolve(v model.Verdict) {
	ent, ok := e.evaluating[v.ClaimID]
	if !ok {
		return
	}
	delete(e.evaluating, v.ClaimID)
	e.transition(ent, model.StateResolved)
	e.logger.Info("Claim resolved",
		"claim_id", v.ClaimID,
		"state", ent.state,
		"status", v.Status,
		"confidence", v.Confidence,
		"detector", v.DetectorName,
		"reason", v.Reason)
}

// transition moves a claim to the next lifecycle state. Terminal states are final.
func (e *Engine) transition(ent *entry, to model.ClaimState) bool {
	if ent.state.Terminal() {
		e.logger.Warn("Ignoring transition out of terminal state",
			"claim_id", ent.claim.ID, "from", ent.state, "to", to)
		return false
	}
	ent.state = to
	return true
}

func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}
