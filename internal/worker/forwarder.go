package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ppiankov/slopwatch/internal/metrics"
	"github.com/ppiankov/slopwatch/internal/model"
)

const (
	kindClaim   = "claim"
	kindVerdict = "verdict"

	// defaultDrainTimeout bounds how long Close waits for queued deliveries
	defaultDrainTimeout = 5 * time.Second
)

// Envelope is the JSON body posted for every forwarded record
type Envelope struct {
	Kind    string         `json:"kind"`
	Claim   *model.Claim   `json:"claim,omitempty"`
	Verdict *model.Verdict `json:"verdict,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// Forwarder delivers claims and verdicts to an external collaborator over
// HTTP. Sends never block: when the queue is full the record is dropped and
// counted.
type Forwarder struct {
	url     string
	client  *http.Client
	pool    *Pool
	limiter *Limiter
	logger  *slog.Logger
	drain   time.Duration

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
	drained chan struct{}
}

// NewForwarder starts a forwarder posting to cfg.URL
func NewForwarder(cfg model.ForwardConfig, client *http.Client, logger *slog.Logger) (*Forwarder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("forward url is empty")
	}
	if _, err := hostOf(cfg.URL); err != nil {
		return nil, fmt.Errorf("forward url: %w", err)
	}
	if client == nil {
		proxy, err := proxyFunc(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{Proxy: proxy},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Forwarder{
		url:     cfg.URL,
		client:  client,
		pool:    NewPool(cfg.Workers, cfg.Queue),
		limiter: NewLimiter(cfg.Rate, cfg.Burst),
		logger:  logger.With("component", "forwarder"),
		drain:   defaultDrainTimeout,
		drained: make(chan struct{}),
	}
	f.pool.Start()
	go f.collect()
	return f, nil
}

// SendClaim forwards a claim
func (f *Forwarder) SendClaim(claim model.Claim) {
	f.enqueue(Envelope{Kind: kindClaim, Claim: &claim})
}

// SendVerdict forwards a verdict
func (f *Forwarder) SendVerdict(verdict model.Verdict) {
	f.enqueue(Envelope{Kind: kindVerdict, Verdict: &verdict})
}

func (f *Forwarder) enqueue(env Envelope) {
	env.SentAt = time.Now().UTC()
	body, err := json.Marshal(env)
	if err != nil {
		f.logger.Warn("Failed to encode forwarded record", "kind", env.Kind, "error", err)
		return
	}

	if !f.pool.TrySubmit(&deliveryJob{f: f, kind: env.Kind, body: body}) {
		f.dropped.Add(1)
		metrics.ForwardedTotal.WithLabelValues(env.Kind, "dropped").Inc()
		f.logger.Debug("Forward queue full, dropping record", "kind", env.Kind)
	}
}

// collect accounts for finished deliveries
func (f *Forwarder) collect() {
	defer close(f.drained)
	for r := range f.pool.Results() {
		res := r.(*deliveryResult)
		if res.err != nil {
			f.failed.Add(1)
			metrics.ForwardedTotal.WithLabelValues(res.kind, "error").Inc()
			f.logger.Warn("Forwarding failed", "kind", res.kind, "error", res.err)
			continue
		}
		f.sent.Add(1)
		metrics.ForwardedTotal.WithLabelValues(res.kind, "sent").Inc()
	}
}

// Close stops accepting records and waits for queued deliveries. Deliveries
// still queued when the drain timeout passes are abandoned.
func (f *Forwarder) Close() {
	closed := make(chan struct{})
	go func() {
		f.pool.Close()
		close(closed)
	}()

	timer := time.NewTimer(f.drain)
	defer timer.Stop()

	select {
	case <-closed:
	case <-timer.C:
		f.logger.Warn("Forwarder drain timed out, abandoning queued records", "timeout", f.drain)
		f.pool.Shutdown()
		<-closed
	}
	<-f.drained
}

// Counts returns how many records were sent, failed and dropped
func (f *Forwarder) Counts() (sent, failed, dropped int64) {
	return f.sent.Load(), f.failed.Load(), f.dropped.Load()
}

type deliveryJob struct {
	f    *Forwarder
	kind string
	body []byte
}

func (j *deliveryJob) Execute(ctx context.Context) Result {
	return &deliveryResult{kind: j.kind, err: j.f.post(ctx, j.body)}
}

type deliveryResult struct {
	kind string
	err  error
}

func (r *deliveryResult) GetError() error {
	return r.err
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	if err := f.limiter.Wait(ctx, f.url); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "slopwatch")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
