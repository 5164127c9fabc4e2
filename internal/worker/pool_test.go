package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockResult implements Result
type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

// mockJob implements Job
type mockJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32 // atomic counter
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("job error")}
	}
	return &mockResult{err: nil}
}

// blockingJob runs until release is closed
type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Execute(ctx context.Context) Result {
	if j.started != nil {
		close(j.started)
	}
	<-j.release
	return &mockResult{}
}

func TestNewPool(t *testing.T) {
	p1 := NewPool(5, 0)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}
	if cap(p1.jobQueue) != 10 {
		t.Errorf("expected default queue of 10, got %d", cap(p1.jobQueue))
	}

	p2 := NewPool(0, 3)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}
	if cap(p2.jobQueue) != 3 {
		t.Errorf("expected queue of 3, got %d", cap(p2.jobQueue))
	}

	p3 := NewPool(-1, -1)
	if p3.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p3.workers)
	}
}

func TestPool_Execution(t *testing.T) {
	count := 10
	pool := NewPool(2, count)
	pool.Start()

	var executed int32
	for i := 0; i < count; i++ {
		if !pool.TrySubmit(&mockJob{executed: &executed}) {
			t.Fatalf("job %d rejected", i)
		}
	}

	results := closeAndCollect(pool)

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

// closeAndCollect closes the pool and gathers every result
func closeAndCollect(p *Pool) []Result {
	go p.Close()

	var results []Result
	for r := range p.Results() {
		results = append(results, r)
	}
	return results
}

// concurrencyJob tracks max concurrent executions
type concurrencyJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *concurrencyJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &mockResult{}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	totalJobs := 50
	pool := NewPool(workers, totalJobs)
	pool.Start()

	var current int32
	var maxConcurrent int32
	var completed int32
	var mu sync.Mutex

	for i := 0; i < totalJobs; i++ {
		pool.TrySubmit(&concurrencyJob{
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
			duration: 10 * time.Millisecond,
		})
	}

	closeAndCollect(pool)

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}

	mu.Lock()
	max := maxConcurrent
	mu.Unlock()

	if max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()

	pool.TrySubmit(&mockJob{shouldErr: true})
	pool.TrySubmit(&mockJob{shouldErr: false})

	results := closeAndCollect(pool)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	errs := 0
	for _, res := range results {
		if res.GetError() != nil {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("expected 1 error, got %d", errs)
	}
}

func TestPool_TrySubmitFull(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start()

	release := make(chan struct{})
	started := make(chan struct{})

	// Occupies the only worker
	if !pool.TrySubmit(&blockingJob{started: started, release: release}) {
		t.Fatal("first job should be accepted")
	}
	<-started

	// Fills the queue
	if !pool.TrySubmit(&blockingJob{release: release}) {
		t.Fatal("second job should be queued")
	}

	done := make(chan bool)
	go func() { done <- pool.TrySubmit(&mockJob{}) }()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected TrySubmit to reject when the queue is full")
		}
	case <-time.After(time.Second):
		t.Fatal("TrySubmit blocked")
	}

	close(release)
	if got := len(closeAndCollect(pool)); got != 2 {
		t.Errorf("expected 2 results, got %d", got)
	}
}

func TestPool_TrySubmitAfterShutdown(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		if pool.TrySubmit(&mockJob{}) {
			t.Error("TrySubmit after shutdown should be rejected")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("TrySubmit after shutdown blocked")
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()

	started := make(chan struct{})
	pool.TrySubmit(&concurrencyJob{
		start: func() {
			close(started)
		},
		duration: 200 * time.Millisecond,
	})
	<-started

	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Shutdown timed out")
	}
}
