package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://collector.local/ingest"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://other.local"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

// admits reports whether a request to url gets a token within a short deadline
func admits(l *Limiter, url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, url) == nil
}

func TestLimiter_RateLimitPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://collector.local/ingest"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is spent
	if admits(limiter, url) {
		t.Errorf("expected wait to fail (exhausted tokens)")
	}
	if admits(limiter, "http://collector.local/other-path") {
		t.Errorf("expected the same host to share its limiter")
	}
	if !admits(limiter, "http://other.local") {
		t.Errorf("expected another host to pass")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "http://collector.local"
	if !admits(limiter, url) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail on a cancelled context")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !admits(limiter, "http://collector.local") {
			t.Fatalf("request %d should pass without a rate", i)
		}
	}
}

func TestLimiter_WaitRejectsBadURL(t *testing.T) {
	if err := NewLimiter(1, 1).Wait(context.Background(), "/relative"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://collector.local:9000/foo")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "collector.local:9000" {
		t.Errorf("expected collector.local:9000, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := hostOf("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
