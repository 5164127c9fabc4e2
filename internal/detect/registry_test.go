package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/slopwatch/internal/model"
)

type fakeDetector struct {
	name  string
	sleep time.Duration
	panic bool
}

func (f *fakeDetector) Name() string               { return f.name }
func (f *fakeDetector) CanHandle(model.Claim) bool { return true }

func (f *fakeDetector) Analyze(claim model.Claim, _ []model.FileChangeEvent) model.Verdict {
	if f.panic {
		panic("boom")
	}
	time.Sleep(f.sleep)
	return model.Verdict{ClaimID: claim.ID, Status: model.StatusVerified, Confidence: 1.4, DetectorName: f.name}
}

func TestRegistry_DefaultOrder(t *testing.T) {
	r := NewDefaultRegistry(model.DefaultConfig())

	assert.Equal(t, []string{"styling", "scripting", "security", "testing", "errors", "generic"}, r.Names())
}

func TestRegistry_GenericIsFallback(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.EnabledDetectors = []string{"generic", "styling"}
	r := NewDefaultRegistry(cfg)

	assert.Equal(t, []string{"styling", "generic"}, r.Names())
	assert.Equal(t, "styling", r.Select(claim(model.DomainStyling, model.ActionAdd, "", "")).Name())
	assert.Equal(t, "generic", r.Select(claim(model.DomainSecurity, model.ActionAdd, "", "")).Name())
}

func TestRegistry_NoSuitableDetector(t *testing.T) {
	r := NewRegistry(time.Second)

	v := r.Analyze(context.Background(), claim(model.DomainStyling, model.ActionAdd, "x", "x"), nil)

	assert.Equal(t, model.StatusUnknown, v.Status)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, "no suitable detector", v.Reason)
}

func TestRegistry_TimeoutIsUnknown(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Register(&fakeDetector{name: "slow", sleep: 500 * time.Millisecond})

	v := r.Analyze(context.Background(), claim(model.DomainStyling, model.ActionAdd, "x", "x"), nil)

	assert.Equal(t, model.StatusUnknown, v.Status)
	assert.Equal(t, "detector timed out", v.Reason)
	assert.Equal(t, "slow", v.DetectorName)
}

func TestRegistry_PanicIsUnknown(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&fakeDetector{name: "broken", panic: true})

	v := r.Analyze(context.Background(), claim(model.DomainStyling, model.ActionAdd, "x", "x"), nil)

	assert.Equal(t, model.StatusUnknown, v.Status)
	assert.Contains(t, v.Reason, "detector failed: boom")
}

func TestRegistry_ClampsConfidence(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&fakeDetector{name: "eager"})

	v := r.Analyze(context.Background(), claim(model.DomainStyling, model.ActionAdd, "x", "x"), nil)

	assert.Equal(t, 1.0, v.Confidence)
}

func TestRegistry_Related(t *testing.T) {
	r := NewDefaultRegistry(model.DefaultConfig())
	styling := claim(model.DomainStyling, model.ActionAdd, "", "")
	generic := claim(model.DomainGeneric, model.ActionAdd, "", "")

	assert.True(t, r.Related(styling, change("a.css", "+a{}")))
	assert.False(t, r.Related(styling, change("a.py", "+x = 1")))
	assert.True(t, r.Related(generic, change("a.py", "+x = 1")))
	assert.False(t, r.Related(generic, change("a.png", "")))
}

func TestRegistry_ZeroChangesAlwaysLie(t *testing.T) {
	r := NewDefaultRegistry(model.DefaultConfig())

	for _, domain := range model.Domains {
		c := claim(domain, model.ActionAdd, "Added something", "something")
		v := r.Analyze(context.Background(), c, nil)
		assert.Equal(t, model.StatusLie, v.Status, domain)
		assert.GreaterOrEqual(t, v.Confidence, 0.8, domain)
	}
}

func TestRegistry_AnalyzeIsDeterministic(t *testing.T) {
	r := NewDefaultRegistry(model.DefaultConfig())
	c := claim(model.DomainStyling, model.ActionAdd, "Added dark mode", "dark mode")
	changes := []model.FileChangeEvent{change("theme.css", "+@media (prefers-color-scheme: dark) { body { background: #111; } }")}

	first := r.Analyze(context.Background(), c, changes)
	second := r.Analyze(context.Background(), c, changes)

	assert.Equal(t, first, second)
}
