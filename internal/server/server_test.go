package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/slopwatch/internal/engine"
	"github.com/ppiankov/slopwatch/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeService struct {
	submitted []messageRequest
	since     time.Time
	verdicts  []model.Verdict
	stats     model.Stats
	analyzed  int
	err       error
}

func (f *fakeService) SubmitMessage(_ context.Context, sessionID, role, content string, ts time.Time) ([]model.Claim, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, messageRequest{SessionID: sessionID, Role: role, Content: content, Timestamp: ts})
	if role != "assistant" {
		return nil, nil
	}
	return []model.Claim{{ID: "c1", Text: content, Domain: model.DomainStyling, Action: model.ActionAdd}}, nil
}

func (f *fakeService) RecentVerdicts(_ context.Context, since time.Time) ([]model.Verdict, error) {
	f.since = since
	return f.verdicts, f.err
}

func (f *fakeService) Verdict(_ context.Context, claimID string) (model.Verdict, bool, error) {
	if f.err != nil {
		return model.Verdict{}, false, f.err
	}
	for _, v := range f.verdicts {
		if v.ClaimID == claimID {
			return v, true, nil
		}
	}
	return model.Verdict{}, false, nil
}

func (f *fakeService) Stats(context.Context) (model.Stats, error) {
	return f.stats, f.err
}

func (f *fakeService) AnalyzePending(context.Context) (int, error) {
	return f.analyzed, f.err
}

func newTestServer(svc Service) *Server {
	s := New(svc, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPostMessage_ReturnsClaims(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)

	body, _ := json.Marshal(map[string]string{
		"session_id": "s1",
		"role":       "assistant",
		"content":    "I added dark mode support.",
	})
	w := do(t, s, http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp messageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Claims, 1)
	assert.Equal(t, model.DomainStyling, resp.Claims[0].Domain)

	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "s1", svc.submitted[0].SessionID)
	assert.True(t, svc.submitted[0].Timestamp.Equal(fixedNow), "missing timestamp defaults to now")
}

func TestPostMessage_NoClaimsIsEmptyList(t *testing.T) {
	body := []byte(`{"role":"user","content":"please add dark mode"}`)
	w := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"claims":[]}`, w.Body.String())
}

func TestPostMessage_Validation(t *testing.T) {
	s := newTestServer(&fakeService{})

	w := do(t, s, http.MethodPost, "/api/messages", []byte(`{"role":"assistant"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/messages", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestPostMessage_EngineStopped(t *testing.T) {
	s := newTestServer(&fakeService{err: engine.ErrStopped})
	w := do(t, s, http.MethodPost, "/api/messages", []byte(`{"role":"assistant","content":"I fixed it"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetVerdicts_Since(t *testing.T) {
	svc := &fakeService{verdicts: []model.Verdict{{ID: "v1", ClaimID: "c1", Status: model.StatusLie, Confidence: 0.85}}}
	s := newTestServer(svc)

	w := do(t, s, http.MethodGet, "/api/verdicts?since=15m", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.since.Equal(fixedNow.Add(-15*time.Minute)))

	var got []model.Verdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusLie, got[0].Status)

	w = do(t, s, http.MethodGet, "/api/verdicts?since=2026-03-01T10:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.since.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	w = do(t, s, http.MethodGet, "/api/verdicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.since.Equal(fixedNow.Add(-time.Hour)))

	w = do(t, s, http.MethodGet, "/api/verdicts?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVerdicts_EmptyIsList(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/verdicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestGetVerdict_ByClaim(t *testing.T) {
	svc := &fakeService{verdicts: []model.Verdict{
		{ID: "v1", ClaimID: "c1", Status: model.StatusLie, Confidence: 0.85},
	}}
	s := newTestServer(svc)

	w := do(t, s, http.MethodGet, "/api/verdicts/c1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var v model.Verdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, model.StatusLie, v.Status)

	w = do(t, s, http.MethodGet, "/api/verdicts/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no verdict for claim missing")
}

func TestGetStats(t *testing.T) {
	svc := &fakeService{stats: model.Stats{
		TotalClaims:     10,
		TotalAnalyses:   10,
		SlopScore:       0.3,
		StatusBreakdown: map[model.Status]int{model.StatusLie: 3, model.StatusVerified: 7},
	}}
	w := do(t, newTestServer(svc), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.InDelta(t, 0.3, got.SlopScore, 1e-9)
	assert.Equal(t, 3, got.StatusBreakdown[model.StatusLie])
}

func TestPostAnalyze(t *testing.T) {
	w := do(t, newTestServer(&fakeService{analyzed: 4}), http.MethodPost, "/api/analyze", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"analyzed":4}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := newTestServer(&fakeService{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
