package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/slopwatch/internal/model"
)

// Client talks to a running slopwatch API
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the API listening on addr (host:port or URL)
func NewClient(addr string, httpClient *http.Client) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: base, http: httpClient}
}

// Stats fetches aggregate statistics
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", &stats)
	return stats, err
}

// Verdicts fetches verdicts since an RFC3339 timestamp or a duration like "15m"
func (c *Client) Verdicts(ctx context.Context, since string) ([]model.Verdict, error) {
	path := "/api/verdicts"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}
	var verdicts []model.Verdict
	err := c.do(ctx, http.MethodGet, path, &verdicts)
	return verdicts, err
}

// Verdict fetches the terminal verdict of one claim
func (c *Client) Verdict(ctx context.Context, claimID string) (model.Verdict, error) {
	var v model.Verdict
	err := c.do(ctx, http.MethodGet, "/api/verdicts/"+url.PathEscape(claimID), &v)
	return v, err
}

// Analyze asks the engine to evaluate every pending claim now
func (c *Client) Analyze(ctx context.Context) (int, error) {
	var resp analyzeResponse
	err := c.do(ctx, http.MethodPost, "/api/analyze", &resp)
	return resp.Analyzed, err
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var apiErr map[string]string
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr["error"] != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr["error"], resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
