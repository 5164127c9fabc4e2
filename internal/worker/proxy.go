package worker

import (
	"fmt"
	"net/http"
	"net/url"
)

// proxyFunc routes forwarder traffic through an explicit proxy, or falls
// back to the environment when none is configured
func proxyFunc(raw string) (func(*http.Request) (*url.URL, error), error) {
	if raw == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", raw)
	}
	return http.ProxyURL(u), nil
}
