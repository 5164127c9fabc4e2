package worker

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyFunc_Explicit(t *testing.T) {
	fn, err := proxyFunc("http://proxy.internal:3128")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodPost, "https://collector.example.com/ingest", nil)
	u, err := fn(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.internal:3128", u.Host)
}

func TestProxyFunc_EmptyUsesEnvironment(t *testing.T) {
	fn, err := proxyFunc("")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestProxyFunc_Invalid(t *testing.T) {
	_, err := proxyFunc("not a url")
	assert.Error(t, err)
}
