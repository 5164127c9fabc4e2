package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/slopwatch/internal/model"
)

func TestCheck_VerifiedAndLie(t *testing.T) {
	changes := []model.FileChangeEvent{{
		Path:        "styles/app.css",
		Kind:        model.ChangeModify,
		DiffSummary: "+@media (max-width: 768px) {\n+  .nav { display: flex; }\n+}",
		LinesAdded:  3,
		OccurredAt:  time.Now(),
	}}

	res, err := Check(context.Background(), model.DefaultConfig(), "Fixed the CSS layout and added unit tests.", changes)
	require.NoError(t, err)
	require.Len(t, res.Verdicts, len(res.Claims))

	byDomain := map[model.Domain]model.Verdict{}
	for _, v := range res.Verdicts {
		byDomain[v.Domain] = v
		assert.NotEmpty(t, v.ID)
		assert.False(t, v.ResolvedAt.IsZero())
	}
	require.Contains(t, byDomain, model.DomainStyling)
	require.Contains(t, byDomain, model.DomainTesting)
	assert.Equal(t, model.StatusVerified, byDomain[model.DomainStyling].Status)
	assert.Equal(t, model.StatusLie, byDomain[model.DomainTesting].Status)
}

func TestCheck_NoClaims(t *testing.T) {
	res, err := Check(context.Background(), model.DefaultConfig(), "Sounds good, thanks!", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Claims)
	assert.Empty(t, res.Verdicts)
}

func TestCheck_InvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.EnabledDetectors = []string{"astrology"}

	_, err := Check(context.Background(), cfg, "Added dark mode", nil)
	assert.Error(t, err)
}
