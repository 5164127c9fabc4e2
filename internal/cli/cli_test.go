package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/slopwatch/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	require.NoError(t, configure(v))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SLOPWATCH_ANALYSIS_WINDOW", "1m")
	t.Setenv("SLOPWATCH_STORE_DRIVER", "sqlite")
	t.Setenv("SLOPWATCH_AUTO_ANALYZE", "false")
	t.Setenv("SLOPWATCH_THRESHOLDS_LIE_CONFIDENCE", "0.9")

	v := viper.New()
	require.NoError(t, configure(v))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.AnalysisWindow)
	assert.Equal(t, 20*time.Second, cfg.InitialDelay())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.AutoAnalyze)
	assert.InDelta(t, 0.9, cfg.Thresholds.LieConfidence, 1e-9)
}

func TestLoadConfig_FileAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis_window: 45s
enabled_detectors: [security, generic]
server:
  listen: 127.0.0.1:9999
`), 0o644))

	v := viper.New()
	require.NoError(t, configure(v))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AnalysisWindow)
	assert.Equal(t, []string{"security", "generic"}, cfg.EnabledDetectors)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
	assert.Equal(t, "memory", cfg.Store.Driver)

	v.Set("analysis_window", "-1s")
	_, err = loadConfig(v)
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "analysis_window", cfgErr.Field)
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDefaultConfig(&buf))
	assert.Contains(t, buf.String(), "# slopwatch configuration file")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestCollectChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "auth_test.go")
	require.NoError(t, os.WriteFile(file, []byte("package auth\n\nfunc TestLogin(t *testing.T) {}\n"), 0o644))

	patch := filepath.Join(dir, "fix.diff")
	require.NoError(t, os.WriteFile(patch, []byte(`--- a/retry.go
+++ b/retry.go
@@ -1 +1,2 @@
 package retry
+const maxAttempts = 3
`), 0o644))

	changes, err := collectChanges(patch, []string{file})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "retry.go", changes[0].Path)
	assert.Equal(t, 1, changes[0].LinesAdded)
	assert.Equal(t, model.ChangeCreate, changes[1].Kind)
	assert.Equal(t, 3, changes[1].LinesAdded)

	_, err = collectChanges("", []string{filepath.Join(dir, "missing.go")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
