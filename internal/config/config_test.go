package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TED2TRANSCRIPT_LANGUAGE",
		"TED2TRANSCRIPT_LOG_LEVEL",
		"TED2TRANSCRIPT_OUTPUT_DIR",
		"TED2TRANSCRIPT_HTTP_TIMEOUT",
		"TED2TRANSCRIPT_WORKERS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "en", cfg.Language)
	assert.Zero(t, cfg.GetHTTPTimeout())
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, zapcore.InfoLevel, cfg.GetLogLevel().Level())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Language = "fr"
	cfg.HTTP.Timeout = "30s"
	cfg.Batch.Workers = 8
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr", loaded.Language)
	assert.Equal(t, 30*time.Second, loaded.GetHTTPTimeout())
	assert.Equal(t, 8, loaded.Batch.Workers)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.GetLogLevel().Level())
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "./transcripts", cfg.Batch.OutputDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TED2TRANSCRIPT_LANGUAGE", "ja")
	t.Setenv("TED2TRANSCRIPT_OUTPUT_DIR", "/tmp/out")
	t.Setenv("TED2TRANSCRIPT_WORKERS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ja", cfg.Language)
	assert.Equal(t, "/tmp/out", cfg.Batch.OutputDir)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not yaml", body: "language: [unterminated"},
		{name: "bad timeout", body: "http:\n  timeout: soon\n"},
		{name: "zero workers", body: "batch:\n  workers: 0\n"},
		{name: "bad level", body: "logging:\n  level: loud\n"},
		{name: "negative rate", body: "batch:\n  rate_limit: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
