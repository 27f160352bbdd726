package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadModelConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.MaxSeqLen)
	assert.Equal(t, []string{"Negative", "Neutral", "Positive"}, cfg.Labels)
	assert.Equal(t, []string{"input_ids", "attention_mask"}, cfg.InputNames)
	assert.Equal(t, "logits", cfg.OutputName)
	assert.Equal(t, 30, cfg.CacheTTLMinutes)
	assert.Equal(t, 10000, cfg.CacheMaxEntries)
	assert.NotEmpty(t, cfg.ModelPath)
}

func TestLoadModelConfig_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"modelPath": "m/model.onnx",
		"tokenizerPath": "m/tokenizer.json",
		"maxSeqLen": 128
	}`), 0o644))

	cfg, err := LoadModelConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "m/model.onnx", cfg.ModelPath)
	assert.Equal(t, 128, cfg.MaxSeqLen)
	assert.Equal(t, "logits", cfg.OutputName)
}

func TestLoadModelConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o644))
	_, err := LoadModelConfig(broken)
	assert.ErrorContains(t, err, "decode config")

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"labels":["a","a","b"]}`), 0o644))
	_, err = LoadModelConfig(dup)
	assert.ErrorContains(t, err, "duplicate label")
}

func TestSaveModelConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	want := DefaultModelConfig()
	want.OrtLib = "/usr/lib/libonnxruntime.so"

	require.NoError(t, SaveModelConfig(path, want))
	got, err := LoadModelConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestModelConfig_Clone(t *testing.T) {
	orig := DefaultModelConfig()
	cp := orig.Clone()
	cp.Labels[0] = "changed"
	assert.Equal(t, "Negative", orig.Labels[0])
}

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "7860", cfg.Port)
	assert.Equal(t, "0.0.0.0:7860", cfg.Addr())
	assert.False(t, cfg.Share)
	assert.False(t, cfg.LogitDiskCache)
	assert.Equal(t, "tr|en", cfg.TranslateLang)
	assert.Equal(t, 10*time.Minute, cfg.EventTTL)
	assert.Equal(t, 1, cfg.QueueWorkers)
	assert.InDelta(t, 10.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, DefaultCORSOrigins, cfg.AllowedOrigins())
}

func TestLoadServer_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("SHARE", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("EVENT_TTL", "30s")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.True(t, cfg.Share)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
	assert.Equal(t, 30*time.Second, cfg.EventTTL)
}

func TestLoadServer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT must be json or console"},
		{"negative rate", "RATE_LIMIT", "-1", "RATE_LIMIT must not be negative"},
		{"zero ttl", "EVENT_TTL", "0s", "EVENT_TTL must be positive"},
		{"no workers", "QUEUE_CONCURRENCY", "0", "QUEUE_CONCURRENCY must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadServer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadServer_LangPairCheckedOnlyWhenTranslating(t *testing.T) {
	t.Setenv("TRANSLATE_LANGPAIR", "tren")
	_, err := LoadServer()
	require.NoError(t, err)

	t.Setenv("TRANSLATE_URL", "https://api.mymemory.translated.net/get")
	_, err = LoadServer()
	assert.ErrorContains(t, err, "TRANSLATE_LANGPAIR")
}
