package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const defaultModelConfigFile = "config.json"

// ModelConfig describes the ONNX model, its tokenizer and the logit cache.
// It is persisted to config.json.
type ModelConfig struct {
	OrtLib        string   `json:"ortLib"`
	ModelPath     string   `json:"modelPath"`
	TokenizerPath string   `json:"tokenizerPath"`
	MaxSeqLen     int      `json:"maxSeqLen"`
	CacheDir      string   `json:"cacheDir"`
	ModelID       string   `json:"modelId"`
	Labels        []string `json:"labels"`
	InputNames    []string `json:"inputNames"`
	OutputName    string   `json:"outputName"`

	// CacheTTLMinutes and CacheMaxEntries bound the in-memory logit cache.
	CacheTTLMinutes int `json:"cacheTtlMinutes"`
	CacheMaxEntries int `json:"cacheMaxEntries"`
}

// DefaultModelConfig points at the exported twitter-roberta sentiment model.
func DefaultModelConfig() ModelConfig {
	cfg := ModelConfig{
		ModelPath:     "./models/twitter-roberta-base-sentiment-latest/model.onnx",
		TokenizerPath: "./models/twitter-roberta-base-sentiment-latest/tokenizer.json",
		CacheDir:      "./cache",
		ModelID:       "cardiffnlp/twitter-roberta-base-sentiment-latest",
	}
	cfg.ApplyDefaults()
	return cfg
}

// Clone creates a deep copy so callers can mutate safely.
func (c ModelConfig) Clone() ModelConfig {
	out := c
	out.Labels = append([]string(nil), c.Labels...)
	out.InputNames = append([]string(nil), c.InputNames...)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *ModelConfig) ApplyDefaults() {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 512
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 30
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 10000
	}
	if len(c.Labels) == 0 {
		c.Labels = []string{"Negative", "Neutral", "Positive"}
	}
	if len(c.InputNames) == 0 {
		c.InputNames = []string{"input_ids", "attention_mask"}
	}
	if c.OutputName == "" {
		c.OutputName = "logits"
	}
}

// Validate reports settings that would make model loading fail.
func (c ModelConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("modelPath is required")
	}
	if c.TokenizerPath == "" {
		return errors.New("tokenizerPath is required")
	}
	seen := make(map[string]struct{}, len(c.Labels))
	for _, l := range c.Labels {
		if l == "" {
			return errors.New("labels must not be blank")
		}
		if _, ok := seen[l]; ok {
			return fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// LoadModelConfig loads configuration from the given path or the default
// config.json. A missing file yields the defaults.
func LoadModelConfig(path string) (ModelConfig, error) {
	if path == "" {
		path = defaultModelConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultModelConfig(), nil
		}
		return ModelConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultModelConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ModelConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return ModelConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveModelConfig persists configuration to disk.
func SaveModelConfig(path string, cfg ModelConfig) error {
	if path == "" {
		path = defaultModelConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
