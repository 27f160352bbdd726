package sentiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"yashubustudio/sentiment/internal/config"
	"yashubustudio/sentiment/internal/onnx"
)

// ErrClassifierClosed is returned after Close has been called.
var ErrClassifierClosed = errors.New("classifier is closed")

// Classifier exposes the minimal surface the scorer needs from a model.
type Classifier interface {
	Logits(ctx context.Context, text string) ([]float32, error)
	ModelID() string
	Close() error
}

// logitSource is the part of onnx.Encoder the classifier depends on.
type logitSource interface {
	Logits(text string) ([]float32, error)
	Close()
}

// OrtClassifier is a thin wrapper over onnx.Encoder with caching.
// Identical concurrent requests share a single forward pass.
type OrtClassifier struct {
	src     logitSource
	modelID string
	cache   *logitCache
	group   singleflight.Group
	rec     Recorder
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewOrtClassifier loads the model once and prepares the cache directory.
func NewOrtClassifier(cfg config.ModelConfig, rec Recorder, logger *zap.Logger) (*OrtClassifier, error) {
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(filepath.Dir(cfg.ModelPath)) + "/" + filepath.Base(cfg.ModelPath)
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	enc := &onnx.Encoder{}
	if err := enc.Init(onnx.Config{
		OrtLib:        cfg.OrtLib,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		MaxSeqLen:     cfg.MaxSeqLen,
		InputNames:    cfg.InputNames,
		OutputName:    cfg.OutputName,
		NumLabels:     len(cfg.Labels),
	}); err != nil {
		return nil, err
	}
	return newClassifier(enc, cfg.ModelID, cacheOptions{
		Dir:        cfg.CacheDir,
		TTL:        time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		MaxEntries: cfg.CacheMaxEntries,
	}, rec, logger), nil
}

func newClassifier(src logitSource, modelID string, cache cacheOptions, rec Recorder, logger *zap.Logger) *OrtClassifier {
	if rec == nil {
		rec = NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrtClassifier{
		src:     src,
		modelID: modelID,
		cache:   newLogitCache(cache),
		rec:     rec,
		logger:  logger,
	}
}

// ModelID returns the identifier used for cache keys.
func (o *OrtClassifier) ModelID() string {
	return o.modelID
}

// Close releases ORT resources.
func (o *OrtClassifier) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.src != nil {
		o.src.Close()
	}
	o.cache.reset()
	return nil
}

// Ready reports ErrClassifierClosed once Close has been called.
func (o *OrtClassifier) Ready() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClassifierClosed
	}
	return nil
}

// Logits runs the model for text, serving repeated texts from the cache.
func (o *OrtClassifier) Logits(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.RLock()
	closed := o.closed
	o.mu.RUnlock()
	if closed {
		return nil, ErrClassifierClosed
	}

	key := cacheKey(o.modelID, text)
	if vec, ok := o.cache.get(key); ok {
		o.rec.ObserveCacheHit()
		return vec, nil
	}

	v, err, _ := o.group.Do(key, func() (any, error) {
		if vec, ok, err := o.cache.load(key); err != nil {
			o.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		} else if ok {
			o.rec.ObserveCacheHit()
			o.cache.put(key, vec)
			return vec, nil
		}
		vec, err := o.src.Logits(text)
		if err != nil {
			return nil, err
		}
		o.cache.put(key, vec)
		if err := o.cache.save(key, vec); err != nil {
			o.logger.Warn("Failed to persist logits", zap.String("key", key), zap.Error(err))
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float32)), nil
}
