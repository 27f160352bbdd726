package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recorder receives scoring telemetry.
type Recorder interface {
	ObservePrediction(label string, elapsed time.Duration)
	ObserveCacheHit()
	ObserveError()
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObservePrediction(string, time.Duration) {}
func (NopRecorder) ObserveCacheHit()                        {}
func (NopRecorder) ObserveError()                           {}

// Scorer turns text into a labelled probability breakdown.
type Scorer struct {
	classifier Classifier
	labels     []string
	rec        Recorder
	logger     *zap.Logger
}

// NewScorer wires a loaded classifier to the label set it was trained on.
func NewScorer(classifier Classifier, labels []string, rec Recorder, logger *zap.Logger) (*Scorer, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		classifier: classifier,
		labels:     append([]string(nil), labels...),
		rec:        rec,
		logger:     logger,
	}, nil
}

// Labels returns the label set in logit order.
func (s *Scorer) Labels() []string {
	return append([]string(nil), s.labels...)
}

// ModelID identifies the loaded model.
func (s *Scorer) ModelID() string {
	return s.classifier.ModelID()
}

// Score classifies a single text. Blank input short-circuits to Neutral
// without running the model.
func (s *Scorer) Score(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return EmptyResult(), nil
	}
	start := time.Now()
	logits, err := s.classifier.Logits(ctx, text)
	if err != nil {
		s.rec.ObserveError()
		return Result{}, fmt.Errorf("classify text: %w", err)
	}
	res, err := FromLogits(s.labels, logits)
	if err != nil {
		s.rec.ObserveError()
		return Result{}, err
	}
	elapsed := time.Since(start)
	s.rec.ObservePrediction(res.Label, elapsed)
	s.logger.Debug("Scored text",
		zap.String("label", res.Label),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

// Analyze is the display-string form of Score used by the UI and the
// queued analyze_sentiment endpoint.
func (s *Scorer) Analyze(ctx context.Context, text string) (string, error) {
	res, err := s.Score(ctx, text)
	if err != nil {
		return "", err
	}
	return Format(res), nil
}

// ScoreBatch scores texts sequentially, stopping at the first error.
func (s *Scorer) ScoreBatch(ctx context.Context, texts []string, progress func(done, total int)) ([]Result, error) {
	out := make([]Result, len(texts))
	for i, t := range texts {
		res, err := s.Score(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("score item %d: %w", i+1, err)
		}
		out[i] = res
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	return out, nil
}

// Ready checks that the model is loaded without running it, so health
// checks leave the prediction metrics alone. Classifiers without a Ready
// method are assumed ready.
func (s *Scorer) Ready(context.Context) error {
	if r, ok := s.classifier.(interface{ Ready() error }); ok {
		return r.Ready()
	}
	return nil
}

// Close releases the underlying classifier.
func (s *Scorer) Close() error {
	return s.classifier.Close()
}
