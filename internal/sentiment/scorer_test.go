package sentiment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	mu     sync.Mutex
	logits map[string][]float32
	err    error
	calls  int
}

func (f *fakeClassifier) Logits(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if l, ok := f.logits[text]; ok {
		return l, nil
	}
	return []float32{0, 1, 0}, nil
}

func (f *fakeClassifier) ModelID() string { return "fake" }
func (f *fakeClassifier) Close() error    { return nil }

type countingRecorder struct {
	mu          sync.Mutex
	predictions map[string]int
	errors      int
	hits        int
}

func (r *countingRecorder) ObservePrediction(label string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.predictions == nil {
		r.predictions = map[string]int{}
	}
	r.predictions[label]++
}

func (r *countingRecorder) ObserveCacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *countingRecorder) ObserveError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func newTestScorer(t *testing.T, clf Classifier, rec Recorder) *Scorer {
	t.Helper()
	s, err := NewScorer(clf, nil, rec, nil)
	require.NoError(t, err)
	return s
}

func TestScore_EmptyInput(t *testing.T) {
	clf := &fakeClassifier{}
	s := newTestScorer(t, clf, nil)

	for _, in := range []string{"", "   ", "\n\t "} {
		res, err := s.Score(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, LabelNeutral, res.Label)
		assert.True(t, res.Empty)
		assert.Nil(t, res.Scores)
		assert.Equal(t, "Neutral", Format(res))
	}
	assert.Zero(t, clf.calls, "blank input must not reach the model")
}

func TestScore_NormalPath(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{
		"I love this!": {-2, 0, 3},
	}}
	rec := &countingRecorder{}
	s := newTestScorer(t, clf, rec)

	res, err := s.Score(context.Background(), "I love this!")
	require.NoError(t, err)

	assert.Equal(t, LabelPositive, res.Label)
	assert.False(t, res.Empty)
	require.Len(t, res.Scores, 3)
	assert.Equal(t, Scores{
		{Label: LabelNegative, Percent: 0.64},
		{Label: LabelNeutral, Percent: 4.71},
		{Label: LabelPositive, Percent: 94.65},
	}, res.Scores)
	assert.Equal(t,
		"Positive | Scores → {'Negative': 0.64, 'Neutral': 4.71, 'Positive': 94.65}",
		Format(res))
	assert.Equal(t, 1, rec.predictions[LabelPositive])
}

func TestScore_Properties(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{
		"a": {2.5, 0.1, -1.7},
		"b": {0, 0, 0},
		"c": {-7, 4, 3.9},
		"d": {30, -30, 0},
	}}
	s := newTestScorer(t, clf, nil)

	for _, text := range []string{"a", "b", "c", "d"} {
		res, err := s.Score(context.Background(), text)
		require.NoError(t, err)

		require.Len(t, res.Scores, 3)
		seen := map[string]bool{}
		var sum float64
		best := res.Scores[0]
		for _, ls := range res.Scores {
			assert.False(t, seen[ls.Label], "label %s repeated", ls.Label)
			seen[ls.Label] = true
			assert.GreaterOrEqual(t, ls.Percent, 0.0)
			assert.LessOrEqual(t, ls.Percent, 100.0)
			sum += ls.Percent
			if ls.Percent > best.Percent {
				best = ls
			}
		}
		assert.InDelta(t, 100.0, sum, 0.1, "text %q", text)
		assert.Equal(t, best.Label, res.Label, "text %q", text)
	}
}

func TestScore_TieGoesToLowestIndex(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{"tie": {0, 2, 2}}}
	s := newTestScorer(t, clf, nil)

	res, err := s.Score(context.Background(), "tie")
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, res.Label)
}

func TestScore_Idempotent(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{"same": {0.3, -1, 2}}}
	s := newTestScorer(t, clf, nil)

	first, err := s.Analyze(context.Background(), "same")
	require.NoError(t, err)
	second, err := s.Analyze(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScore_PropagatesClassifierError(t *testing.T) {
	boom := errors.New("tokenizer exploded")
	rec := &countingRecorder{}
	s := newTestScorer(t, &fakeClassifier{err: boom}, rec)

	_, err := s.Score(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec.errors)
}

func TestScore_RejectsMismatchedLogits(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{"two": {1, 2}}}
	s := newTestScorer(t, clf, nil)

	_, err := s.Score(context.Background(), "two")
	assert.ErrorIs(t, err, ErrBadLogits)
}

func TestScoreBatch(t *testing.T) {
	clf := &fakeClassifier{logits: map[string][]float32{
		"good": {-3, 0, 3},
		"bad":  {3, 0, -3},
	}}
	s := newTestScorer(t, clf, nil)

	var progress []int
	results, err := s.ScoreBatch(context.Background(), []string{"good", "", "bad"}, func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, LabelPositive, results[0].Label)
	assert.True(t, results[1].Empty)
	assert.Equal(t, LabelNegative, results[2].Label)
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestScorer_ReadyWithoutReadyMethod(t *testing.T) {
	s := newTestScorer(t, &fakeClassifier{}, nil)
	assert.NoError(t, s.Ready(context.Background()))
}

func TestNewScorer_RequiresClassifier(t *testing.T) {
	_, err := NewScorer(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	res := Result{Label: LabelNeutral, Scores: Scores{
		{Label: LabelNegative, Percent: 12},
		{Label: LabelNeutral, Percent: 87.5},
		{Label: LabelPositive, Percent: 0.5},
	}}
	assert.Equal(t, "Neutral | Scores → {'Negative': 12.0, 'Neutral': 87.5, 'Positive': 0.5}", Format(res))
	assert.Equal(t, "Neutral", ParseLabel(Format(res)))
	assert.Equal(t, "Neutral", ParseLabel("Neutral"))
	assert.True(t, strings.HasPrefix(res.String(), "Neutral | "))
}

func TestScoresMarshalJSON(t *testing.T) {
	data, err := Scores{
		{Label: LabelNegative, Percent: 1.5},
		{Label: LabelNeutral, Percent: 3},
		{Label: LabelPositive, Percent: 95.5},
	}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Negative":1.5,"Neutral":3,"Positive":95.5}`, string(data))
	assert.True(t, strings.HasPrefix(string(data), `{"Negative"`))

	null, err := Scores(nil).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(null))
}

func TestSoftmaxAndArgmax(t *testing.T) {
	probs := Softmax([]float32{1000, 1000, 1000})
	for _, p := range probs {
		assert.InDelta(t, 1.0/3.0, p, 1e-9)
	}
	assert.Equal(t, 0, Argmax(probs))
	assert.Equal(t, -1, Argmax(nil))
	assert.Nil(t, Softmax(nil))
}
