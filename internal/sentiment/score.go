package sentiment

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadLogits is returned when the model output does not line up with the label set.
var ErrBadLogits = errors.New("logits do not match labels")

// Softmax converts logits into probabilities that sum to 1.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > maxVal {
			maxVal = float64(l)
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the index of the largest value; the first one wins on ties.
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// FromLogits builds a Result from raw model logits.
func FromLogits(labels []string, logits []float32) (Result, error) {
	if len(logits) == 0 || len(logits) != len(labels) {
		return Result{}, fmt.Errorf("%w: %d logits for %d labels", ErrBadLogits, len(logits), len(labels))
	}
	for _, l := range logits {
		if math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
			return Result{}, fmt.Errorf("%w: non-finite logit", ErrBadLogits)
		}
	}
	probs := Softmax(logits)
	scores := make(Scores, len(labels))
	for i, label := range labels {
		scores[i] = LabelScore{Label: label, Percent: roundPercent(probs[i])}
	}
	return Result{
		Label:  labels[Argmax(probs)],
		Scores: scores,
	}, nil
}

// EmptyResult is what blank input scores as.
func EmptyResult() Result {
	return Result{Label: LabelNeutral, Empty: true}
}

func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}
