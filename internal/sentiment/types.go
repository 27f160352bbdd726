package sentiment

import (
	"bytes"
	"encoding/json"
)

// Labels produced by the three-class model, in logit order.
const (
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
	LabelPositive = "Positive"
)

// DefaultLabels maps logit indexes to label names.
var DefaultLabels = []string{LabelNegative, LabelNeutral, LabelPositive}

// LabelScore is a single label with its probability as a percentage.
type LabelScore struct {
	Label   string
	Percent float64
}

// Scores keeps label order stable for display and JSON output.
type Scores []LabelScore

// MarshalJSON encodes the scores as an object keyed by label, in label order.
func (s Scores) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ls := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ls.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ls.Percent)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the percentage for label.
func (s Scores) Get(label string) (float64, bool) {
	for _, ls := range s {
		if ls.Label == label {
			return ls.Percent, true
		}
	}
	return 0, false
}

// Result is the outcome of scoring one text.
type Result struct {
	Label  string `json:"label"`
	Scores Scores `json:"scores"`
	// Empty is set when the input was blank and no inference ran.
	Empty bool `json:"empty"`
}

// String renders the result the way the UI displays it.
func (r Result) String() string {
	return Format(r)
}
