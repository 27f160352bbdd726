package sentiment

import (
	"strconv"
	"strings"
)

// Format renders a result as "<Label> | Scores → {'Negative': x, ...}".
// Blank-input results render as the bare label.
func Format(r Result) string {
	if r.Empty || len(r.Scores) == 0 {
		return r.Label
	}
	var b strings.Builder
	b.WriteString(r.Label)
	b.WriteString(" | Scores → {")
	for i, ls := range r.Scores {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(ls.Label)
		b.WriteString("': ")
		b.WriteString(formatFloat(ls.Percent))
	}
	b.WriteByte('}')
	return b.String()
}

// ParseLabel extracts the label from a formatted result string.
func ParseLabel(display string) string {
	label, _, _ := strings.Cut(display, "|")
	return strings.TrimSpace(label)
}

// formatFloat prints whole numbers with a trailing ".0" like a Python float repr.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
