package textio

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnCandidates lists header names tried when auto-detecting columns.
type ColumnCandidates struct {
	Text  []string `json:"text"`
	Index []string `json:"index"`
}

// DefaultColumnCandidates covers common English and Turkish export headers.
func DefaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Text:  []string{"text", "message", "content", "body", "comment", "tweet", "review", "mesaj", "metin", "yorum"},
		Index: []string{"id", "index", "no", "number"},
	}
}

type columnResult struct {
	Index      int
	FromHeader bool
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func pickColumn(header []string, explicit string, candidates []string) (columnResult, error) {
	res := columnResult{Index: -1}
	if strings.TrimSpace(explicit) != "" {
		idx, fromHeader, err := matchExplicitColumn(header, explicit)
		if err != nil {
			return res, err
		}
		res.Index = idx
		res.FromHeader = fromHeader
		return res, nil
	}
	if idx := findColumn(header, candidates); idx >= 0 {
		res.Index = idx
		res.FromHeader = true
	}
	return res, nil
}

// matchExplicitColumn resolves a header name or a 1-based "#n" reference.
func matchExplicitColumn(header []string, explicit string) (int, bool, error) {
	trimmed := strings.TrimSpace(explicit)
	for i, col := range header {
		if strings.EqualFold(col, trimmed) {
			return i, true, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, false, err
		}
		if idx >= len(header) {
			return -1, false, fmt.Errorf("column index %s is out of range", trimmed)
		}
		return idx, false, nil
	}
	return -1, false, fmt.Errorf("column %q not found", explicit)
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}

// ColumnLabel names a column by header, or "#n" when there is none.
func ColumnLabel(header []string, idx int) string {
	if idx < 0 {
		return ""
	}
	if idx < len(header) && header[idx] != "" {
		return header[idx]
	}
	return fmt.Sprintf("#%d", idx+1)
}
