package textio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yashubustudio/sentiment/internal/sentiment"
)

// ResultHeader is the first row of an exported result file: index, text,
// label, then one lowercase score column per label.
func ResultHeader(labels []string) []string {
	header := []string{"index", "text", "label"}
	for _, l := range labels {
		header = append(header, strings.ToLower(l))
	}
	return header
}

// WriteResults writes one CSV row per record with a score column for each of
// labels (sentiment.DefaultLabels when nil). Records without an index are
// numbered from 1. Blank inputs have empty score cells.
func WriteResults(w io.Writer, records []Record, results []sentiment.Result, labels []string) error {
	if len(records) != len(results) {
		return fmt.Errorf("records/results length mismatch: %d vs %d", len(records), len(results))
	}
	if len(labels) == 0 {
		labels = sentiment.DefaultLabels
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(ResultHeader(labels)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		index := rec.Index
		if index == "" {
			index = strconv.Itoa(i + 1)
		}
		res := results[i]
		row := []string{index, rec.Text, res.Label}
		for _, l := range labels {
			row = append(row, scoreCell(res, l))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

func scoreCell(res sentiment.Result, label string) string {
	v, ok := res.Scores.Get(label)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteResultsFile writes results to path, creating parent directories.
func WriteResultsFile(path string, records []Record, results []sentiment.Result, labels []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := WriteResults(f, records, results, labels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ResolveOutputPath returns path as an absolute path, or a timestamped
// result_*.csv inside dir when path is empty.
func ResolveOutputPath(path, dir string, now time.Time) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	filename := fmt.Sprintf("result_%s.csv", now.Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}
