package textio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is one text to score, with an optional caller-supplied index.
type Record struct {
	Index string `json:"index,omitempty"`
	Text  string `json:"text"`
}

// ParseOptions selects columns by header name or "#n". Empty values mean
// auto-detect.
type ParseOptions struct {
	IndexColumn string
	TextColumn  string
	Candidates  *ColumnCandidates
	// Normalize applies NormalizeText to every text.
	Normalize bool
}

// FileMetadata describes a delimited file's header and the detected columns.
type FileMetadata struct {
	Columns       []string
	SuggestedText string
}

// Format identifies the input layout.
type Format int

const (
	FormatLines Format = iota
	FormatCSV
	FormatTSV
)

// FormatFromPath picks the layout from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	default:
		return FormatLines
	}
}

// ReadRecords loads records from a .txt (one text per line), .csv or .tsv file.
func ReadRecords(path string, opts ParseOptions) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	records, err := ParseRecords(f, FormatFromPath(path), opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ParseRecords reads records from r in the given layout.
func ParseRecords(r io.Reader, format Format, opts ParseOptions) ([]Record, error) {
	var (
		records []Record
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = parseDelimited(r, ',', opts)
	case FormatTSV:
		records, err = parseDelimited(r, '\t', opts)
	default:
		records, err = parseLines(r)
	}
	if err != nil {
		return nil, err
	}
	if opts.Normalize {
		for i := range records {
			records[i].Text = NormalizeText(records[i].Text)
		}
	}
	return records, nil
}

func parseLines(r io.Reader) ([]Record, error) {
	var out []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		line := cleanCell(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, Record{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan text: %w", err)
	}
	return out, nil
}

func parseDelimited(r io.Reader, comma rune, opts ParseOptions) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := cleanRow(rows[0])
	textCol, indexCol, skipHeader, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}
	start := 0
	if skipHeader {
		start = 1
	}
	records := make([]Record, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if textCol >= len(row) {
			continue
		}
		text := cleanCell(row[textCol])
		if text == "" {
			continue
		}
		rec := Record{Text: text}
		if indexCol >= 0 && indexCol < len(row) {
			rec.Index = cleanCell(row[indexCol])
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolveColumns returns the text and index column positions and whether the
// first row is a header. Without any header match the first column is text.
func resolveColumns(header []string, opts ParseOptions) (int, int, bool, error) {
	candidates := DefaultColumnCandidates()
	if opts.Candidates != nil {
		candidates = *opts.Candidates
	}
	text, err := pickColumn(header, opts.TextColumn, candidates.Text)
	if err != nil {
		return -1, -1, false, err
	}
	index, err := pickColumn(header, opts.IndexColumn, candidates.Index)
	if err != nil {
		return -1, -1, false, err
	}
	skipHeader := text.FromHeader || index.FromHeader
	if text.Index < 0 {
		if len(header) == 0 {
			return -1, -1, false, errors.New("no usable text column found")
		}
		text.Index = 0
		if index.Index == 0 {
			text.Index = 1
			if len(header) < 2 {
				return -1, -1, false, errors.New("no usable text column found")
			}
		}
	}
	return text.Index, index.Index, skipHeader, nil
}

// ReadFileMetadata returns the header of a delimited file and the text column
// that auto-detection would pick. Plain text files yield empty metadata.
func ReadFileMetadata(path string) (FileMetadata, error) {
	meta := FileMetadata{}
	format := FormatFromPath(path)
	if format == FormatLines {
		return meta, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	if format == FormatTSV {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	row, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return meta, nil
		}
		return meta, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	meta.Columns = cleanRow(row)
	if textCol, _, _, err := resolveColumns(meta.Columns, ParseOptions{}); err == nil {
		meta.SuggestedText = ColumnLabel(meta.Columns, textCol)
	}
	return meta, nil
}

func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cleanCell(cell)
	}
	return out
}

func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

// Texts extracts the text of each record.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Text
	}
	return out
}
