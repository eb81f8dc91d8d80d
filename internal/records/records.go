// Package records reads tabular device inputs (CSV or XLSX) into rows keyed
// by column header.
//
// CSV input may carry a UTF-8 byte order mark and may be encoded as
// Windows-1254, which is what Turkish Excel writes by default. Both are
// detected over the whole input before parsing.
package records

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Encoding names reported on Sheet.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1254 = "windows-1254"
	EncodingXLSX        = "xlsx"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv and
// .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Row is one input record keyed by column header.
type Row map[string]string

// Get returns the cell for key, or "" when the column is absent.
func (r Row) Get(key string) string {
	return r[key]
}

// Sheet is a parsed input.
type Sheet struct {
	Headers  []string
	Rows     []Row
	Encoding string
}

// HeaderError lists required columns missing from an input.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ValidateHeaders checks that every required column is present. Header
// cells are compared after trimming.
func ValidateHeaders(headers, required []string) error {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[strings.TrimSpace(h)] = true
	}

	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &HeaderError{Missing: missing}
	}
	return nil
}

// Read parses r according to the extension of name.
func Read(r io.Reader, name string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r, "")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadFile opens and parses the file at path.
func ReadFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	sheet, err := Read(f, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return sheet, nil
}

// newSheet turns raw records into a Sheet. The first record is the header.
// Blank lines are skipped and short rows read as "" for missing cells.
func newSheet(raw [][]string, encoding string) *Sheet {
	s := &Sheet{Encoding: encoding}
	if len(raw) == 0 {
		return s
	}

	s.Headers = make([]string, len(raw[0]))
	for i, h := range raw[0] {
		s.Headers[i] = strings.TrimSpace(h)
	}

	for _, rec := range raw[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(s.Headers))
		for i, h := range s.Headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
