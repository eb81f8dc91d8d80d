package records

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses comma-separated input. A leading UTF-8 BOM is dropped. The
// whole input is buffered, and unless all of it is valid UTF-8 it is decoded
// as Windows-1254. Callers bound the input size (BATCH_MAX_FILE_SIZE).
func ReadCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	text, encoding, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	raw, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return newSheet(raw, encoding), nil
}

// decodeText returns data as UTF-8 without a BOM, with the encoding it was
// read as.
func decodeText(data []byte) ([]byte, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, EncodingUTF8, nil
	}

	text, err := charmap.Windows1254.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode windows-1254: %w", err)
	}
	return text, EncodingWindows1254, nil
}
