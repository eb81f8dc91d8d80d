package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DefaultReportPath is where the CLI writes summaries unless told otherwise.
const DefaultReportPath = "gonderim_raporu.json"

// ReportWriter persists a finished summary.
type ReportWriter interface {
	WriteReport(summary any) error
}

// FileWriter writes summaries as indented JSON to Path.
type FileWriter struct {
	Path string
}

// WriteReport implements ReportWriter. The file is replaced on every run.
func (w FileWriter) WriteReport(summary any) error {
	path := w.Path
	if path == "" {
		path = DefaultReportPath
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := EncodeReport(f, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeReport writes summary as JSON indented by four spaces, with
// non-ASCII text left as is.
func EncodeReport(w io.Writer, summary any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
