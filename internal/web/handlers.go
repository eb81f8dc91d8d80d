package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/logging"
	"github.com/electroop-engineering/gib-esu/internal/records"
)

// RunIDHeader carries the ledger id of the run that served a request.
const RunIDHeader = "X-Run-ID"

// maxFormMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const maxFormMemory = 8 << 20

// handleRegister runs the two-step registration for an uploaded input.
//
// POST /api/runs/register?parallel=1 with multipart field "file".
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.runBatch(w, r, esu.RegistrationColumns, func(ctx context.Context, rows []records.Row, parallel bool) (any, string, error) {
		return s.batches.Register(ctx, rows, parallel)
	})
}

// handleUpdate sends ownership updates for an uploaded input.
//
// POST /api/runs/update?parallel=1 with multipart field "file".
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.runBatch(w, r, esu.UpdateColumns, func(ctx context.Context, rows []records.Row, parallel bool) (any, string, error) {
		return s.batches.Update(ctx, rows, parallel)
	})
}

type batchFunc func(ctx context.Context, rows []records.Row, parallel bool) (any, string, error)

func (s *Server) runBatch(w http.ResponseWriter, r *http.Request, columns []string, run batchFunc) {
	sheet, err := s.readUpload(w, r, columns)
	if err != nil {
		respondError(w, r, err)
		return
	}
	parallel := parseBoolParam(r, "parallel", s.cfg.Batch.Parallel)

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	logging.FromContext(r.Context()).Info("batch accepted",
		"rows", len(sheet.Rows),
		"encoding", sheet.Encoding,
		"parallel", parallel,
	)

	summary, runID, err := run(r.Context(), sheet.Rows, parallel)
	if runID != "" {
		w.Header().Set(RunIDHeader, runID)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// readUpload parses the multipart "file" field and checks its header row.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, columns []string) (*records.Sheet, error) {
	limit := s.cfg.Batch.MaxFileSize
	if r.ContentLength > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}
	defer file.Close()

	sheet, err := records.Read(file, header.Filename)
	if err != nil {
		return nil, err
	}
	if err := records.ValidateHeaders(sheet.Headers, columns); err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, errEmptyFile
	}
	return sheet, nil
}

// handleCloseDevice decommissions one device.
//
// POST /api/devices/{serial}/close
func (s *Server) handleCloseDevice(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	resp, err := s.devices.CloseDevice(r.Context(), serial)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "esu_seri_no", serial).Info("device closed",
		"durum", resp.Status,
		"mesaj", resp.Message(),
	)
	writeJSON(w, resp)
}

// handleListRuns lists recent runs, newest first.
//
// GET /api/runs?limit=50
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errLedgerDisabled)
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"runs": runs})
}

// handleGetRun returns one run with its entries.
//
// GET /api/runs/{runID}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errLedgerDisabled)
		return
	}

	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, run)
}

// handleHealth reports limiter usage and ledger reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	ledger := "disabled"
	if s.runs != nil {
		ledger = "ok"
		if err := s.runs.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("ledger ping failed", "error", err)
			ledger = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSONStatus(w, status, map[string]any{
		"status": http.StatusText(status),
		"ledger": ledger,
		"runs":   s.limiter.Status(),
	})
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam parses a boolean query parameter; 0 and 1 are accepted.
func parseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
