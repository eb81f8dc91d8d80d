package web

// errors.go maps failures to user-facing messages with support codes.
//
// Record violations keep their own codes (FLDxxx, RELxxx, ASMxxx) and
// registry transport failures keep theirs (GIBxxx), so the code a client
// sees is the one in the batch report. Everything else gets a code from the
// catalogue below:
//
//	FILE001  upload exceeds BATCH_MAX_FILE_SIZE
//	FILE002  unsupported input format
//	FILE003  required columns missing
//	FILE004  no file in the form
//	FILE005  input has no data rows
//	RUN001   every run slot busy
//	RUN002   unknown run id
//	RUN003   run ledger not configured
//	DB001    ledger database unreachable
//	REQ001   request timed out
//	REQ002   request cancelled
//	ERR000   anything else; check the server log by request_id

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/gib"
	"github.com/electroop-engineering/gib-esu/internal/history"
	"github.com/electroop-engineering/gib-esu/internal/records"
)

var (
	errNoFile         = errors.New("no file provided")
	errEmptyFile      = errors.New("empty file")
	errLedgerDisabled = errors.New("run ledger is not configured")
)

// UserMessage is a client-safe description of a failure.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
	Status  int    // HTTP status
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errorPattern matches infrastructure errors that carry no type.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the run ledger",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
			Status:  http.StatusServiceUnavailable,
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Run ledger connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
			Status:  http.StatusServiceUnavailable,
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts err into a UserMessage. Typed errors are matched first;
// untyped ones fall back to substring patterns and finally ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if v, ok := esu.AsViolation(err); ok {
		return UserMessage{
			Message: v.Error(),
			Action:  "Correct the record and submit it again",
			Code:    v.Code,
			Status:  http.StatusUnprocessableEntity,
		}
	}

	var te *gib.TransportError
	if errors.As(err, &te) {
		return UserMessage{
			Message: "The registry request failed",
			Action:  "Please try again later",
			Code:    te.Code,
			Status:  http.StatusBadGateway,
		}
	}

	var he *records.HeaderError
	if errors.As(err, &he) {
		return UserMessage{
			Message: "Missing required columns: " + strings.Join(he.Missing, ", "),
			Action:  "Check that the header row matches the input template",
			Code:    "FILE003",
			Status:  http.StatusUnprocessableEntity,
		}
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the input into smaller files",
			Code:    "FILE001",
			Status:  http.StatusRequestEntityTooLarge,
		}
	case errors.Is(err, records.ErrUnsupportedFormat):
		return UserMessage{
			Message: "Unsupported input format",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE002",
			Status:  http.StatusUnsupportedMediaType,
		}
	case errors.Is(err, errNoFile):
		return UserMessage{
			Message: "No file was selected",
			Action:  "Attach the input as the multipart field \"file\"",
			Code:    "FILE004",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, errEmptyFile):
		return UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Upload a file with at least one device row",
			Code:    "FILE005",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, ErrTooManyRuns):
		return UserMessage{
			Message: "Other batch runs are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
			Status:  http.StatusTooManyRequests,
		}
	case errors.Is(err, history.ErrRunNotFound):
		return UserMessage{
			Message: "Run not found",
			Action:  "Check the run id",
			Code:    "RUN002",
			Status:  http.StatusNotFound,
		}
	case errors.Is(err, errLedgerDisabled):
		return UserMessage{
			Message: "Run history is not available",
			Action:  "Configure DATABASE_URL to keep a run ledger",
			Code:    "RUN003",
			Status:  http.StatusServiceUnavailable,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "Request timed out",
			Action:  "Split the input or retry with parallel=1",
			Code:    "REQ001",
			Status:  http.StatusGatewayTimeout,
		}
	case errors.Is(err, context.Canceled):
		return UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ002",
			Status:  http.StatusServiceUnavailable,
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// respondError logs err with the request id and writes the mapped message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if msg.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	writeJSONStatus(w, msg.Status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
