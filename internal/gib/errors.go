package gib

import (
	"errors"
	"fmt"
)

// Transport error codes.
const (
	CodeRequestFailed = "GIB001" // request could not be sent or read
	CodeHTTPStatus    = "GIB002" // non-2xx status
	CodeMalformedBody = "GIB003" // body is not JSON of the expected shape
	CodeInvalidBody   = "GIB004" // body parsed but violates the response schema
)

// TransportError reports a failed exchange with the registry. A response
// with durum "basarisiz" is not a TransportError.
type TransportError struct {
	Code       string
	Endpoint   Endpoint
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("gib %s: %s [%s]", e.Endpoint, describeCode(e.Code), e.Code)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func describeCode(code string) string {
	switch code {
	case CodeRequestFailed:
		return "request failed"
	case CodeHTTPStatus:
		return "unexpected status"
	case CodeMalformedBody:
		return "malformed response body"
	case CodeInvalidBody:
		return "invalid response"
	default:
		return "transport error"
	}
}
