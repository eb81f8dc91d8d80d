package esu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TaxIDWidth is the zero-padded width of a VKN.
const TaxIDWidth = 10

// PadTaxID coerces a numeric tax id to its zero-padded string form.
//
// Empty input stays empty. Integer input (spreadsheet cells such as
// "912345" or "912345.0") is rendered left-padded to TaxIDWidth; values that
// already have TaxIDWidth or more digits keep their digits, so an 11-digit
// TCKN stays 11 digits. Non-numeric input is returned trimmed so the field
// validator reports it.
func PadTaxID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return s
		}
		n = int64(f)
	}
	if n < 0 {
		return s
	}
	return fmt.Sprintf("%0*d", TaxIDWidth, n)
}

const (
	isoDate    = "2006-01-02"
	dottedDate = "02.01.2006"
)

// NormalizeDate rewrites a DD.MM.YYYY date to YYYY-MM-DD. Any other input,
// including an already normalised date, is returned trimmed.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(dottedDate, s); err == nil {
		return t.Format(isoDate)
	}
	return s
}

// validInvoiceDate accepts YYYY-MM-DD and DD.MM.YYYY calendar dates.
func validInvoiceDate(s string) bool {
	if _, err := time.Parse(isoDate, s); err == nil {
		return true
	}
	_, err := time.Parse(dottedDate, s)
	return err == nil
}
