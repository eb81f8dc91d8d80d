package esu

import (
	"errors"
	"fmt"
	"strings"
)

// Violation describes a single failed rule on a record.
//
// Violations compare by code under errors.Is, so callers match against the
// sentinel values below regardless of the field that triggered them.
type Violation struct {
	Code    string // FLDxxx, RELxxx or ASMxxx
	Field   string // wire name of the offending field, empty for record-level rules
	Value   string // offending value, if any
	Message string
}

func (v *Violation) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", v.Field, v.Message, v.Code)
	}
	return fmt.Sprintf("%s (%s)", v.Message, v.Code)
}

// Is reports whether target is a Violation with the same code. A target with
// a Field also requires the field to match.
func (v *Violation) Is(target error) bool {
	t, ok := target.(*Violation)
	if !ok {
		return false
	}
	if t.Code != v.Code {
		return false
	}
	return t.Field == "" || t.Field == v.Field
}

// Kind classifies a violation by its code prefix.
type Kind string

const (
	KindField      Kind = "field"
	KindRelational Kind = "relational"
	KindAssembly   Kind = "assembly"
)

// Kind returns the violation's category.
func (v *Violation) Kind() Kind {
	switch {
	case strings.HasPrefix(v.Code, "REL"):
		return KindRelational
	case strings.HasPrefix(v.Code, "ASM"):
		return KindAssembly
	default:
		return KindField
	}
}

// Field constraint sentinels.
var (
	ErrMinLength   = &Violation{Code: "FLD001", Message: "minimum length not met"}
	ErrExactLength = &Violation{Code: "FLD002", Message: "length mismatch"}
	ErrPattern     = &Violation{Code: "FLD003", Message: "format mismatch"}
	ErrNotAllowed  = &Violation{Code: "FLD004", Message: "value not allowed"}
	ErrDate        = &Violation{Code: "FLD005", Message: "malformed date"}
)

// Relational rule sentinels.
var (
	ErrInvoicePair = &Violation{
		Code:    "REL001",
		Message: "fatura_tarihi ve fatura_ettn tutarsız; ikisi de boş veya ikisi de dolu olmalı",
	}
	ErrOwnerPair = &Violation{
		Code:    "REL002",
		Message: "mulkiyet_sahibi_vkn_tckn ve mulkiyet_sahibi_ad_unvan tutarsız; ikisi de boş veya ikisi de dolu olmalı",
	}
	ErrCertificatePair = &Violation{
		Code:    "REL003",
		Message: "sertifika_no ve sertifika_tarihi tutarsız; ikisi de boş veya ikisi de dolu olmalı",
	}
	ErrInvoiceOrOwner = &Violation{
		Code:    "REL004",
		Message: "fatura_ettn veya mulkiyet_sahibi_vkn_tckn alanlarından biri ve yalnız biri mevcut olmalıdır",
	}
	ErrCertificateNeedsOwner = &Violation{
		Code:    "REL005",
		Message: "sertifika bilgilerini gönderebilmek için mulkiyet_sahibi_vkn_tckn doldurulmalıdır",
	}
	ErrSocketKind = &Violation{
		Code:    "REL006",
		Message: "soket detayları esu_soket_tipi ile uyumlu değil",
	}
	ErrSocketCount = &Violation{
		Code:    "REL007",
		Message: "esu_soket_sayisi kadar soket detayı sağlanmalı",
	}
	ErrSocketMix = &Violation{
		Code:    "REL008",
		Message: "esu_soket_tipi [AC/DC] soket detayları ile uyumlu değil",
	}
)

// Assembly sentinels returned by the request builders.
var (
	ErrTaxpayerMissing = &Violation{Code: "ASM001", Message: "Mükellef bilgileri eksik"}
	ErrRecordMissing   = &Violation{Code: "ASM002", Message: "Kayıt bilgileri eksik"}
	ErrDeviceMissing   = &Violation{Code: "ASM003", Message: "ESU bilgileri eksik"}
)

// AsViolation extracts the first Violation in err's chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
