// Package esu models the records submitted to the GİB ÖKC ESU registry for
// electric-vehicle charging stations (ESU, "elektrikli şarj ünitesi").
//
// The package is organised in three layers:
//
//   - Entities (Device, Company, Location, Taxpayer, Invoice, Certificate,
//     Owner) and the composites built from them (OwnershipStatus,
//     OwnershipUpdate, Closure).
//   - Validation: unconditional field constraints expressed as struct tags
//     and evaluated with go-playground/validator, plus ordered relational
//     rules that each fail with their own Violation code.
//   - Request builders that assemble the outbound JSON payloads. Builders
//     never validate; they fail only when a required part is missing.
//
// Tax ids are coerced with PadTaxID before validation and invoice dates are
// normalised to YYYY-MM-DD with NormalizeDate.
//
// # Violation Codes
//
//	FLD001 - value shorter than the minimum length
//	FLD002 - value not of the exact length
//	FLD003 - value does not match the expected pattern
//	FLD004 - value not in the allowed set
//	FLD005 - malformed date
//
//	REL001 - fatura_ettn and fatura_tarihi must both be set or both be empty
//	REL002 - mulkiyet_sahibi_vkn_tckn and mulkiyet_sahibi_ad_unvan must co-occur
//	REL003 - sertifika_no and sertifika_tarihi must co-occur
//	REL004 - exactly one of fatura_ettn and mulkiyet_sahibi_vkn_tckn
//	REL005 - certificate fields require mulkiyet_sahibi_vkn_tckn
//	REL006 - socket kinds incompatible with esu_soket_tipi
//	REL007 - socket list length differs from esu_soket_sayisi
//	REL008 - AC/DC device without both an AC and a DC socket
//
//	ASM001 - taxpayer information missing
//	ASM002 - record information missing
//	ASM003 - device information missing
package esu
