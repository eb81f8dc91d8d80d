package esu

import (
	"strings"
)

// Input column names. They match the wire keys.
const (
	ColSerial          = "esu_seri_no"
	ColSocketKind      = "esu_soket_tipi"
	ColSocketCount     = "esu_soket_sayisi"
	ColSocketDetail    = "esu_soket_detay"
	ColBrand           = "esu_markasi"
	ColModel           = "esu_modeli"
	ColProvinceCode    = "il_kodu"
	ColDistrict        = "ilce"
	ColAddress         = "adres_numarası"
	ColCoordinates     = "koordinat"
	ColInvoiceDate     = "fatura_tarihi"
	ColInvoiceRef      = "fatura_ettn"
	ColTaxpayerID      = "mukellef_vkn"
	ColTaxpayerTitle   = "mukellef_unvan"
	ColCertificateNo   = "sertifika_no"
	ColCertificateDate = "sertifika_tarihi"
	ColOwnerID         = "mulkiyet_sahibi_vkn_tckn"
	ColOwnerTitle      = "mulkiyet_sahibi_ad_unvan"
)

// RegistrationColumns are the columns a registration input must carry.
var RegistrationColumns = []string{
	ColSerial, ColSocketKind, ColSocketCount, ColSocketDetail, ColBrand, ColModel,
	ColProvinceCode, ColDistrict, ColInvoiceDate, ColInvoiceRef,
	ColTaxpayerID, ColTaxpayerTitle, ColCertificateNo, ColCertificateDate,
	ColOwnerID, ColOwnerTitle,
}

// UpdateColumns are the columns an update input must carry.
var UpdateColumns = []string{
	ColSerial, ColProvinceCode, ColDistrict, ColInvoiceDate, ColInvoiceRef,
	ColCertificateNo, ColCertificateDate, ColOwnerID, ColOwnerTitle,
}

// Fields is a read-only view of one input row. Missing keys read as "".
type Fields interface {
	Get(key string) string
}

// DeviceFromRow maps a row to a Device. Socket pairs are "label:kind"
// separated by ";"; a pair without a kind fails with ErrPattern on
// esu_soket_detay.
func DeviceFromRow(r Fields) (Device, error) {
	sockets, err := ParseSockets(r.Get(ColSocketDetail))
	if err != nil {
		return Device{}, err
	}
	return Device{
		Serial:      strings.TrimSpace(r.Get(ColSerial)),
		Kind:        SocketKind(strings.ToUpper(strings.TrimSpace(r.Get(ColSocketKind)))),
		SocketCount: strings.TrimSpace(r.Get(ColSocketCount)),
		Sockets:     sockets,
		Brand:       strings.TrimSpace(r.Get(ColBrand)),
		Model:       strings.TrimSpace(r.Get(ColModel)),
	}, nil
}

// ParseSockets parses a socket detail cell such as "Soket1:AC;Soket2:DC".
// Empty segments are skipped.
func ParseSockets(detail string) ([]Socket, error) {
	var sockets []Socket
	for _, pair := range strings.Split(detail, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		label, kind, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, &Violation{
				Code:    ErrPattern.Code,
				Field:   ColSocketDetail,
				Value:   pair,
				Message: "soket detayı soket_no:soket_tip formatında olmalı",
			}
		}
		sockets = append(sockets, NewSocket(label, SocketKind(kind)))
	}
	return sockets, nil
}

// OwnershipFromRow maps a row to an OwnershipStatus for the given device
// serial. When the row lacks a taxpayer id or title, the company's own tax
// id and title are used. Evidence columns are copied as given, so
// conflicting evidence is left for the relational rules to report.
func OwnershipFromRow(r Fields, c Company, serial string) OwnershipStatus {
	taxpayer := NewTaxpayer(c.TaxID, c.Title)
	if isSet(r.Get(ColTaxpayerID)) && isSet(r.Get(ColTaxpayerTitle)) {
		taxpayer = NewTaxpayer(r.Get(ColTaxpayerID), r.Get(ColTaxpayerTitle))
	}

	return OwnershipStatus{
		Serial:      strings.TrimSpace(serial),
		Location:    locationFromRow(r),
		Taxpayer:    taxpayer,
		Invoice:     NewInvoice(r.Get(ColInvoiceDate), r.Get(ColInvoiceRef)),
		Certificate: NewCertificate(r.Get(ColCertificateNo), r.Get(ColCertificateDate)),
		Owner:       NewOwner(r.Get(ColOwnerID), r.Get(ColOwnerTitle)),
	}
}

// UpdateFromRow maps a row to an OwnershipUpdate.
func UpdateFromRow(r Fields) OwnershipUpdate {
	return OwnershipUpdate{
		Serial:      strings.TrimSpace(r.Get(ColSerial)),
		Location:    locationFromRow(r),
		Invoice:     NewInvoice(r.Get(ColInvoiceDate), r.Get(ColInvoiceRef)),
		Certificate: NewCertificate(r.Get(ColCertificateNo), r.Get(ColCertificateDate)),
		Owner:       NewOwner(r.Get(ColOwnerID), r.Get(ColOwnerTitle)),
	}
}

func locationFromRow(r Fields) Location {
	return NewLocation(r.Get(ColProvinceCode), r.Get(ColDistrict), r.Get(ColAddress), r.Get(ColCoordinates))
}
