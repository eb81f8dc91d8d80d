package esu

import "strings"

// SocketKind is the current type of a socket or of a whole device.
type SocketKind string

const (
	KindAC   SocketKind = "AC"
	KindDC   SocketKind = "DC"
	KindACDC SocketKind = "AC/DC"
)

// Socket is one charging connector. Labels follow the registry's
// "Soket<n>" convention (Soket1, Soket2, ...).
type Socket struct {
	Label string     `json:"soket_no" validate:"socket_label"`
	Kind  SocketKind `json:"soket_tip" validate:"oneof=AC DC"`
}

// Device is a charging station unit (ESU) as sent in kayit_bilgisi.
type Device struct {
	Serial      string     `json:"esu_seri_no" validate:"min=3"`
	Kind        SocketKind `json:"esu_soket_tipi" validate:"oneof=AC DC AC/DC"`
	SocketCount string     `json:"esu_soket_sayisi" validate:"number"`
	Sockets     []Socket   `json:"esu_soket_detay" validate:"min=1,dive"`
	Brand       string     `json:"esu_markasi" validate:"min=1"`
	Model       string     `json:"esu_modeli" validate:"min=1"`
}

// Company is the registering firm. It is built once from configuration.
type Company struct {
	Code    string `json:"firma_kodu" validate:"min=3"`
	TaxID   string `json:"firma_vkn" validate:"len=10,number"`
	Title   string `json:"firma_unvan" validate:"min=3"`
	License string `json:"epdk_lisans_no" validate:"epdk_license"`
}

// Location is the installation site.
type Location struct {
	ProvinceCode string `json:"il_kodu" validate:"len=3,number"`
	District     string `json:"ilce" validate:"min=2"`
	Address      string `json:"adres_numarası"`
	Coordinates  string `json:"koordinat"`
}

// Taxpayer (mükellef) is the tax entity responsible for the site.
type Taxpayer struct {
	TaxID string `json:"mukellef_vkn" validate:"len=10,number"`
	Title string `json:"mukellef_unvan" validate:"min=2"`
}

// Invoice is the purchase evidence used when the site is self-owned.
type Invoice struct {
	Date      string `json:"fatura_tarihi" validate:"omitempty,invoice_date"`
	Reference string `json:"fatura_ettn" validate:"omitempty,min=3"`
}

// Certificate is optional evidence attached to a third-party owner.
type Certificate struct {
	Number string `json:"sertifika_no"`
	Date   string `json:"sertifika_tarihi" validate:"omitempty,datetime=2006-01-02"`
}

// Owner (mülkiyet sahibi) is the third-party owner of the site.
type Owner struct {
	TaxID string `json:"mulkiyet_sahibi_vkn_tckn" validate:"omitempty,vkn_tckn"`
	Title string `json:"mulkiyet_sahibi_ad_unvan" validate:"omitempty,min=2"`
}

// NewSocket returns a socket with trimmed fields.
func NewSocket(label string, kind SocketKind) Socket {
	return Socket{
		Label: strings.TrimSpace(label),
		Kind:  SocketKind(strings.ToUpper(strings.TrimSpace(string(kind)))),
	}
}

// NewCompany returns a company with trimmed fields and a zero-padded tax id.
func NewCompany(code, taxID, title, license string) Company {
	return Company{
		Code:    strings.TrimSpace(code),
		TaxID:   PadTaxID(taxID),
		Title:   strings.TrimSpace(title),
		License: strings.TrimSpace(license),
	}
}

// NewLocation returns a location with trimmed fields.
func NewLocation(provinceCode, district, address, coordinates string) Location {
	return Location{
		ProvinceCode: strings.TrimSpace(provinceCode),
		District:     strings.TrimSpace(district),
		Address:      strings.TrimSpace(address),
		Coordinates:  strings.TrimSpace(coordinates),
	}
}

// NewTaxpayer returns a taxpayer with a zero-padded tax id.
func NewTaxpayer(taxID, title string) Taxpayer {
	return Taxpayer{TaxID: PadTaxID(taxID), Title: strings.TrimSpace(title)}
}

// NewInvoice returns an invoice with its date normalised to YYYY-MM-DD.
func NewInvoice(date, reference string) Invoice {
	return Invoice{Date: NormalizeDate(date), Reference: strings.TrimSpace(reference)}
}

// NewCertificate returns a certificate with trimmed fields.
func NewCertificate(number, date string) Certificate {
	return Certificate{Number: strings.TrimSpace(number), Date: strings.TrimSpace(date)}
}

// NewOwner returns an owner with a zero-padded tax or national id.
func NewOwner(taxID, title string) Owner {
	return Owner{TaxID: PadTaxID(taxID), Title: strings.TrimSpace(title)}
}

// Present reports whether the invoice carries any data.
func (i Invoice) Present() bool {
	return isSet(i.Reference) || isSet(i.Date)
}

// Present reports whether the owner carries any data.
func (o Owner) Present() bool {
	return isSet(o.TaxID) || isSet(o.Title)
}

// Present reports whether the certificate carries any data.
func (c Certificate) Present() bool {
	return isSet(c.Number) || isSet(c.Date)
}

func isSet(s string) bool {
	return strings.TrimSpace(s) != ""
}
