package esu

import "strings"

// OwnershipStatus links a registered device to its site and to either the
// taxpayer's invoice or a third-party owner. The embedded parts flatten into
// the durum_bilgileri wire object.
type OwnershipStatus struct {
	Serial string `json:"esu_seri_no" validate:"min=3"`
	Location
	Taxpayer
	Invoice
	Certificate
	Owner
}

// OwnershipUpdate amends an existing ownership record. It carries no
// taxpayer fields.
type OwnershipUpdate struct {
	Serial string `json:"esu_seri_no" validate:"min=3"`
	Location
	Invoice
	Certificate
	Owner
}

// Closure identifies a device to decommission.
type Closure struct {
	Serial string `json:"esu_seri_no" validate:"min=3"`
}

// Evidence is the invoice, certificate and owner triple that the relational
// rules inspect.
type Evidence struct {
	Invoice     Invoice
	Certificate Certificate
	Owner       Owner
}

// Evidence returns the status record's evidence fields.
func (s OwnershipStatus) Evidence() Evidence {
	return Evidence{Invoice: s.Invoice, Certificate: s.Certificate, Owner: s.Owner}
}

// Evidence returns the update record's evidence fields.
func (u OwnershipUpdate) Evidence() Evidence {
	return Evidence{Invoice: u.Invoice, Certificate: u.Certificate, Owner: u.Owner}
}

// OwnershipParts are the loose inputs for assembling an OwnershipStatus.
// Nil parts are absent.
type OwnershipParts struct {
	Serial      string
	Location    *Location
	Taxpayer    *Taxpayer
	Invoice     *Invoice
	Certificate *Certificate
	Owner       *Owner
}

// UpdateParts are the loose inputs for assembling an OwnershipUpdate.
type UpdateParts struct {
	Serial      string
	Location    *Location
	Invoice     *Invoice
	Certificate *Certificate
	Owner       *Owner
}

// NewOwnershipStatus assembles a status record from parts. It fails with
// ErrTaxpayerMissing when the serial, location or taxpayer is absent, or when
// neither an invoice nor an owner is given.
func NewOwnershipStatus(p OwnershipParts) (OwnershipStatus, error) {
	if strings.TrimSpace(p.Serial) == "" || p.Location == nil || p.Taxpayer == nil {
		return OwnershipStatus{}, ErrTaxpayerMissing
	}
	if p.Invoice == nil && p.Owner == nil {
		return OwnershipStatus{}, ErrTaxpayerMissing
	}

	s := OwnershipStatus{
		Serial:   strings.TrimSpace(p.Serial),
		Location: *p.Location,
		Taxpayer: *p.Taxpayer,
	}
	if p.Invoice != nil {
		s.Invoice = *p.Invoice
	}
	if p.Certificate != nil {
		s.Certificate = *p.Certificate
	}
	if p.Owner != nil {
		s.Owner = *p.Owner
	}
	return s, nil
}

// NewOwnershipUpdate assembles an update record from parts. It fails with
// ErrRecordMissing when the serial or location is absent, or when neither an
// invoice nor an owner is given.
func NewOwnershipUpdate(p UpdateParts) (OwnershipUpdate, error) {
	if strings.TrimSpace(p.Serial) == "" || p.Location == nil {
		return OwnershipUpdate{}, ErrRecordMissing
	}
	if p.Invoice == nil && p.Owner == nil {
		return OwnershipUpdate{}, ErrRecordMissing
	}

	u := OwnershipUpdate{
		Serial:   strings.TrimSpace(p.Serial),
		Location: *p.Location,
	}
	if p.Invoice != nil {
		u.Invoice = *p.Invoice
	}
	if p.Certificate != nil {
		u.Certificate = *p.Certificate
	}
	if p.Owner != nil {
		u.Owner = *p.Owner
	}
	return u, nil
}
