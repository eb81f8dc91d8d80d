package esu

// RegistrationRequest is the /yeniEsuKayit payload.
type RegistrationRequest struct {
	CompanyCode  string `json:"firma_kodu" validate:"min=3"`
	CompanyTaxID string `json:"firma_vkn" validate:"len=10,number"`
	License      string `json:"epdk_lisans_no" validate:"epdk_license"`
	Device       Device `json:"kayit_bilgisi"`
}

// OwnershipRequest is the /esuMukellefDurum payload.
type OwnershipRequest struct {
	CompanyCode string          `json:"firma_kodu" validate:"min=3"`
	Status      OwnershipStatus `json:"durum_bilgileri"`
}

// UpdateRequest is the /esuGuncelleme payload.
type UpdateRequest struct {
	CompanyCode string          `json:"firma_kodu" validate:"min=3"`
	Update      OwnershipUpdate `json:"guncelleme_istek_bilgileri"`
}

// ClosureRequest is the /esuKapatma payload.
type ClosureRequest struct {
	CompanyCode string  `json:"firma_kodu" validate:"min=3"`
	Closure     Closure `json:"kapatma_bilgisi"`
}

// NewRegistrationRequest builds a registration payload from a device.
func NewRegistrationRequest(c Company, d Device) *RegistrationRequest {
	return &RegistrationRequest{
		CompanyCode:  c.Code,
		CompanyTaxID: c.TaxID,
		License:      c.License,
		Device:       d,
	}
}

// RegistrationRequestFromParts builds a registration payload from an
// optional device. A nil device fails with ErrDeviceMissing.
func RegistrationRequestFromParts(c Company, d *Device) (*RegistrationRequest, error) {
	if d == nil {
		return nil, ErrDeviceMissing
	}
	return NewRegistrationRequest(c, *d), nil
}

// NewOwnershipRequest builds an ownership-status payload from a status
// record. The invoice date is normalised on the way out.
func NewOwnershipRequest(c Company, s OwnershipStatus) *OwnershipRequest {
	s.Invoice.Date = NormalizeDate(s.Invoice.Date)
	return &OwnershipRequest{CompanyCode: c.Code, Status: s}
}

// OwnershipRequestFromParts assembles the status record first; see
// NewOwnershipStatus for the assembly errors.
func OwnershipRequestFromParts(c Company, p OwnershipParts) (*OwnershipRequest, error) {
	s, err := NewOwnershipStatus(p)
	if err != nil {
		return nil, err
	}
	return NewOwnershipRequest(c, s), nil
}

// NewUpdateRequest builds an update payload from an update record.
func NewUpdateRequest(c Company, u OwnershipUpdate) *UpdateRequest {
	u.Invoice.Date = NormalizeDate(u.Invoice.Date)
	return &UpdateRequest{CompanyCode: c.Code, Update: u}
}

// UpdateRequestFromParts assembles the update record first; see
// NewOwnershipUpdate for the assembly errors.
func UpdateRequestFromParts(c Company, p UpdateParts) (*UpdateRequest, error) {
	u, err := NewOwnershipUpdate(p)
	if err != nil {
		return nil, err
	}
	return NewUpdateRequest(c, u), nil
}

// NewClosureRequest builds a closure payload.
func NewClosureRequest(c Company, serial string) *ClosureRequest {
	return &ClosureRequest{CompanyCode: c.Code, Closure: Closure{Serial: serial}}
}

// Validate checks the company fields and the nested device, including the
// socket rules.
func (r *RegistrationRequest) Validate() error {
	if err := checkFields(r); err != nil {
		return err
	}
	return runRules(DeviceRules(), r.Device)
}

// Validate checks the nested status record.
func (r *OwnershipRequest) Validate() error {
	if err := runRules(EvidenceRules(), r.Status.Evidence()); err != nil {
		return err
	}
	return checkFields(r)
}

// Validate checks the nested update record.
func (r *UpdateRequest) Validate() error {
	if err := runRules(EvidenceRules(), r.Update.Evidence()); err != nil {
		return err
	}
	return checkFields(r)
}

// Validate checks the closure payload.
func (r *ClosureRequest) Validate() error {
	return checkFields(r)
}
