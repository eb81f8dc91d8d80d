package esu

import "strconv"

// Rule is a named relational check over a record of type T. Check returns nil
// or the rule's sentinel Violation.
type Rule[T any] struct {
	Key   string
	Name  string
	Check func(T) error
}

// runRules evaluates rules in order and stops at the first violation.
func runRules[T any](rules []Rule[T], record T) error {
	for _, r := range rules {
		if err := r.Check(record); err != nil {
			return err
		}
	}
	return nil
}

// EvidenceRules returns the ownership relational rules in evaluation order.
func EvidenceRules() []Rule[Evidence] {
	return []Rule[Evidence]{
		{Key: ErrInvoicePair.Code, Name: "invoice reference and date co-occur", Check: checkInvoicePair},
		{Key: ErrOwnerPair.Code, Name: "owner id and title co-occur", Check: checkOwnerPair},
		{Key: ErrCertificatePair.Code, Name: "certificate number and date co-occur", Check: checkCertificatePair},
		{Key: ErrInvoiceOrOwner.Code, Name: "exactly one of invoice reference and owner id", Check: checkInvoiceOrOwner},
		{Key: ErrCertificateNeedsOwner.Code, Name: "certificate requires owner", Check: checkCertificateNeedsOwner},
	}
}

// DeviceRules returns the socket rules in evaluation order. They assume the
// field constraints already passed.
func DeviceRules() []Rule[Device] {
	return []Rule[Device]{
		{Key: ErrSocketKind.Code, Name: "socket kinds match device kind", Check: checkSocketKind},
		{Key: ErrSocketCount.Code, Name: "socket list matches socket count", Check: checkSocketCount},
		{Key: ErrSocketMix.Code, Name: "AC/DC device has both socket kinds", Check: checkSocketMix},
	}
}

func checkInvoicePair(e Evidence) error {
	if isSet(e.Invoice.Reference) != isSet(e.Invoice.Date) {
		return ErrInvoicePair
	}
	return nil
}

func checkOwnerPair(e Evidence) error {
	if isSet(e.Owner.TaxID) != isSet(e.Owner.Title) {
		return ErrOwnerPair
	}
	return nil
}

func checkCertificatePair(e Evidence) error {
	if isSet(e.Certificate.Number) != isSet(e.Certificate.Date) {
		return ErrCertificatePair
	}
	return nil
}

func checkInvoiceOrOwner(e Evidence) error {
	if isSet(e.Invoice.Reference) == isSet(e.Owner.TaxID) {
		return ErrInvoiceOrOwner
	}
	return nil
}

func checkCertificateNeedsOwner(e Evidence) error {
	if isSet(e.Certificate.Number) && !isSet(e.Owner.TaxID) {
		return ErrCertificateNeedsOwner
	}
	return nil
}

func checkSocketKind(d Device) error {
	if d.Kind != KindAC && d.Kind != KindDC {
		return nil
	}
	for _, s := range d.Sockets {
		if s.Kind != d.Kind {
			return ErrSocketKind
		}
	}
	return nil
}

func checkSocketCount(d Device) error {
	n, err := strconv.Atoi(d.SocketCount)
	if err != nil || n != len(d.Sockets) {
		return ErrSocketCount
	}
	return nil
}

func checkSocketMix(d Device) error {
	if d.Kind != KindACDC {
		return nil
	}
	var ac, dc bool
	for _, s := range d.Sockets {
		switch s.Kind {
		case KindAC:
			ac = true
		case KindDC:
			dc = true
		}
	}
	if !ac || !dc {
		return ErrSocketMix
	}
	return nil
}
