package esu

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	socketLabelRe  = regexp.MustCompile(`^Soket\d+$`)
	epdkLicenseRe  = regexp.MustCompile(`^ŞH/\d{5}-\d+/\d{5}$`)
	vknTCKNRe      = regexp.MustCompile(`^\d{10,11}$`)
	fieldValidator = newFieldValidator()
)

func newFieldValidator() *validator.Validate {
	v := validator.New()

	// Report wire names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "socket_label", func(fl validator.FieldLevel) bool {
		return socketLabelRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "epdk_license", func(fl validator.FieldLevel) bool {
		return epdkLicenseRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "vkn_tckn", func(fl validator.FieldLevel) bool {
		return vknTCKNRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "invoice_date", func(fl validator.FieldLevel) bool {
		return validInvoiceDate(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("esu: register %s: %v", tag, err))
	}
}

// checkFields runs the struct-tag constraints on s and returns the first
// failure as a Violation.
func checkFields(s any) error {
	err := fieldValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return toViolation(fieldErrs[0])
}

// toViolation maps a validator tag failure to a coded Violation with a
// registry-style message.
func toViolation(fe validator.FieldError) *Violation {
	v := &Violation{
		Field: fe.Field(),
		Value: fmt.Sprint(fe.Value()),
	}

	switch fe.Tag() {
	case "min":
		v.Code = ErrMinLength.Code
		if fe.Kind() == reflect.Slice {
			v.Message = fmt.Sprintf("en az %s öğe içermeli", fe.Param())
			v.Value = ""
		} else {
			v.Message = fmt.Sprintf("en az %s karakter uzunluğunda olmalı", fe.Param())
		}
	case "len":
		v.Code = ErrExactLength.Code
		v.Message = fmt.Sprintf("%s karakter uzunluğunda olmalı", fe.Param())
	case "vkn_tckn":
		v.Code = ErrExactLength.Code
		v.Message = "10 veya 11 karakter uzunluğunda olmalı"
	case "oneof":
		v.Code = ErrNotAllowed.Code
		v.Message = fmt.Sprintf("şu değerlerden biri olmalı: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		v.Code = ErrDate.Code
		v.Message = "YYYY-MM-DD formatında olmalıdır"
	case "invoice_date":
		v.Code = ErrDate.Code
		v.Message = "YYYY-MM-DD veya DD.MM.YYYY formatında olmalıdır"
	case "number":
		v.Code = ErrPattern.Code
		v.Message = "yalnızca rakamlardan oluşmalı"
	case "socket_label":
		v.Code = ErrPattern.Code
		v.Message = "Soket<numara> formatında olmalı"
	case "epdk_license":
		v.Code = ErrPattern.Code
		v.Message = "ŞH/NNNNN-N/NNNNN formatında olmalı"
	default:
		v.Code = ErrPattern.Code
		v.Message = fmt.Sprintf("%s kuralını sağlamıyor", fe.Tag())
	}
	return v
}

// ValidateCompany checks the company's field constraints.
func ValidateCompany(c Company) error {
	return checkFields(c)
}

// ValidateDevice checks the device's field constraints, then its socket
// rules in order: kind compatibility, count, AC/DC mix.
func ValidateDevice(d Device) error {
	if err := checkFields(d); err != nil {
		return err
	}
	return runRules(DeviceRules(), d)
}

// ValidateOwnership checks a status record. The relational rules run first,
// then the field constraints.
func ValidateOwnership(s OwnershipStatus) error {
	if err := runRules(EvidenceRules(), s.Evidence()); err != nil {
		return err
	}
	return checkFields(s)
}

// ValidateUpdate checks an update record the same way as ValidateOwnership.
func ValidateUpdate(u OwnershipUpdate) error {
	if err := runRules(EvidenceRules(), u.Evidence()); err != nil {
		return err
	}
	return checkFields(u)
}

// ValidateClosure checks a closure record.
func ValidateClosure(c Closure) error {
	return checkFields(c)
}
