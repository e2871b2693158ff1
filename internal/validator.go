package internal

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobileNumberRegex = regexp.MustCompile(`^(\+91|91|0)?[6-9]\d{9}$`)
	pincodeRegex      = regexp.MustCompile(`^[1-9]\d{5}$`)
	personNameRegex   = regexp.MustCompile(`^[\p{L} .'-]+$`)
)

// IsMobileNumber reports whether s is an Indian mobile number, with or without
// a country prefix.
func IsMobileNumber(s string) bool {
	return mobileNumberRegex.MatchString(strings.ReplaceAll(s, " ", ""))
}

// NormalizeMobileNumber returns the E.164 form (+91XXXXXXXXXX) of an Indian
// mobile number.
func NormalizeMobileNumber(s string) (string, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	if !mobileNumberRegex.MatchString(s) {
		return "", ErrInvalidMobileNumber
	}
	return "+91" + s[len(s)-10:], nil
}

func IsPincode(s string) bool {
	return pincodeRegex.MatchString(s)
}

func IsPersonName(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && personNameRegex.MatchString(s)
}

func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("mobile_number", func(fl validator.FieldLevel) bool {
		return IsMobileNumber(fl.Field().String())
	})

	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return IsPincode(fl.Field().String())
	})

	_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return IsPersonName(fl.Field().String())
	})

	return v
}

func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err != nil {
		return err
	}
	return nil
}
