// File: internal/common/validation.go
package common

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	productCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
	plateRegex       = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{2}[0-9]{2}$`)
	rutBodyRegex     = regexp.MustCompile(`^[0-9]{1,8}$`)
	spacesRegex      = regexp.MustCompile(`\s+`)
)

// RegisterValidators adds the custom tags used by request DTOs to v.
// It is called once for gin's validator engine at startup and by tests.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		return IsValidRUT(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("productcode", func(fl validator.FieldLevel) bool {
		return IsValidProductCode(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return IsValidPlate(fl.Field().String())
	})
}

// NormalizeText trims, lower-cases and collapses inner whitespace.
func NormalizeText(s string) string {
	return spacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// IsValidProductCode checks the allowed character set for internal product codes.
func IsValidProductCode(code string) bool {
	return productCodeRegex.MatchString(code)
}

// NormalizePlate upper-cases a license plate and strips separators.
func NormalizePlate(plate string) string {
	r := strings.NewReplacer("-", "", " ", "", ".", "", "·", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(plate)))
}

// IsValidPlate validates a Chilean license plate, old (AB1234) or new (ABCD12) format.
func IsValidPlate(plate string) bool {
	return plateRegex.MatchString(NormalizePlate(plate))
}

// NormalizeRUT strips dots and spaces and upper-cases the check digit, producing
// the canonical "12345678-K" form. Input without a dash is split before the last rune.
func NormalizeRUT(rut string) string {
	r := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(rut)))
	if r == "" {
		return ""
	}
	if !strings.Contains(r, "-") && len(r) > 1 {
		r = r[:len(r)-1] + "-" + r[len(r)-1:]
	}
	return r
}

// RUTCheckDigit computes the modulo 11 check digit for a RUT body.
func RUTCheckDigit(body string) string {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch dv := 11 - sum%11; dv {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(dv)
	}
}

// IsValidRUT validates a Chilean RUT including its check digit.
func IsValidRUT(rut string) bool {
	parts := strings.Split(NormalizeRUT(rut), "-")
	if len(parts) != 2 || !rutBodyRegex.MatchString(parts[0]) || len(parts[1]) != 1 {
		return false
	}
	return RUTCheckDigit(parts[0]) == parts[1]
}
