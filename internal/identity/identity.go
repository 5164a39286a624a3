// Package identity validates the contact fields collected during capture.
// The functions are pure and safe for concurrent use.
package identity

import (
	"regexp"
	"strings"

	"funnel_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

var (
	localPhone = regexp.MustCompile(`^0\d{8,9}$`)
	intlPhone  = regexp.MustCompile(`^(\+972|972)\d{8,9}$`)
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// StripPhone removes spaces, dashes and parentheses.
func StripPhone(s string) string {
	return phoneSeparators.Replace(strings.TrimSpace(s))
}

// IsValidPhone accepts a local number (0 + 8-9 digits) or an international
// one (+972 or 972 + 8-9 digits) once separators are stripped.
func IsValidPhone(s string) bool {
	p := StripPhone(s)
	return localPhone.MatchString(p) || intlPhone.MatchString(p)
}

// IsValidEmail accepts the permissive local@domain.tld shape.
func IsValidEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}

const (
	// TagPhone is the struct tag for IsValidPhone.
	TagPhone = "funnel_phone"
	// TagEmail is the struct tag for IsValidEmail.
	TagEmail = "funnel_email"
)

// Register adds the funnel_phone and funnel_email tags to v.
// Empty strings pass so the tags combine with omitempty/required.
func Register(v *validator.Validator) error {
	if err := v.RegisterValidation(TagPhone, func(fl playground.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || IsValidPhone(s)
	}); err != nil {
		return err
	}
	return v.RegisterValidation(TagEmail, func(fl playground.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || IsValidEmail(s)
	})
}
