package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// Same loose shape the contact form checks client side: something@something.something
	contactEmailRegex = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("contact_email", ContactEmail)
}

// ContactEmail validates an address against the contact form's email shape
func ContactEmail(fl validator.FieldLevel) bool {
	return contactEmailRegex.MatchString(fl.Field().String())
}
