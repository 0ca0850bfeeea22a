package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	// Postal codes: 3-10 alphanumerics, optional single space or hyphen
	// separators (covers MY/UK/US/CA style codes).
	postalCodeRe = regexp.MustCompile(`^[A-Za-z0-9]{2,5}([ -]?[A-Za-z0-9]{1,5})?$`)

	// Tracking numbers: carrier references are 8-24 uppercase
	// alphanumerics.
	trackingRe = regexp.MustCompile(`^[A-Z0-9]{8,24}$`)
)

// Validate returns the shared validator instance with the custom
// "postalcode" and "tracking" rules registered.
func Validate() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("postalcode", func(fl validator.FieldLevel) bool {
			return postalCodeRe.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("tracking", func(fl validator.FieldLevel) bool {
			return trackingRe.MatchString(fl.Field().String())
		})
	})
	return validate
}
