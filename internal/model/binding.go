package model

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Bed codes follow the house scheme: ward prefix, dash, room number, as in
// MED-101 or UCI-2. Uppercase only; the registry treats codes as opaque
// keys everywhere else.
var bedCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(-[A-Z0-9]+)*$`)

// RegisterValidations installs custom binding rules on gin's shared
// validator. Called once while the router is built.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("bedcode", func(fl validator.FieldLevel) bool {
		return bedCodePattern.MatchString(fl.Field().String())
	})
}
