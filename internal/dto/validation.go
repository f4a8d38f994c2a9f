package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/calendar-manager/internal/models"
)

// RegisterValidations installs the custom tags used by the request types.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		_, err := models.ParseLocation(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseStatus(fl.Field().String())
		return err == nil
	})
}

// NewValidator returns a validator with the custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}
