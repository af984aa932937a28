package service

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

// NewValidator returns a validator with the booking specific tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerBookingValidators(v)
	return v
}

func registerBookingValidators(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := models.ParseClock(fl.Field().String())
		return err == nil && len(fl.Field().String()) == 5
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := models.ParseWeekday(fl.Field().String())
		return err == nil
	})
}

// ensureValidator registers the booking tags on v, creating one when nil.
func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	registerBookingValidators(v)
	return v
}
