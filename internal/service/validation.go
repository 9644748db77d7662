package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutorcrm-api/pkg/timeslot"
)

// registerAvailabilityValidations adds the calendar tags used by availability payloads:
// hhmm (wall-clock time), ymd (calendar date), iana_tz (loadable timezone) and weekday.
func registerAvailabilityValidations(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeslot.IsValid(fl.Field().String())
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		_, err := timeslot.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("iana_tz", func(fl validator.FieldLevel) bool {
		_, err := timeslot.LoadZone(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, day := range timeslot.Weekdays() {
			if day == value {
				return true
			}
		}
		return false
	})
}

func newAvailabilityValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	registerAvailabilityValidations(validate)
	return validate
}
