package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Discord ids are 64-bit snowflakes rendered in decimal
var snowflakeRegex = regexp.MustCompile(`^[0-9]{15,20}$`)

// ValidateSnowflake validates a Discord id
func ValidateSnowflake(id string) bool {
	return snowflakeRegex.MatchString(id)
}

// RegisterValidators adds the custom tags to v
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
		return ValidateSnowflake(fl.Field().String())
	})
}
