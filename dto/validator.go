package dto

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/ezfoia/foia_api/pkg/phone"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var messageSidRegex = regexp.MustCompile(`^(SM|MM)[0-9a-fA-F]{32}$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("us_phone", validateUSPhone)
	validate.RegisterValidation("message_sid", validateMessageSid)
	validate.RegisterValidation("notblank", validateNotBlank)
	validate.RegisterValidation("oneof_ci", validateOneOfFold)
}

func GetValidator() *validator.Validate {
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// validateUSPhone accepts blank input, which clears the number, or any input
// holding a complete 10-digit US number.
func validateUSPhone(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	_, ok := phone.Normalize(value)
	return ok
}

func validateMessageSid(fl validator.FieldLevel) bool {
	return messageSidRegex.MatchString(fl.Field().String())
}

// validateOneOfFold is oneof ignoring case and surrounding whitespace.
func validateOneOfFold(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	for _, allowed := range strings.Fields(fl.Param()) {
		if strings.EqualFold(value, allowed) {
			return true
		}
	}
	return false
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required", "notblank":
				message = fieldError.Field() + " is required"
			case "email":
				message = "Invalid email format"
			case "min":
				if fieldError.Kind() == reflect.Slice {
					message = fieldError.Field() + " must contain at least " + fieldError.Param() + " items"
				} else {
					message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
				}
			case "max":
				if fieldError.Kind() == reflect.Slice {
					message = fieldError.Field() + " must contain at most " + fieldError.Param() + " items"
				} else {
					message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
				}
			case "len":
				message = fieldError.Field() + " must be exactly " + fieldError.Param() + " characters"
			case "oneof", "oneof_ci":
				message = fieldError.Field() + " must be one of: " + fieldError.Param()
			case "uuid":
				message = fieldError.Field() + " must be a valid identifier"
			case "us_phone":
				message = "Phone number must have 10 digits"
			case "message_sid":
				message = "Invalid message SID format"
			case "required_if":
				message = fieldError.Field() + " is required"
			case "dive":
				message = fieldError.Field() + " contains invalid items"
			default:
				message = fieldError.Field() + " is invalid"
			}

			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errors
}

type Validator interface {
	Validate() error
}
