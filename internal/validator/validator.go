package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("cancel_reason", validateCancelReason)

	return validator
}

var allowedCancelReasons = map[string]bool{
	"changed_mind": true,
	"wrong_seats":  true,
	"price":        true,
	"other":        true,
}

func validateCancelReason(fl validator.FieldLevel) bool {
	reason := fl.Field().String()
	if reason == "" {
		return true
	}

	return allowedCancelReasons[reason]
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "dive":
		return "contains an invalid element"
	case "cancel_reason":
		return "must be one of: changed_mind, wrong_seats, price, other"
	default:
		return "is invalid"
	}
}
