package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError содержит понятные пользователю сообщения об ошибках полей
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// validateStruct валидирует DTO и переводит ошибки валидатора в ValidationError
func validateStruct(v *validator.Validate, dto interface{}) error {
	err := v.Struct(dto)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, e.Field()+" is required")
		case "min":
			errorMessages = append(errorMessages, e.Field()+" must be at least "+e.Param()+" characters")
		case "max":
			errorMessages = append(errorMessages, e.Field()+" must be at most "+e.Param()+" characters")
		case "email":
			errorMessages = append(errorMessages, e.Field()+" must be a valid email address")
		case "alphanum":
			errorMessages = append(errorMessages, e.Field()+" may contain only letters and digits")
		default:
			errorMessages = append(errorMessages, e.Field()+" is invalid")
		}
	}
	return &ValidationError{Messages: errorMessages}
}
