// Package validator plugs go-playground/validator into echo.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	domainerrors "marketplace/internal/domain/errors"

	"github.com/go-playground/validator/v10"
)

// phoneShape accepts an optional "+" then digits, spaces and dashes.
var phoneShape = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,19}$`)

// Validator implements echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// New builds a validator that reports JSON field names and knows the
// "phone" tag.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}

		return field.Name
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneShape.MatchString(fl.Field().String())
	})

	return &Validator{validate: validate}
}

// Validate returns an InvalidInput error describing the first failing fields.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return domainerrors.ErrInvalidInput.WithDetails(err.Error())
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, describe(fieldErr))
	}

	return domainerrors.ErrInvalidInput.
		WithMessage("Validation failed: " + strings.Join(problems, "; ")).
		WithDetails(err.Error())
}

func describe(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must be a phone number"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fieldErr.Param())
	case "numeric":
		return field + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fieldErr.Param())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fieldErr.Tag())
	}
}
