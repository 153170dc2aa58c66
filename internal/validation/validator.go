// Package validation wraps a go-playground/validator v10 singleton.
//
// Request structs declare their rules in `validate` tags. ValidateStruct
// reports the first failing field as an *apperror.AppError wrapping
// ErrValidation, named by its JSON key so the message matches what the
// client sent:
//
//	type registerRequest struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//	// → "email must be a valid email address"
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/challenge-tracker/internal/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator. It caches struct metadata, so
// one instance serves every request.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by JSON name, not Go name.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct checks s against its tags. It returns nil or an
// apperror.ValidationFailed for the first failing field.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		// InvalidValidationError: a programming mistake, not bad input.
		return fmt.Errorf("validation: %w", err)
	}

	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "alphanum":
		return field + " must contain only letters and digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "e164":
		return field + " must be a phone number in international format"
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}
