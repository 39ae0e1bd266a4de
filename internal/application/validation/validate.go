// Package validation checks application commands with validator/v10 and
// reports failures as VALIDATION_FAILED domain errors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Engine returns the shared validator instance
func Engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Commands share their binding tags with gin request binding
		validate.SetTagName("binding")
		// Report fields by their JSON name, or the query name for GET filters
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates cmd against its binding tags
func Struct(cmd any) error {
	return Translate(Engine().Struct(cmd))
}

// Translate converts a validator error into a VALIDATION_FAILED domain
// error keyed by field name. nil stays nil.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return shared.ErrValidationFailed.WithDetails(map[string]any{"error": err.Error()})
	}

	details := make(map[string]any, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = message(fe)
	}
	return shared.ErrValidationFailed.WithDetails(details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gtefield":
		return "Must not be before " + fe.Param()
	case "uuid":
		return "Must be a valid UUID"
	case "datetime":
		return "Must be a date formatted as " + fe.Param()
	default:
		return "Invalid value"
	}
}
