package middleware

import (
	"reflect"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/gin-gonic/gin/binding"
)

// structValidator runs gin request binding through the application
// validator, so bound requests and commands report identical field names
// and messages
type structValidator struct{}

func (structValidator) ValidateStruct(obj any) error {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return validation.Engine().Struct(obj)
}

func (structValidator) Engine() any {
	return validation.Engine()
}

// SetupValidator installs the application validator as gin's binding
// validator. Call it once before building the router.
func SetupValidator() {
	binding.Validator = structValidator{}
}
