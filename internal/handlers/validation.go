package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"productapi/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that reports JSON field names and knows
// how to look inside decimal.Decimal and models.Optional values.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterCustomTypeFunc(optionalValue[string], models.Optional[string]{})
	v.RegisterCustomTypeFunc(optionalValue[int], models.Optional[int]{})
	v.RegisterCustomTypeFunc(optionalValue[decimal.Decimal], models.Optional[decimal.Decimal]{})
	return v
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// optionalValue exposes the wrapped value, or nil when absent or null so
// omitempty skips it.
func optionalValue[T any](field reflect.Value) interface{} {
	if o, ok := field.Interface().(models.Optional[T]); ok && o.Present() {
		return o.Value
	}
	return nil
}

// validationErrors converts validator output into a field -> reason map.
func validationErrors(err error) map[string]string {
	errorMessages := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errorMessages["body"] = err.Error()
		return errorMessages
	}
	for _, e := range validationErrs {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}
