package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/models"
)

var validate = newValidator()

var orderStatusOneOf = "oneof=" + strings.Join(models.OrderStatuses, " ")

// newValidator reports fields by their json names so error messages match
// the request bodies clients send.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and converts the first
// failure into a ValidationError naming the field class, e.g.
// "customerInfo.email" or "cartItems".
func validateStruct(s any) error {
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if i := strings.Index(field, "["); i >= 0 {
		field = field[:i]
	}
	if field == "cartItems" {
		return invalid(field, "each item needs a name, a price and a quantity of at least 1")
	}
	return invalid(field, reason(fe))
}

// validateVar checks a single value against tag and names it field.
func validateVar(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return invalid(field, reason(verrs[0]))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return ""
	case "email":
		return "not a valid address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "failed " + fe.Tag() + " check"
}
