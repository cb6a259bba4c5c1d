package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their document key.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("doc"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("enum", validateEnum)
}

type enumValue interface {
	Valid() bool
}

func validateEnum(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().(enumValue)
	return ok && v.Valid()
}

// validateStruct runs the struct tag rules and converts failures into a
// ValidationError keyed by document field name.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), "%s", ruleMessage(fe))
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "enum":
		return "unknown value \"" + reflect.ValueOf(fe.Value()).String() + "\""
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
