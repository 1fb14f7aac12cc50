package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator reports field errors by their json names.
func NewValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return validate
}
