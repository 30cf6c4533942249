package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// Letters, digits, dot, underscore and hyphen; 1-50 characters.
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{1,50}$`)
)

// New returns a validator that reports fields by their JSON names and has
// the custom validators registered.
func New() *validator.Validate {
	v := validator.New()
	Configure(v)
	return v
}

// Configure applies JSON field naming and the custom validators to an
// existing instance, such as gin's binding validator.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	RegisterValidators(v)
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("username", ValidUsername)
}

// ValidUsername validates a user-chosen username. Surrounding spaces are
// ignored and empty is accepted, since the field is optional.
func ValidUsername(fl validator.FieldLevel) bool {
	val := strings.TrimSpace(fl.Field().String())
	if val == "" {
		return true
	}
	return usernameRegex.MatchString(val)
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
