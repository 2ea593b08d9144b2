package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("datebound", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDateBound(fl.Field().String(), false)
		return err == nil
	})
}

// Struct validates v against its validate tags. Violations come back as
// *apperrors.ValidationErrors keyed by field name.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return translate(err, "")
}

// Var validates a single value under the given field name.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	return translate(err, field)
}

// Identifier checks that s is an email address or an E.164 phone number.
func Identifier(field, s string) error {
	if validate.Var(s, "required,email") == nil || (strings.HasPrefix(s, "+") && validate.Var(s, "required,e164") == nil) {
		return nil
	}
	errs := apperrors.NewValidationErrors()
	errs.Add(field, "Must be an email address or a phone number in +<country><number> form")
	return errs
}

func translate(err error, field string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := apperrors.NewValidationErrors()
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fieldPath(fe)
		}
		errs.Add(name, message(fe))
	}
	return errs
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "e164":
		return "Must be a phone number in +<country><number> form"
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datebound":
		return "Must be a date (YYYY-MM-DD) or an RFC3339 timestamp"
	case "dive", "unique":
		return "Contains an invalid or repeated value"
	default:
		return "Failed the " + fe.Tag() + " check"
	}
}
