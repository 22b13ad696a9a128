// Package validation holds the field checks shared by request binding and
// the services.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/naciremadream81/permitpro-v1/internal/catalog"
	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used for phone numbers written without a country code.
const DefaultRegion = "US"

// ErrInvalidPhone is returned for numbers libphonenumber cannot validate.
var ErrInvalidPhone = errors.New("phone number is not valid")

// NormalizePhone validates raw and returns it in E.164 form. An empty value
// stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	p, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func validatePhone(fl validator.FieldLevel) bool {
	_, err := NormalizePhone(fl.Field().String())
	return err == nil
}

func validateCounty(fl validator.FieldLevel) bool {
	return catalog.ValidCounty(fl.Field().String())
}

// Register adds the phone and county tags to v and reports fields by their
// JSON names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"phone":  validatePhone,
		"county": validateCounty,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBinding installs the custom tags on gin's default validator.
func RegisterBinding() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return Register(v)
}

// Messages flattens validator errors into one field: message pair per
// failed field, keyed by the JSON field namespace.
func Messages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldName(fe)] = message(fe)
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "county":
		return "must be a Florida county"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
