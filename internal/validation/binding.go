package validation

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Binding tag names usable in request structs.
const (
	TagIndianMobile = "indian_mobile"
	TagGSTIN        = "gstin"
	TagVPA          = "upi_vpa"
	TagHourOfDay    = "hhmm"
)

// RegisterTags installs the custom rules on v. Empty strings pass so the tags
// compose with `omitempty` or `required`.
func RegisterTags(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagIndianMobile: func(fl validator.FieldLevel) bool {
			return ValidateIndianMobile(fl.Field().String()).Valid
		},
		TagGSTIN: func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == "" || ValidateGSTIN(value).Valid
		},
		TagVPA: func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == "" || ValidVPA(value)
		},
		TagHourOfDay: func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return true
			}
			_, err := ParseHourOfDay(value)
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGinTags installs the custom rules on gin's default validator and
// reports fields by their json names.
func RegisterGinTags() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return RegisterTags(v)
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// Describe turns a binding failure into field errors.
func Describe(errs validator.ValidationErrors) *Errors {
	out := &Errors{}
	for _, fe := range errs {
		out.Add(fe.Field(), "invalid_"+fe.Tag(), tagMessage(fe.Tag()))
	}
	return out
}

func tagMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case TagIndianMobile:
		return "must be a 10 digit Indian mobile number"
	case TagGSTIN:
		return "must be a valid 15 character GSTIN"
	case TagVPA:
		return "must be a UPI ID like name@bank"
	case TagHourOfDay:
		return "must be a time as HH:MM"
	case "max":
		return "is too long"
	case "gte", "lte", "gt", "min":
		return "is out of range"
	case "oneof":
		return "is not an allowed value"
	}
	return "is invalid"
}
