// Package validation validates request DTOs with go-playground/validator and
// reports failures keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)
)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated through their string form
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	registerCustomValidations()
}

func registerCustomValidations() {
	// money: positive with at most two decimal places
	_ = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		amount, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return amount.IsPositive() && amount.Equal(amount.Round(2))
	})

	_ = validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyCode.MatchString(fl.Field().String())
	})
}

// Errors maps JSON field names to messages.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates s and returns Errors, or nil when s is valid.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required"
		case "money":
			out[field] = "Amount must be at least 0.01 with at most 2 decimal places"
		case "currency":
			out[field] = "Currency must be a 3-letter uppercase code"
		case "oneof":
			out[field] = "Value must be one of: " + fe.Param()
		case "max":
			out[field] = "Value is too long (max: " + fe.Param() + ")"
		case "gt", "gte":
			out[field] = "Value must be greater than " + fe.Param()
		default:
			out[field] = "Invalid value"
		}
	}
	return out
}
