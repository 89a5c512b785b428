package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule names registered on top of the validator built-ins.
const (
	RuleRequired   = "required"
	RuleTaxID      = "taxid"
	RulePostalCode = "postalcode"
	RuleHandle     = "handle"
)

// Violation is a single failed rule on a struct field. Field uses the json tag name when present.
type Violation struct {
	Field string
	Rule  string
}

// Validator checks tagged structs with the BotecoPro rules registered.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the taxid, postalcode and handle tags available.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	mustRegister(v, RuleTaxID, ValidTaxID)
	mustRegister(v, RulePostalCode, ValidPostalCode)
	mustRegister(v, RuleHandle, ValidHandle)

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic("register validation " + tag + ": " + err.Error())
	}
}

// Check validates s and returns the violations in struct field order.
// A nil slice means s is valid. Non-validation errors (e.g. s is not a struct) panic since they are programmer errors.
func (v *Validator) Check(s any) []Violation {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		panic("validation: " + err.Error())
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Violation{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// First returns the first violation of the given rule, if any.
func First(violations []Violation, rule string) (Violation, bool) {
	for _, v := range violations {
		if v.Rule == rule {
			return v, true
		}
	}
	return Violation{}, false
}
