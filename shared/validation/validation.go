// Package validation wraps go-playground/validator with English translations
// so that every failed rule becomes a readable, per-field message.
package validation

import (
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// FieldErrors maps a JSON field name to the messages of the rules it failed.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, strings.Join(e[field], ", "))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator validates structs tagged with `validate`.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New returns a Validator with English messages and the custom rules
// "digits" and "password" registered.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	// Registration only fails on duplicate keys, which would be a programming error.
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	mustRegister(validate, trans, "digits", isDigits, "{0} must contain only numbers")
	mustRegister(validate, trans, "password", isStrongPassword,
		"{0} must contain at least one letter and one number")

	return &Validator{validate: validate, trans: trans}
}

// Struct validates s and returns FieldErrors, or nil when s is valid.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(FieldErrors, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields[fieldErr.Field()] = append(fields[fieldErr.Field()], fieldErr.Translate(v.trans))
	}

	return fields
}

func mustRegister(validate *validator.Validate, trans ut.Translator, tag string, fn validator.Func, message string) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}

	register := func(ut ut.Translator) error {
		return ut.Add(tag, message, true)
	}
	translate := func(ut ut.Translator, fe validator.FieldError) string {
		msg, err := ut.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}

	if err := validate.RegisterTranslation(tag, trans, register, translate); err != nil {
		panic(err)
	}
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

func isDigits(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isStrongPassword(fl validator.FieldLevel) bool {
	var hasLetter, hasDigit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
