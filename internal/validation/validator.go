// Package validation wraps go-playground/validator with the rules used by
// request payloads and turns failures into field-level messages keyed by the
// JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	personNameRe = regexp.MustCompile(`^[а-яА-ЯёЁa-zA-Z -]+$`)
	usernameRe   = regexp.MustCompile(`^[\w.@+-]+$`)
)

// ReservedUsername collides with the /users/me/ route.
const ReservedUsername = "me"

// FieldErrors maps a JSON field name to its messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(fe[f], ", ")))
	}
	return strings.Join(parts, "; ")
}

// GetValidator returns the shared validator with custom rules registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		mustRegister("personname", func(fl validator.FieldLevel) bool {
			return IsPersonName(fl.Field().String())
		})
		mustRegister("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		mustRegister("notme", func(fl validator.FieldLevel) bool {
			return !IsReservedUsername(fl.Field().String())
		})
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// IsPersonName reports whether s contains only Cyrillic or Latin letters,
// spaces and hyphens.
func IsPersonName(s string) bool {
	return personNameRe.MatchString(s)
}

// IsReservedUsername reports whether s is "me" in any letter case.
func IsReservedUsername(s string) bool {
	return strings.EqualFold(s, ReservedUsername)
}

// ValidateStruct validates s and returns nil when it is valid.
func ValidateStruct(s interface{}) FieldErrors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("non_field_errors", err.Error())
		return out
	}

	for _, fe := range verrs {
		field, nested := splitNamespace(fe.Namespace())
		msg := message(fe)
		if nested != "" {
			msg = nested + ": " + msg
		}
		out.Add(field, msg)
	}
	return out
}

// splitNamespace turns "Req.ingredients[1].amount" into ("ingredients", "amount").
func splitNamespace(ns string) (string, string) {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	top := ns
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		top = ns[:i]
	}
	var nested string
	if i := strings.LastIndex(ns, "."); i >= 0 {
		nested = ns[i+1:]
	}
	return top, nested
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("ensure this list has at least %s items", fe.Param())
		}
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param())
	case "personname":
		return "enter a valid name"
	case "username":
		return "enter a valid username: letters, digits and @/./+/-/_ only"
	case "notme":
		return `username "me" is not allowed`
	case "unique":
		return "values must not repeat"
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}
