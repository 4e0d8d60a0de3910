package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to its violation messages, in the order they were found
type Errors map[string][]string

// Add appends a message for field
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one violation
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message recorded for field, or ""
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Messages flattens all violations sorted by field name
func (e Errors) Messages() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []string
	for _, field := range fields {
		out = append(out, e[field]...)
	}
	return out
}

// Validator wraps go-playground/validator and turns its errors into user-facing messages.
// Field keys come from the `form` struct tag and messages use the `label` tag.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator keyed on form field names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns every violated rule, or nil when s is valid
func (v *Validator) Struct(s interface{}) Errors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{"_": {err.Error()}}
	}

	labels := labelsOf(s)
	out := Errors{}
	for _, fe := range fieldErrs {
		label, ok := labels[fe.StructField()]
		if !ok {
			label = fe.Field()
		}
		out.Add(fe.Field(), message(fe, label))
	}
	return out
}

func labelsOf(s interface{}) map[string]string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	labels := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if label := f.Tag.Get("label"); label != "" {
			labels[f.Name] = label
		}
	}
	return labels
}

func message(fe validator.FieldError, label string) string {
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s es obligatorio", label)
	case "email":
		return fmt.Sprintf("%s no es válido", label)
	case "eqfield":
		return fmt.Sprintf("%s no coincide", label)
	case "min":
		if isString {
			return fmt.Sprintf("%s debe tener al menos %s caracteres", label, fe.Param())
		}
		return fmt.Sprintf("%s debe ser como mínimo %s", label, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s no puede superar %s caracteres", label, fe.Param())
		}
		return fmt.Sprintf("%s debe ser como máximo %s", label, fe.Param())
	case "latitude", "longitude":
		return "Ubica la propiedad en el mapa"
	default:
		return fmt.Sprintf("%s no es válido", label)
	}
}
