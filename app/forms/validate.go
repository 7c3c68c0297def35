package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired   = "This field is required."
	msgWholeNum   = "Enter a whole number."
	msgEmail      = "Enter a valid email address."
	msgInvalidVal = "Enter a valid value."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report errors under the HTML field name, not the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct-tag constraints on input and records failures.
// Fields that already failed to parse keep only their parse error.
func check(input any, errs FieldErrors) {
	err := validate.Struct(input)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldErrors, err.Error())
		return
	}
	for _, fe := range verrs {
		if errs.Has(fe.Field()) {
			continue
		}
		errs.Add(fe.Field(), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgEmail
	case "max":
		if s, ok := fe.Value().(string); ok {
			return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), utf8.RuneCountInString(s))
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return msgInvalidVal
	}
}

func cleanString(values url.Values, name string) string {
	return strings.TrimSpace(values.Get(name))
}

// parseInt coerces a required integer field. ok is false when an error
// was recorded.
func parseInt(values url.Values, name string, errs FieldErrors) (n int, ok bool) {
	raw := cleanString(values, name)
	if raw == "" {
		errs.Add(name, msgRequired)
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.Add(name, msgWholeNum)
		return 0, false
	}
	return int(v), true
}

// parseBool reads a checkbox; any of "on", "true", "1" counts as checked.
func parseBool(values url.Values, name string) bool {
	switch strings.ToLower(cleanString(values, name)) {
	case "on", "true", "1":
		return true
	}
	return false
}
