// Package forms binds submitted form values to typed inputs and collects
// field errors for re-rendering.
package forms

import "net/url"

// NonFieldErrors keys errors that do not belong to a single field.
const NonFieldErrors = "__all__"

// FieldErrors maps a form field name to its error messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get returns the messages for field, nil when there are none.
func (e FieldErrors) Get(field string) []string {
	return e[field]
}

// Has reports whether field already carries an error.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Form is what a template needs to render an HTML form: the values to
// prefill and the errors to display next to each field.
type Form struct {
	Values url.Values
	Errors FieldErrors
}

// Empty returns an unbound form.
func Empty() Form {
	return Form{Values: url.Values{}, Errors: FieldErrors{}}
}

func (f Form) Value(name string) string {
	return f.Values.Get(name)
}

func (f Form) ErrorsFor(name string) []string {
	return f.Errors.Get(name)
}

func (f Form) HasErrors() bool {
	return len(f.Errors) > 0
}

// Result is the outcome of binding a form: the typed value when valid,
// and the form state (values and errors) either way.
type Result[T any] struct {
	Value T
	Form  Form
}

// Valid reports whether binding produced no errors.
func (r Result[T]) Valid() bool {
	return !r.Form.HasErrors()
}

func newResult[T any](value T, values url.Values, errs FieldErrors) Result[T] {
	if values == nil {
		values = url.Values{}
	}
	return Result[T]{
		Value: value,
		Form:  Form{Values: values, Errors: errs},
	}
}
