package forms

import (
	"net/url"
	"strconv"

	"crudapp/app/models"
)

// PersonInput is the validated content of a person form. Limits match
// the models package constants.
type PersonInput struct {
	FName string `form:"fname" validate:"required,max=10"`
	LName string `form:"lname" validate:"required,max=10"`
	Age   int    `form:"age" validate:"gte=-2147483648,lte=2147483647"`
	Email string `form:"email" validate:"required,max=20,email"`
	City  string `form:"city" validate:"required,max=10"`
}

// ParsePerson binds submitted values to a PersonInput.
func ParsePerson(values url.Values) Result[PersonInput] {
	errs := FieldErrors{}
	in := PersonInput{
		FName: cleanString(values, "fname"),
		LName: cleanString(values, "lname"),
		Email: cleanString(values, "email"),
		City:  cleanString(values, "city"),
	}
	in.Age, _ = parseInt(values, "age", errs)

	check(in, errs)
	return newResult(in, values, errs)
}

// Apply copies the input onto p, leaving the ID alone.
func (in PersonInput) Apply(p *models.Person) {
	p.FName = in.FName
	p.LName = in.LName
	p.Age = in.Age
	p.Email = in.Email
	p.City = in.City
}

// PersonForm returns a form prefilled from an existing person.
func PersonForm(p *models.Person) Form {
	f := Empty()
	f.Values.Set("fname", p.FName)
	f.Values.Set("lname", p.LName)
	f.Values.Set("age", strconv.Itoa(p.Age))
	f.Values.Set("email", p.Email)
	f.Values.Set("city", p.City)
	return f
}
