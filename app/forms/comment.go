package forms

import (
	"net/url"

	"crudapp/app/models"
)

type CommentInput struct {
	Name    string `form:"name" validate:"required,max=80"`
	Email   string `form:"email" validate:"required,max=254,email"`
	Content string `form:"content" validate:"required"`
}

func ParseComment(values url.Values) Result[CommentInput] {
	errs := FieldErrors{}
	in := CommentInput{
		Name:    cleanString(values, "name"),
		Email:   cleanString(values, "email"),
		Content: cleanString(values, "content"),
	}

	check(in, errs)
	return newResult(in, values, errs)
}

// Comment builds an unsaved comment not yet linked to a post.
func (in CommentInput) Comment() *models.Comment {
	return &models.Comment{
		Name:    in.Name,
		Email:   in.Email,
		Content: in.Content,
	}
}
