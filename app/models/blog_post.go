package models

import (
	"errors"
	"time"
)

// BeforeCreate stamps the publication date. It is never changed afterwards.
func (p *BlogPost) BeforeCreate() {
	if p.PublishedDate.IsZero() {
		p.PublishedDate = time.Now().UTC()
	}
}

// HasImage reports whether an image is attached.
func (p *BlogPost) HasImage() bool {
	return p.Image != ""
}

// AddComment attaches a comment to the post
func (p *BlogPost) AddComment(comment *Comment) error {
	if comment == nil {
		return errors.New("comment cannot be nil")
	}

	comment.BlogPostID = p.ID
	p.Comments = append(p.Comments, comment)
	return nil
}
