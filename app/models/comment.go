package models

import (
	"errors"
	"time"
)

// BeforeCreate sets the creation time if the caller did not
func (c *Comment) BeforeCreate() {
	if c.CreatedDate.IsZero() {
		c.CreatedDate = time.Now().UTC()
	}
}

// SetPost links the comment to its owning post
func (c *Comment) SetPost(post *BlogPost) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}
	if post.ID <= 0 {
		return errors.New("post has not been saved")
	}

	c.BlogPostID = post.ID
	return nil
}
