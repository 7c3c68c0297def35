package models

import "time"

// Column limits. The person limits are kept for compatibility with rows
// written by the previous deployment.
const (
	PersonNameMaxLen  = 10
	PersonEmailMaxLen = 20
	PersonCityMaxLen  = 10

	BlogTitleMaxLen  = 200
	BlogAuthorMaxLen = 100
	BlogImageMaxLen  = 100

	// BlogImageMaxPixels caps width*height of an uploaded image so that
	// verifying it never decodes an oversized bitmap.
	BlogImageMaxPixels = 40_000_000

	CommentNameMaxLen  = 80
	CommentEmailMaxLen = 254
)

// Person is a flat contact record.
type Person struct {
	ID    int    `gorm:"primaryKey;autoIncrement" json:"id"`
	FName string `gorm:"column:fname;size:10;not null" json:"fname"`
	LName string `gorm:"column:lname;size:10;not null" json:"lname"`
	Age   int    `gorm:"column:age;not null" json:"age"`
	Email string `gorm:"column:email;size:20;not null" json:"email"`
	City  string `gorm:"column:city;size:10;not null" json:"city"`
}

func (Person) TableName() string {
	return "crudapp_persons"
}

// BlogPost owns zero or more comments. Image is a path relative to the
// media root, empty when no image was uploaded.
type BlogPost struct {
	ID            int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string     `gorm:"column:title;size:200;not null" json:"title"`
	Content       string     `gorm:"column:content;type:text;not null" json:"content"`
	Author        string     `gorm:"column:author;size:100;not null" json:"author"`
	PublishedDate time.Time  `gorm:"column:published_date;not null" json:"published_date"`
	Image         string     `gorm:"column:image;size:100" json:"image,omitempty"`
	Comments      []*Comment `gorm:"foreignKey:BlogPostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

func (BlogPost) TableName() string {
	return "crudapp_blogpost"
}

// Comment belongs to exactly one BlogPost.
type Comment struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	BlogPostID  int       `gorm:"column:blog_post_id;not null;index" json:"blog_post_id"`
	Name        string    `gorm:"column:name;size:80;not null" json:"name"`
	Email       string    `gorm:"column:email;size:254;not null" json:"email"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedDate time.Time `gorm:"column:created_date;not null" json:"created_date"`
}

func (Comment) TableName() string {
	return "crudapp_comment"
}
