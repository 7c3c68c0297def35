package repositories

import (
	"context"
	"errors"
	"io"

	"crudapp/app/models"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// PersonRepository defines the interface for person data access
type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) error
	GetByID(ctx context.Context, id int) (*models.Person, error)
	List(ctx context.Context) ([]*models.Person, error)
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

// BlogPostRepository defines the interface for blog post data access.
// Delete removes the post together with its comments and returns the
// deleted row.
type BlogPostRepository interface {
	Create(ctx context.Context, post *models.BlogPost) error
	GetByID(ctx context.Context, id int) (*models.BlogPost, error)
	List(ctx context.Context) ([]*models.BlogPost, error)
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id int) (*models.BlogPost, error)
	Count(ctx context.Context) (int, error)
	CommentCounts(ctx context.Context) (map[int]int, error)
}

// CommentRepository defines the interface for comment data access.
// Create fails with ErrNotFound when the owning post does not exist.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID int) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID int) (int, error)
}

// Maintainer covers whole-database operations used by the CLI.
type Maintainer interface {
	Backup(ctx context.Context, w io.Writer) error
	Restore(ctx context.Context, r io.Reader) error
	Clear(ctx context.Context) error
	Close() error
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Persons  PersonRepository
	Posts    BlogPostRepository
	Comments CommentRepository
	Maintainer
}
