package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crudapp/app/forms"
	"crudapp/app/media"
	"crudapp/app/models"
	"crudapp/app/repositories"
)

// PostSummary is a list row: the post and how many comments it has.
type PostSummary struct {
	Post         *models.BlogPost
	CommentCount int
}

// BlogService handles business logic for blog posts and their comments.
// It owns the lifecycle of uploaded image files.
type BlogService struct {
	posts    repositories.BlogPostRepository
	comments repositories.CommentRepository
	media    media.Store
	log      *zap.Logger
}

// NewBlogService creates a new BlogService
func NewBlogService(posts repositories.BlogPostRepository, comments repositories.CommentRepository, store media.Store, log *zap.Logger) *BlogService {
	return &BlogService{
		posts:    posts,
		comments: comments,
		media:    store,
		log:      log.With(zap.String("component", "blog.service")),
	}
}

// List returns every post with its comment count
func (s *BlogService) List(ctx context.Context) ([]PostSummary, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	counts, err := s.posts.CommentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	summaries := make([]PostSummary, len(posts))
	for i, post := range posts {
		summaries[i] = PostSummary{Post: post, CommentCount: counts[post.ID]}
	}
	return summaries, nil
}

// Get retrieves a post without comments
func (s *BlogService) Get(ctx context.Context, id int) (*models.BlogPost, error) {
	return s.posts.GetByID(ctx, id)
}

// GetWithComments retrieves a post by ID with its comments
func (s *BlogService) GetWithComments(ctx context.Context, id int) (*models.BlogPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	post.Comments = comments
	return post, nil
}

// Create saves the uploaded image, if any, then the post. The image file is
// removed again when the insert fails.
func (s *BlogService) Create(ctx context.Context, in forms.BlogPostInput) (*models.BlogPost, error) {
	post := &models.BlogPost{}
	in.Apply(post)

	if in.Image != nil {
		path, err := s.media.Save(media.BlogImagesDir, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		post.Image = path
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.discard(post.Image)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.log.Info("post created", zap.Int("id", post.ID), zap.String("image", post.Image))
	return post, nil
}

// Update overwrites the editable fields of post id. A new upload replaces
// the current image; ClearImage drops it. The old file is removed only
// after the row update succeeded.
func (s *BlogService) Update(ctx context.Context, id int, in forms.BlogPostInput) (*models.BlogPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImage := post.Image
	in.Apply(post)

	var saved string
	switch {
	case in.Image != nil:
		saved, err = s.media.Save(media.BlogImagesDir, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		post.Image = saved
	case in.ClearImage:
		post.Image = ""
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.discard(saved)
		return nil, fmt.Errorf("failed to update post %d: %w", id, err)
	}
	if oldImage != post.Image {
		s.discard(oldImage)
	}
	s.log.Info("post updated", zap.Int("id", id), zap.String("image", post.Image))
	return post, nil
}

// Delete removes the post with its comments, then its image file
func (s *BlogService) Delete(ctx context.Context, id int) error {
	deleted, err := s.posts.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	s.discard(deleted.Image)
	s.log.Info("post deleted", zap.Int("id", id))
	return nil
}

// AddComment stores a new comment on post and appends it to
// post.Comments once saved.
func (s *BlogService) AddComment(ctx context.Context, post *models.BlogPost, in forms.CommentInput) (*models.Comment, error) {
	comment := in.Comment()
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment to post %d: %w", post.ID, err)
	}
	if err := post.AddComment(comment); err != nil {
		return nil, err
	}
	s.log.Info("comment added", zap.Int("post_id", post.ID), zap.Int("id", comment.ID))
	return comment, nil
}

// discard removes an image file. Failures are logged: the row is already
// consistent and a stray file is harmless.
func (s *BlogService) discard(path string) {
	if path == "" {
		return
	}
	if err := s.media.Delete(path); err != nil {
		s.log.Warn("failed to remove image file", zap.String("path", path), zap.Error(err))
	}
}
