package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crudapp/app/models"
	"crudapp/app/repositories"
)

// PersonRepository implements repositories.PersonRepository with GORM.
type PersonRepository struct {
	db *gorm.DB
}

func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *PersonRepository) GetByID(ctx context.Context, id int) (*models.Person, error) {
	var person models.Person
	if err := r.db.WithContext(ctx).First(&person, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &person, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]*models.Person, error) {
	var persons []*models.Person
	if err := r.db.WithContext(ctx).Order("id").Find(&persons).Error; err != nil {
		return nil, err
	}
	return persons, nil
}

func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	res := r.db.WithContext(ctx).Model(&models.Person{ID: person.ID}).
		Select("fname", "lname", "age", "email", "city").
		Updates(person)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PersonRepository) Delete(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&models.Person{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PersonRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Person{}).Count(&n).Error
	return int(n), err
}

// PostRepository implements repositories.BlogPostRepository with GORM.
type PostRepository struct {
	db *gorm.DB
}

func (r *PostRepository) Create(ctx context.Context, post *models.BlogPost) error {
	post.BeforeCreate()
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *PostRepository) GetByID(ctx context.Context, id int) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]*models.BlogPost, error) {
	var posts []*models.BlogPost
	if err := r.db.WithContext(ctx).Order("id").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Update writes the editable columns. published_date is never written.
func (r *PostRepository) Update(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.BlogPost
		if err := tx.Select("id", "published_date").First(&current, post.ID).Error; err != nil {
			return notFound(err)
		}
		post.PublishedDate = current.PublishedDate

		return tx.Model(&models.BlogPost{ID: post.ID}).
			Omit(clause.Associations).
			Select("title", "content", "author", "image").
			Updates(post).Error
	})
}

// Delete removes the post and its comments in one transaction.
func (r *PostRepository) Delete(ctx context.Context, id int) (*models.BlogPost, error) {
	var deleted models.BlogPost
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("blog_post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments of post %d: %w", id, err)
		}
		return tx.Delete(&models.BlogPost{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BlogPost{}).Count(&n).Error
	return int(n), err
}

// CommentCounts aggregates comments per post in a single query.
func (r *PostRepository) CommentCounts(ctx context.Context) (map[int]int, error) {
	query, args, err := psql.Select("blog_post_id", "COUNT(*) AS n").
		From(commentTable).
		GroupBy("blog_post_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for CommentCounts: %w", err)
	}

	var rows []struct {
		BlogPostID int
		N          int
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.BlogPostID] = row.N
	}
	return counts, nil
}

// CommentRepository implements repositories.CommentRepository with GORM.
type CommentRepository struct {
	db *gorm.DB
}

// Create checks the owning post inside the insert transaction.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.BlogPost{}).Where("id = ?", comment.BlogPostID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repositories.ErrNotFound
		}
		return tx.Create(comment).Error
	})
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("blog_post_id = ?", postID).
		Order("created_date, id").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(commentTable).
		Where(sq.Eq{"blog_post_id": postID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for CountByPost: %w", err)
	}

	var n int
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
