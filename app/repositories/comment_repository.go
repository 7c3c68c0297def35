package repositories

import (
	"cmp"
	"context"
	"slices"

	"crudapp/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create stores a comment if its post exists
func (r *BadgerCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if err := exists(txn, postKey(comment.BlogPostID)); err != nil {
			return err
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		data, err := marshalEntity(comment)
		if err != nil {
			return err
		}
		return txn.Set(commentKey(comment.BlogPostID, comment.ID), data)
	})
}

// ListByPost returns the comments of a post, oldest first
func (r *BadgerCommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commentPrefix(postID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var comment models.Comment
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			}); err != nil {
				return err
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(comments, func(a, b *models.Comment) int {
		if c := a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return comments, nil
}

// CountByPost returns the number of comments on a post
func (r *BadgerCommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = countPrefix(txn, commentPrefix(postID))
		return nil
	})
	return n, err
}
