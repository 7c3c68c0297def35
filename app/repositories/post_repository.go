package repositories

import (
	"context"

	"crudapp/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements BlogPostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// encodePost stores the post row only. Comments live under their own keys.
func encodePost(post *models.BlogPost) ([]byte, error) {
	row := *post
	row.Comments = nil
	return marshalEntity(&row)
}

// Create creates a new post
func (r *BadgerPostRepository) Create(ctx context.Context, post *models.BlogPost) error {
	post.BeforeCreate()
	return update(ctx, r.db, func(txn *badger.Txn) error {
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		data, err := encodePost(post)
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
}

// GetByID retrieves a post by ID without its comments
func (r *BadgerPostRepository) GetByID(ctx context.Context, id int) (*models.BlogPost, error) {
	var post models.BlogPost
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns all posts ordered by id
func (r *BadgerPostRepository) List(ctx context.Context) ([]*models.BlogPost, error) {
	var posts []*models.BlogPost
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(PostKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var post models.BlogPost
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			}); err != nil {
				return err
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update overwrites an existing post. The stored publication date is kept.
func (r *BadgerPostRepository) Update(ctx context.Context, post *models.BlogPost) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := postKey(post.ID)
		var current models.BlogPost
		if err := getEntity(txn, key, &current); err != nil {
			return err
		}
		post.PublishedDate = current.PublishedDate

		data, err := encodePost(post)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Delete removes a post and all of its comments in one transaction
func (r *BadgerPostRepository) Delete(ctx context.Context, id int) (*models.BlogPost, error) {
	var deleted models.BlogPost
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		key := postKey(id)
		if err := getEntity(txn, key, &deleted); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = commentPrefix(id)
		it := txn.NewIterator(opts)
		var commentKeys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			commentKeys = append(commentKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range commentKeys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Count returns the number of stored posts
func (r *BadgerPostRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = countPrefix(txn, []byte(PostKeyPrefix))
		return nil
	})
	return n, err
}

// CommentCounts maps post id to its number of comments. Posts without
// comments are absent from the map.
func (r *BadgerPostRepository) CommentCounts(ctx context.Context) (map[int]int, error) {
	counts := make(map[int]int)
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(CommentKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			postID, err := commentPostID(it.Item().Key())
			if err != nil {
				return err
			}
			counts[postID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
