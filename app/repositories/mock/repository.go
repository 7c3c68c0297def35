// Package mock provides in-memory repositories for service and controller
// tests.
package mock

import (
	"context"
	"io"
	"sort"
	"sync"

	"crudapp/app/models"
	"crudapp/app/repositories"
)

// DB is the shared state behind the mock repositories, so that cascade
// and comment checks see the same posts.
type DB struct {
	mutex    sync.RWMutex
	persons  map[int]*models.Person
	posts    map[int]*models.BlogPost
	comments map[int]*models.Comment
	nextID   map[string]int

	// Err, when set, is returned by every call.
	Err error
	// WriteErr, when set, is returned by Create, Update and Delete only.
	WriteErr error
}

// NewStore returns a Store backed by a fresh in-memory DB.
func NewStore() (*repositories.Store, *DB) {
	db := &DB{}
	db.reset()
	return &repositories.Store{
		Persons:    &PersonRepository{db: db},
		Posts:      &PostRepository{db: db},
		Comments:   &CommentRepository{db: db},
		Maintainer: db,
	}, db
}

func (db *DB) reset() {
	db.persons = make(map[int]*models.Person)
	db.posts = make(map[int]*models.BlogPost)
	db.comments = make(map[int]*models.Comment)
	db.nextID = make(map[string]int)
}

func (db *DB) next(kind string) int {
	db.nextID[kind]++
	return db.nextID[kind]
}

func (db *DB) SetError(err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.Err = err
}

func (db *DB) SetWriteError(err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.WriteErr = err
}

func (db *DB) writeErr() error {
	if db.Err != nil {
		return db.Err
	}
	return db.WriteErr
}

func (db *DB) Backup(ctx context.Context, w io.Writer) error  { return db.Err }
func (db *DB) Restore(ctx context.Context, r io.Reader) error { return db.Err }
func (db *DB) Close() error                                   { return nil }

func (db *DB) Clear(ctx context.Context) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.Err != nil {
		return db.Err
	}
	db.reset()
	return nil
}

type PersonRepository struct {
	db *DB
}

func (m *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	person.ID = m.db.next("person")
	stored := *person
	m.db.persons[person.ID] = &stored
	return nil
}

func (m *PersonRepository) GetByID(ctx context.Context, id int) (*models.Person, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	person, exists := m.db.persons[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *person
	return &copied, nil
}

func (m *PersonRepository) List(ctx context.Context) ([]*models.Person, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	var persons []*models.Person
	for _, id := range sortedKeys(m.db.persons) {
		copied := *m.db.persons[id]
		persons = append(persons, &copied)
	}
	return persons, nil
}

func (m *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	if _, exists := m.db.persons[person.ID]; !exists {
		return repositories.ErrNotFound
	}
	stored := *person
	m.db.persons[person.ID] = &stored
	return nil
}

func (m *PersonRepository) Delete(ctx context.Context, id int) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	if _, exists := m.db.persons[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.db.persons, id)
	return nil
}

func (m *PersonRepository) Count(ctx context.Context) (int, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	return len(m.db.persons), m.db.Err
}

type PostRepository struct {
	db *DB
}

func (m *PostRepository) Create(ctx context.Context, post *models.BlogPost) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	post.BeforeCreate()
	post.ID = m.db.next("post")
	stored := *post
	stored.Comments = nil
	m.db.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(ctx context.Context, id int) (*models.BlogPost, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	post, exists := m.db.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (m *PostRepository) List(ctx context.Context) ([]*models.BlogPost, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	var posts []*models.BlogPost
	for _, id := range sortedKeys(m.db.posts) {
		copied := *m.db.posts[id]
		posts = append(posts, &copied)
	}
	return posts, nil
}

func (m *PostRepository) Update(ctx context.Context, post *models.BlogPost) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	current, exists := m.db.posts[post.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	post.PublishedDate = current.PublishedDate
	stored := *post
	stored.Comments = nil
	m.db.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) Delete(ctx context.Context, id int) (*models.BlogPost, error) {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return nil, err
	}

	post, exists := m.db.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	for cid, c := range m.db.comments {
		if c.BlogPostID == id {
			delete(m.db.comments, cid)
		}
	}
	delete(m.db.posts, id)
	return post, nil
}

func (m *PostRepository) Count(ctx context.Context) (int, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	return len(m.db.posts), m.db.Err
}

func (m *PostRepository) CommentCounts(ctx context.Context) (map[int]int, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	counts := make(map[int]int)
	for _, c := range m.db.comments {
		counts[c.BlogPostID]++
	}
	return counts, nil
}

type CommentRepository struct {
	db *DB
}

func (m *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()
	if err := m.db.writeErr(); err != nil {
		return err
	}

	if _, exists := m.db.posts[comment.BlogPostID]; !exists {
		return repositories.ErrNotFound
	}
	comment.BeforeCreate()
	comment.ID = m.db.next("comment")
	stored := *comment
	m.db.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()
	if m.db.Err != nil {
		return nil, m.db.Err
	}

	var comments []*models.Comment
	for _, id := range sortedKeys(m.db.comments) {
		if c := m.db.comments[id]; c.BlogPostID == postID {
			copied := *c
			comments = append(comments, &copied)
		}
	}
	return comments, nil
}

func (m *CommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	comments, err := m.ListByPost(ctx, postID)
	return len(comments), err
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
