package repositories

import (
	"context"

	"crudapp/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPersonRepository implements PersonRepository using BadgerDB
type BadgerPersonRepository struct {
	db *badger.DB
}

// NewBadgerPersonRepository creates a new BadgerPersonRepository
func NewBadgerPersonRepository(db *badger.DB) *BadgerPersonRepository {
	return &BadgerPersonRepository{db: db}
}

// Create creates a new person
func (r *BadgerPersonRepository) Create(ctx context.Context, person *models.Person) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		id, err := getNextID(txn, PersonSeqKey)
		if err != nil {
			return err
		}
		person.ID = id

		data, err := marshalEntity(person)
		if err != nil {
			return err
		}
		return txn.Set(personKey(person.ID), data)
	})
}

// GetByID retrieves a person by ID
func (r *BadgerPersonRepository) GetByID(ctx context.Context, id int) (*models.Person, error) {
	var person models.Person
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, personKey(id), &person)
	})
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// List returns all persons ordered by id
func (r *BadgerPersonRepository) List(ctx context.Context) ([]*models.Person, error) {
	var persons []*models.Person
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(PersonKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var person models.Person
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &person)
			}); err != nil {
				return err
			}
			persons = append(persons, &person)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persons, nil
}

// Update overwrites an existing person
func (r *BadgerPersonRepository) Update(ctx context.Context, person *models.Person) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := personKey(person.ID)
		if err := exists(txn, key); err != nil {
			return err
		}

		data, err := marshalEntity(person)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Delete deletes a person by ID
func (r *BadgerPersonRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := personKey(id)
		if err := exists(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Count returns the number of stored persons
func (r *BadgerPersonRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = countPrefix(txn, []byte(PersonKeyPrefix))
		return nil
	})
	return n, err
}
