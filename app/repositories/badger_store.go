package repositories

import (
	"context"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerOptions configures OpenBadger. An empty Path opens an in-memory
// database.
type BadgerOptions struct {
	Path     string
	InMemory bool
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

// OpenBadger opens the Badger database and wires the repositories to it.
func OpenBadger(opts BadgerOptions, log *zap.Logger) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(badgerLogger{log.With(zap.String("component", "badger")).Sugar()}).
		WithLoggingLevel(badger.WARNING).
		WithNumVersionsToKeep(1)
	if opts.InMemory || opts.Path == "" {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database %q: %w", opts.Path, err)
	}

	return &Store{
		Persons:    NewBadgerPersonRepository(db),
		Posts:      NewBadgerPostRepository(db),
		Comments:   NewBadgerCommentRepository(db),
		Maintainer: &badgerMaintainer{db: db},
	}, nil
}

type badgerMaintainer struct {
	db *badger.DB
}

// Backup writes a full badger backup stream.
func (m *badgerMaintainer) Backup(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.db.Backup(w, 0); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}
	return nil
}

// Restore replaces the current contents with a backup stream.
func (m *badgerMaintainer) Restore(ctx context.Context, r io.Reader) error {
	if err := m.Clear(ctx); err != nil {
		return err
	}
	if err := m.db.Load(r, 16); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

// Clear drops every key, sequences included.
func (m *badgerMaintainer) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.db.DropAll(); err != nil {
		return fmt.Errorf("failed to drop all keys: %w", err)
	}
	return nil
}

func (m *badgerMaintainer) Close() error {
	return m.db.Close()
}
