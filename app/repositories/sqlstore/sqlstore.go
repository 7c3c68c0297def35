// Package sqlstore implements the repositories on SQLite through GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crudapp/app/repositories"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DB wraps the GORM handle for one SQLite file.
type DB struct {
	gorm *gorm.DB
	log  *zap.Logger
}

// Open connects to the SQLite database at path with foreign keys enforced.
// It does not run migrations.
func Open(path string, log *zap.Logger) (*DB, error) {
	log = log.With(zap.String("component", "sqlstore"))
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
		}
	}

	gormLogger := logger.New(
		zap.NewStdLog(log),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(log),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database opened", zap.String("path", path))
	return &DB{gorm: db, log: log}, nil
}

func gormLogLevel(log *zap.Logger) logger.LogLevel {
	if log.Core().Enabled(zapcore.DebugLevel) {
		return logger.Info
	}
	return logger.Warn
}

// Store wires the GORM repositories to this database.
func (db *DB) Store() *repositories.Store {
	return &repositories.Store{
		Persons:    &PersonRepository{db: db.gorm},
		Posts:      &PostRepository{db: db.gorm},
		Comments:   &CommentRepository{db: db.gorm},
		Maintainer: db,
	}
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Clear deletes every row. Sequences restart.
func (db *DB) Clear(ctx context.Context) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return clearTables(tx)
	})
}

func clearTables(tx *gorm.DB) error {
	for _, table := range []string{commentTable, postTable, personTable} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if tx.Migrator().HasTable("sqlite_sequence") {
		if err := tx.Exec("DELETE FROM sqlite_sequence").Error; err != nil {
			return fmt.Errorf("failed to reset sequences: %w", err)
		}
	}
	return nil
}

// notFound maps GORM's missing-row error onto the repository sentinel.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
