package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"crudapp/app/models"
)

var (
	personTable  = models.Person{}.TableName()
	postTable    = models.BlogPost{}.TableName()
	commentTable = models.Comment{}.TableName()
)

// schemaMigration records one applied migration.
type schemaMigration struct {
	Version   string    `gorm:"primaryKey;size:64"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

type migration struct {
	version string
	up      func(tx *gorm.DB) error
}

// Migrations only ever add; applied versions are never edited.
var migrations = []migration{
	{
		version: "0001_create_persons",
		up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&models.Person{})
		},
	},
	{
		version: "0002_create_blogpost",
		up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&models.BlogPost{})
		},
	},
	{
		version: "0003_create_comment",
		up: func(tx *gorm.DB) error {
			err := tx.Exec(`CREATE TABLE ` + commentTable + ` (
				id integer PRIMARY KEY AUTOINCREMENT,
				blog_post_id integer NOT NULL REFERENCES ` + postTable + `(id) ON DELETE CASCADE,
				name varchar(80) NOT NULL,
				email varchar(254) NOT NULL,
				content text NOT NULL,
				created_date datetime NOT NULL
			)`).Error
			if err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX idx_` + commentTable + `_blog_post_id ON ` + commentTable + `(blog_post_id)`).Error
		},
	},
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Version   string
	Applied   bool
	AppliedAt time.Time
}

// Migrate applies pending migrations in order, each in its own transaction.
// It returns the versions it applied.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	g := db.gorm.WithContext(ctx)
	if err := g.Migrator().AutoMigrate(&schemaMigration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}
		err := g.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: m.version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration %s failed: %w", m.version, err)
		}
		db.log.Info("applied migration", zap.String("version", m.version))
		ran = append(ran, m.version)
	}
	return ran, nil
}

// Status lists every known migration with its applied state.
func (db *DB) Status(ctx context.Context) ([]MigrationStatus, error) {
	if !db.gorm.WithContext(ctx).Migrator().HasTable(&schemaMigration{}) {
		status := make([]MigrationStatus, len(migrations))
		for i, m := range migrations {
			status[i] = MigrationStatus{Version: m.version}
		}
		return status, nil
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	status := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		at, ok := applied[m.version]
		status = append(status, MigrationStatus{Version: m.version, Applied: ok, AppliedAt: at})
	}
	return status, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]time.Time, error) {
	var rows []schemaMigration
	if err := db.gorm.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		applied[r.Version] = r.AppliedAt
	}
	return applied, nil
}
