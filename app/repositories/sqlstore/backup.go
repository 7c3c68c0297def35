package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crudapp/app/models"
)

const dumpFormat = "crudapp-sqlite-dump/1"

// dump is the portable backup document: every row with its id.
type dump struct {
	Format   string             `json:"format"`
	Persons  []*models.Person   `json:"persons"`
	Posts    []*models.BlogPost `json:"posts"`
	Comments []*models.Comment  `json:"comments"`
}

// Backup writes all rows as a JSON document read in one transaction.
func (db *DB) Backup(ctx context.Context, w io.Writer) error {
	d := dump{Format: dumpFormat}
	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&d.Persons).Error; err != nil {
			return err
		}
		if err := tx.Order("id").Find(&d.Posts).Error; err != nil {
			return err
		}
		return tx.Order("id").Find(&d.Comments).Error
	})
	if err != nil {
		return fmt.Errorf("failed to read rows for backup: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&d); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Restore replaces every row with the contents of a Backup document.
func (db *DB) Restore(ctx context.Context, r io.Reader) error {
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if d.Format != dumpFormat {
		return fmt.Errorf("unsupported backup format %q", d.Format)
	}

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearTables(tx); err != nil {
			return err
		}
		tx = tx.Omit(clause.Associations)
		if len(d.Persons) > 0 {
			if err := tx.Create(d.Persons).Error; err != nil {
				return fmt.Errorf("failed to restore persons: %w", err)
			}
		}
		if len(d.Posts) > 0 {
			if err := tx.Create(d.Posts).Error; err != nil {
				return fmt.Errorf("failed to restore posts: %w", err)
			}
		}
		if len(d.Comments) > 0 {
			if err := tx.Create(d.Comments).Error; err != nil {
				return fmt.Errorf("failed to restore comments: %w", err)
			}
		}
		return nil
	})
}
