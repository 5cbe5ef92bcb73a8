package schema

import (
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "0001_initial",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&AdminUser{}, &Artwork{})
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Migrator().DropTable(&Artwork{}, &AdminUser{})
			},
		},
		{
			ID: "0002_artwork_search_text",
			Migrate: func(txn *gorm.DB) error {
				if !txn.Migrator().HasColumn(&Artwork{}, "SearchText") {
					if err := txn.Migrator().AddColumn(&Artwork{}, "SearchText"); err != nil {
						return err
					}
				}
				return backfillSearchText(txn)
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Migrator().DropColumn(&Artwork{}, "SearchText")
			},
		},
	}
}

func backfillSearchText(txn *gorm.DB) error {
	var batch []Artwork
	result := txn.Select("id", "code", "name").FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
		for _, artwork := range batch {
			err := txn.Model(&Artwork{}).Where("id = ?", artwork.Id).
				UpdateColumn("search_text", SearchText(artwork.Code, artwork.Name)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return result.Error
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	m.InitSchema(func(txn *gorm.DB) error {
		return txn.AutoMigrate(&AdminUser{}, &Artwork{})
	})

	return m
}

func Migrate(db *gorm.DB) error {
	if err := newMigrator(db).Migrate(); err != nil {
		slog.Error("db migration failed", "error", err)
		return fmt.Errorf("db migration failed: %w", err)
	}
	return nil
}

func RollbackLast(db *gorm.DB) error {
	if err := newMigrator(db).RollbackLast(); err != nil {
		slog.Error("db rollback failed", "error", err)
		return fmt.Errorf("db rollback failed: %w", err)
	}
	return nil
}
