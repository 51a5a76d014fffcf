package db

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20240601_create_profiles_and_fields",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&farm.Farmer{}, &farm.Agronomist{}, &farm.Field{}, &farm.VegetationReading{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("vegetation_reading", "field", "agronomist", "farmer")
			},
		},
		{
			ID: "20240601_create_treatment_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&treatment.Request{}, &treatment.Treatment{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("treatment", "treatment_request")
			},
		},
		{
			ID: "20240615_add_listing_indexes",
			Migrate: func(tx *gorm.DB) error {
				stmts := []string{
					`CREATE INDEX IF NOT EXISTS idx_treatment_request_agronomist_created ON treatment_request (agronomist_id, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_vegetation_reading_date ON vegetation_reading (date)`,
				}
				for _, s := range stmts {
					if err := tx.Exec(s).Error; err != nil {
						return fmt.Errorf("create index: %w", err)
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Exec(`DROP INDEX IF EXISTS idx_treatment_request_agronomist_created`).Error; err != nil {
					return err
				}
				return tx.Exec(`DROP INDEX IF EXISTS idx_vegetation_reading_date`).Error
			},
		},
	}
}

// Migrate applies every pending migration in order.
func Migrate(log *logger.Logger, db *gorm.DB) error {
	log.Info("Running database migrations...")
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.Migrate(); err != nil {
		log.Error("Migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
