package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillBuildingImages   = "2026-10-01_backfill_building_images"
	migrationNormalizeImpressionLists = "2026-10-01_normalize_impression_lists"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillBuildingImages, apply: backfillBuildingImages},
		{name: migrationNormalizeImpressionLists, apply: normalizeImpressionLists},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillBuildingImages rewrites rows imported without an images list so
// every building carries a JSON array.
func backfillBuildingImages(db *gorm.DB) error {
	return db.Model(&buildings.Building{}).
		Where("images IS NULL OR images = ''").
		Update("images", "[]").Error
}

func normalizeImpressionLists(db *gorm.DB) error {
	for _, column := range []string{"moods", "photos", "hyperlinks"} {
		if err := db.Model(&impressions.Impression{}).
			Where(column + " IS NULL OR " + column + " = ''").
			Update(column, "{}").Error; err != nil {
			return err
		}
	}
	return nil
}
