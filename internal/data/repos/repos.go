package repos

import (
	"github.com/fieldcare/fieldcare-backend/internal/data/repos/farm"
	"github.com/fieldcare/fieldcare-backend/internal/data/repos/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type FieldRepo = farm.FieldRepo
type ReadingRepo = farm.ReadingRepo
type ProfileRepo = farm.ProfileRepo

type RequestRepo = treatment.RequestRepo
type TreatmentRepo = treatment.TreatmentRepo
type Visibility = treatment.Visibility

func NewFieldRepo(db *gorm.DB, baseLog *logger.Logger) FieldRepo {
	return farm.NewFieldRepo(db, baseLog)
}
func NewReadingRepo(db *gorm.DB, baseLog *logger.Logger) ReadingRepo {
	return farm.NewReadingRepo(db, baseLog)
}
func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return farm.NewProfileRepo(db, baseLog)
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return treatment.NewRequestRepo(db, baseLog)
}
func NewTreatmentRepo(db *gorm.DB, baseLog *logger.Logger) TreatmentRepo {
	return treatment.NewTreatmentRepo(db, baseLog)
}
