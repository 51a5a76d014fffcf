package app

import (
	"gorm.io/gorm"

	"github.com/fieldcare/fieldcare-backend/internal/data/repos"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type Repos struct {
	Profile   repos.ProfileRepo
	Field     repos.FieldRepo
	Reading   repos.ReadingRepo
	Request   repos.RequestRepo
	Treatment repos.TreatmentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profile:   repos.NewProfileRepo(db, log),
		Field:     repos.NewFieldRepo(db, log),
		Reading:   repos.NewReadingRepo(db, log),
		Request:   repos.NewRequestRepo(db, log),
		Treatment: repos.NewTreatmentRepo(db, log),
	}
}
