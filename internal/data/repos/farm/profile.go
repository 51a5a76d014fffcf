package farm

import (
	"errors"
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// ProfileRepo reads and writes the farmer and agronomist profiles hanging
// off a user account.
type ProfileRepo interface {
	CreateFarmer(dbc dbctx.Context, row *farm.Farmer) error
	CreateAgronomist(dbc dbctx.Context, row *farm.Agronomist) error
	FarmerByUserID(dbc dbctx.Context, userID uint) (*farm.Farmer, error)
	AgronomistByUserID(dbc dbctx.Context, userID uint) (*farm.Agronomist, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) CreateFarmer(dbc dbctx.Context, row *farm.Farmer) error {
	if row == nil || row.UserID == 0 {
		return fmt.Errorf("invalid farmer profile")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *profileRepo) CreateAgronomist(dbc dbctx.Context, row *farm.Agronomist) error {
	if row == nil || row.UserID == 0 {
		return fmt.Errorf("invalid agronomist profile")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *profileRepo) FarmerByUserID(dbc dbctx.Context, userID uint) (*farm.Farmer, error) {
	if userID == 0 {
		return nil, nil
	}
	var out farm.Farmer
	err := dbc.DB(r.db).Where("user_id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *profileRepo) AgronomistByUserID(dbc dbctx.Context, userID uint) (*farm.Agronomist, error) {
	if userID == 0 {
		return nil, nil
	}
	var out farm.Agronomist
	err := dbc.DB(r.db).Where("user_id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
