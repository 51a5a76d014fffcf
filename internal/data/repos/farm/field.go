package farm

import (
	"errors"
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type FieldRepo interface {
	Create(dbc dbctx.Context, row *farm.Field) error
	GetByID(dbc dbctx.Context, id uint) (*farm.Field, error)
	GetOwned(dbc dbctx.Context, farmerID, id uint) (*farm.Field, error)
	ListByFarmer(dbc dbctx.Context, farmerID uint) ([]*farm.Field, error)
	ListAll(dbc dbctx.Context) ([]*farm.Field, error)
}

type fieldRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldRepo(db *gorm.DB, baseLog *logger.Logger) FieldRepo {
	return &fieldRepo{db: db, log: baseLog.With("repo", "FieldRepo")}
}

func (r *fieldRepo) Create(dbc dbctx.Context, row *farm.Field) error {
	if row == nil || row.FarmerID == 0 {
		return fmt.Errorf("invalid field")
	}
	return dbc.DB(r.db).Create(row).Error
}

// GetByID returns nil, nil when the field does not exist.
func (r *fieldRepo) GetByID(dbc dbctx.Context, id uint) (*farm.Field, error) {
	if id == 0 {
		return nil, nil
	}
	var out farm.Field
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fieldRepo) GetOwned(dbc dbctx.Context, farmerID, id uint) (*farm.Field, error) {
	if farmerID == 0 || id == 0 {
		return nil, nil
	}
	var out farm.Field
	err := dbc.DB(r.db).Where("id = ? AND farmer_id = ?", id, farmerID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fieldRepo) ListByFarmer(dbc dbctx.Context, farmerID uint) ([]*farm.Field, error) {
	out := []*farm.Field{}
	if farmerID == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("farmer_id = ?", farmerID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fieldRepo) ListAll(dbc dbctx.Context) ([]*farm.Field, error) {
	out := []*farm.Field{}
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
