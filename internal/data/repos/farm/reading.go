package farm

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ReadingRepo interface {
	Create(dbc dbctx.Context, row *farm.VegetationReading) error
	ListByField(dbc dbctx.Context, fieldID uint, limit int) ([]*farm.VegetationReading, error)
	LatestByField(dbc dbctx.Context, fieldID uint) (*farm.VegetationReading, error)
	LatestForFields(dbc dbctx.Context, fieldIDs []uint) (map[uint]*farm.VegetationReading, error)
}

type readingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReadingRepo(db *gorm.DB, baseLog *logger.Logger) ReadingRepo {
	return &readingRepo{db: db, log: baseLog.With("repo", "ReadingRepo")}
}

func (r *readingRepo) Create(dbc dbctx.Context, row *farm.VegetationReading) error {
	if row == nil || row.FieldID == 0 {
		return fmt.Errorf("invalid vegetation reading")
	}
	if row.Date.IsZero() {
		row.Date = time.Now().UTC()
	}
	row.Date = row.Date.UTC()
	return dbc.DB(r.db).Create(row).Error
}

// ListByField returns readings newest first. limit <= 0 means no limit.
func (r *readingRepo) ListByField(dbc dbctx.Context, fieldID uint, limit int) ([]*farm.VegetationReading, error) {
	out := []*farm.VegetationReading{}
	if fieldID == 0 {
		return out, nil
	}
	q := dbc.DB(r.db).Where("field_id = ?", fieldID).Order("date DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *readingRepo) LatestByField(dbc dbctx.Context, fieldID uint) (*farm.VegetationReading, error) {
	if fieldID == 0 {
		return nil, nil
	}
	var out farm.VegetationReading
	err := dbc.DB(r.db).
		Where("field_id = ?", fieldID).
		Order("date DESC").
		Order("id DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestForFields returns the latest reading per field; fields without
// readings are absent from the map.
func (r *readingRepo) LatestForFields(dbc dbctx.Context, fieldIDs []uint) (map[uint]*farm.VegetationReading, error) {
	out := map[uint]*farm.VegetationReading{}
	if len(fieldIDs) == 0 {
		return out, nil
	}
	var rows []*farm.VegetationReading
	if err := dbc.DB(r.db).
		Where("field_id IN ?", fieldIDs).
		Order("field_id ASC").
		Order("date DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, seen := out[row.FieldID]; !seen {
			out[row.FieldID] = row
		}
	}
	return out, nil
}
