package treatment

import (
	"errors"
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type TreatmentRepo interface {
	Create(dbc dbctx.Context, row *treatment.Treatment) error
	// GetByID loads the treatment with its request and field; nil, nil when missing.
	GetByID(dbc dbctx.Context, id uint) (*treatment.Treatment, error)
	ExistsForRequest(dbc dbctx.Context, requestID uint) (bool, error)
	ListVisible(dbc dbctx.Context, vis Visibility) ([]*treatment.View, error)
	GetVisible(dbc dbctx.Context, vis Visibility, id uint) (*treatment.View, error)
}

type treatmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreatmentRepo(db *gorm.DB, baseLog *logger.Logger) TreatmentRepo {
	return &treatmentRepo{db: db, log: baseLog.With("repo", "TreatmentRepo")}
}

func (r *treatmentRepo) Create(dbc dbctx.Context, row *treatment.Treatment) error {
	if row == nil || row.RequestID == 0 {
		return fmt.Errorf("invalid treatment")
	}
	if row.Status == "" {
		row.Status = treatment.StatusScheduled
	}
	return dbc.DB(r.db).Omit("Request").Create(row).Error
}

func (r *treatmentRepo) GetByID(dbc dbctx.Context, id uint) (*treatment.Treatment, error) {
	if id == 0 {
		return nil, nil
	}
	var out treatment.Treatment
	err := dbc.DB(r.db).
		Preload("Request").
		Preload("Request.Field").
		Where("id = ?", id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *treatmentRepo) ExistsForRequest(dbc dbctx.Context, requestID uint) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&treatment.Treatment{}).
		Where("request_id = ?", requestID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *treatmentRepo) viewQuery(dbc dbctx.Context, vis Visibility) *gorm.DB {
	q := dbc.DB(r.db).
		Table("treatment").
		Select("treatment.*, treatment_request.before_ndvi_value").
		Joins("JOIN treatment_request ON treatment_request.id = treatment.request_id").
		Joins("JOIN field ON field.id = treatment_request.field_id")
	return vis.apply(q)
}

func (r *treatmentRepo) ListVisible(dbc dbctx.Context, vis Visibility) ([]*treatment.View, error) {
	out := []*treatment.View{}
	if vis.Empty() {
		return out, nil
	}
	if err := r.viewQuery(dbc, vis).
		Order("treatment.created_at DESC").
		Order("treatment.id DESC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *treatmentRepo) GetVisible(dbc dbctx.Context, vis Visibility, id uint) (*treatment.View, error) {
	if vis.Empty() || id == 0 {
		return nil, nil
	}
	var rows []*treatment.View
	if err := r.viewQuery(dbc, vis).Where("treatment.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
