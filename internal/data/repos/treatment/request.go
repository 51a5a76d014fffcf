package treatment

import (
	"errors"
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type RequestRepo interface {
	Create(dbc dbctx.Context, row *treatment.Request) error
	// GetByID loads the request with its field; nil, nil when missing.
	GetByID(dbc dbctx.Context, id uint) (*treatment.Request, error)
	ListVisible(dbc dbctx.Context, vis Visibility) ([]*treatment.Request, error)
	GetVisible(dbc dbctx.Context, vis Visibility, id uint) (*treatment.Request, error)
	// DeleteIfStatus removes the request only while it is in one of statuses.
	DeleteIfStatus(dbc dbctx.Context, id uint, statuses []treatment.RequestStatus) (bool, error)
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (r *requestRepo) Create(dbc dbctx.Context, row *treatment.Request) error {
	if row == nil || row.AgronomistID == 0 || row.FieldID == 0 {
		return fmt.Errorf("invalid treatment request")
	}
	if row.Status == "" {
		row.Status = treatment.RequestPending
	}
	return dbc.DB(r.db).Omit("Field").Create(row).Error
}

func (r *requestRepo) GetByID(dbc dbctx.Context, id uint) (*treatment.Request, error) {
	if id == 0 {
		return nil, nil
	}
	var out treatment.Request
	err := dbc.DB(r.db).Preload("Field").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) visibleQuery(dbc dbctx.Context, vis Visibility) *gorm.DB {
	q := dbc.DB(r.db).
		Model(&treatment.Request{}).
		Select("treatment_request.*").
		Joins("JOIN field ON field.id = treatment_request.field_id")
	return vis.apply(q)
}

// ListVisible returns requests newest first.
func (r *requestRepo) ListVisible(dbc dbctx.Context, vis Visibility) ([]*treatment.Request, error) {
	out := []*treatment.Request{}
	if vis.Empty() {
		return out, nil
	}
	if err := r.visibleQuery(dbc, vis).
		Order("treatment_request.created_at DESC").
		Order("treatment_request.id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) GetVisible(dbc dbctx.Context, vis Visibility, id uint) (*treatment.Request, error) {
	if vis.Empty() || id == 0 {
		return nil, nil
	}
	var out treatment.Request
	err := r.visibleQuery(dbc, vis).Where("treatment_request.id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) DeleteIfStatus(dbc dbctx.Context, id uint, statuses []treatment.RequestStatus) (bool, error) {
	if id == 0 || len(statuses) == 0 {
		return false, nil
	}
	res := dbc.DB(r.db).Where("id = ? AND status IN ?", id, statuses).Delete(&treatment.Request{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
