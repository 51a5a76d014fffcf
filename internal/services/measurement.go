package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/data/repos"
	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/modules/ndvi"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const defaultHistoryLimit = 100

// Acquirer is the part of the NDVI pipeline the services depend on.
type Acquirer interface {
	Acquire(ctx context.Context, field farm.Field, asOf *time.Time) ndvi.Reading
	AcquireBatch(ctx context.Context, fields []farm.Field, asOf *time.Time) []ndvi.Reading
}

type MapEntry struct {
	FieldID            uint       `json:"field_id"`
	Name               string     `json:"name"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	AreaHectares       float64    `json:"area_hectares"`
	CropType           string     `json:"crop_type,omitempty"`
	PolygonCoordinates string     `json:"polygon_coordinates,omitempty"`
	LatestIndex        *float64   `json:"latest_ndvi"`
	IndexDate          *time.Time `json:"ndvi_date"`
	IsRealData         bool       `json:"is_real_data"`
	DataSource         string     `json:"data_source"`
}

type MeasurementResult struct {
	Reading *farm.VegetationReading `json:"reading"`
	Health  ndvi.Health             `json:"health"`
}

type MeasurementService interface {
	// Measure acquires a reading for the field and appends it to its history.
	Measure(ctx context.Context, fieldID uint, asOf *time.Time) (MeasurementResult, error)
	// MeasureMany measures several fields concurrently; unknown ids fail
	// the whole call before anything is acquired.
	MeasureMany(ctx context.Context, fieldIDs []uint, asOf *time.Time) ([]MeasurementResult, error)
	History(ctx context.Context, fieldID uint, limit int) ([]*farm.VegetationReading, error)
	Map(ctx context.Context) ([]MapEntry, error)
	// CurrentIndex measures a loaded field and returns the persisted value.
	CurrentIndex(ctx context.Context, field farm.Field, asOf *time.Time) (float64, error)
}

type measurementService struct {
	log      *logger.Logger
	fields   repos.FieldRepo
	readings repos.ReadingRepo
	acquirer Acquirer
}

func NewMeasurementService(log *logger.Logger, fields repos.FieldRepo, readings repos.ReadingRepo, acquirer Acquirer) MeasurementService {
	return &measurementService{
		log:      log.With("service", "MeasurementService"),
		fields:   fields,
		readings: readings,
		acquirer: acquirer,
	}
}

func (s *measurementService) loadField(ctx context.Context, op string, fieldID uint) (*farm.Field, error) {
	field, err := s.fields.GetByID(dbctx.Context{Ctx: ctx}, fieldID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load field", err)
	}
	if field == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("field %d not found", fieldID), nil)
	}
	return field, nil
}

func (s *measurementService) persist(ctx context.Context, op string, r ndvi.Reading) (*farm.VegetationReading, error) {
	row := r.VegetationReading()
	if err := s.readings.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "save reading", err)
	}
	return row, nil
}

func (s *measurementService) Measure(ctx context.Context, fieldID uint, asOf *time.Time) (MeasurementResult, error) {
	const op = "Measurement.Measure"
	field, err := s.loadField(ctx, op, fieldID)
	if err != nil {
		return MeasurementResult{}, err
	}
	r := s.acquirer.Acquire(ctx, *field, asOf)
	row, err := s.persist(ctx, op, r)
	if err != nil {
		return MeasurementResult{}, err
	}
	return MeasurementResult{Reading: row, Health: ndvi.AssessHealth(row.Value, ndvi.DefaultHealthThreshold)}, nil
}

func (s *measurementService) MeasureMany(ctx context.Context, fieldIDs []uint, asOf *time.Time) ([]MeasurementResult, error) {
	const op = "Measurement.MeasureMany"
	if len(fieldIDs) == 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "field_ids is required", nil)
	}
	fields := make([]farm.Field, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		f, err := s.loadField(ctx, op, id)
		if err != nil {
			return nil, err
		}
		fields = append(fields, *f)
	}

	readings := s.acquirer.AcquireBatch(ctx, fields, asOf)
	out := make([]MeasurementResult, 0, len(readings))
	for _, r := range readings {
		row, err := s.persist(ctx, op, r)
		if err != nil {
			return nil, err
		}
		out = append(out, MeasurementResult{Reading: row, Health: ndvi.AssessHealth(row.Value, ndvi.DefaultHealthThreshold)})
	}
	s.log.Info("batch measurement", "fields", len(fields))
	return out, nil
}

func (s *measurementService) CurrentIndex(ctx context.Context, field farm.Field, asOf *time.Time) (float64, error) {
	row, err := s.persist(ctx, "Measurement.CurrentIndex", s.acquirer.Acquire(ctx, field, asOf))
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

func (s *measurementService) History(ctx context.Context, fieldID uint, limit int) ([]*farm.VegetationReading, error) {
	const op = "Measurement.History"
	if _, err := s.loadField(ctx, op, fieldID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.readings.ListByField(dbctx.Context{Ctx: ctx}, fieldID, limit)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "list readings", err)
	}
	return rows, nil
}

type provenanceFlags struct {
	Source                string `json:"source"`
	IsRealData            bool   `json:"is_real_data"`
	SentinelDataAvailable bool   `json:"sentinel_data_available"`
}

func (s *measurementService) Map(ctx context.Context) ([]MapEntry, error) {
	const op = "Measurement.Map"
	dbc := dbctx.Context{Ctx: ctx}
	fields, err := s.fields.ListAll(dbc)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "list fields", err)
	}
	ids := make([]uint, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	latest, err := s.readings.LatestForFields(dbc, ids)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "latest readings", err)
	}

	out := make([]MapEntry, 0, len(fields))
	for _, f := range fields {
		e := MapEntry{
			FieldID:            f.ID,
			Name:               f.Name,
			Latitude:           f.Latitude,
			Longitude:          f.Longitude,
			AreaHectares:       f.AreaHectares,
			CropType:           f.CropType,
			PolygonCoordinates: f.PolygonCoordinates,
			DataSource:         "unknown",
		}
		if r := latest[f.ID]; r != nil {
			v, d := r.Value, r.Date
			e.LatestIndex, e.IndexDate = &v, &d
			var flags provenanceFlags
			if len(r.Provenance) > 0 && json.Unmarshal(r.Provenance, &flags) == nil {
				e.IsRealData = flags.IsRealData || flags.SentinelDataAvailable
				if flags.Source != "" {
					e.DataSource = flags.Source
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}
