package ndvi

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
)

type Kind string

const (
	KindMeasured  Kind = "measured"
	KindEstimated Kind = "estimated"
	KindMock      Kind = "mock"
)

const SourceMock = "mock"

// Reading is the outcome of one acquisition. It is always populated.
type Reading struct {
	FieldID    uint           `json:"field_id"`
	Date       time.Time      `json:"date"`
	Value      float64        `json:"ndvi_value"`
	Source     string         `json:"source"`
	Kind       Kind           `json:"kind"`
	IsRealData bool           `json:"is_real_data"`
	Provenance datatypes.JSON `json:"ndvi_metadata"`
}

// VegetationReading converts r into the persisted history row.
func (r Reading) VegetationReading() *farm.VegetationReading {
	return &farm.VegetationReading{
		FieldID:    r.FieldID,
		Date:       r.Date,
		Value:      r.Value,
		Provenance: r.Provenance,
	}
}

type provenance struct {
	Source                string      `json:"source"`
	FieldID               uint        `json:"field_id"`
	Coordinates           coordinates `json:"coordinates"`
	IsRealData            bool        `json:"is_real_data"`
	SentinelDataAvailable bool        `json:"sentinel_data_available"`
	SentinelSource        string      `json:"sentinel_source"`
	Kind                  Kind        `json:"kind"`
	SceneID               string      `json:"scene_id,omitempty"`
	CloudCover            *float64    `json:"cloud_cover,omitempty"`
}

type coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// newReading assembles a Reading. adapter is "" when no source answered.
func newReading(in QueryInput, value float64, source string, kind Kind, adapter string, scene Scene) Reading {
	isReal := source != SourceMock
	sentinel := adapter
	if sentinel == "" {
		sentinel = "none"
	}
	raw, _ := json.Marshal(provenance{
		Source:                source,
		FieldID:               in.FieldID,
		Coordinates:           coordinates{Lat: in.Lat, Lon: in.Lon},
		IsRealData:            isReal,
		SentinelDataAvailable: isReal,
		SentinelSource:        sentinel,
		Kind:                  kind,
		SceneID:               scene.ID,
		CloudCover:            scene.CloudCover,
	})
	return Reading{
		FieldID:    in.FieldID,
		Date:       in.AsOf,
		Value:      value,
		Source:     source,
		Kind:       kind,
		IsRealData: isReal,
		Provenance: datatypes.JSON(raw),
	}
}
