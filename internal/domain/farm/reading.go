package farm

import (
	"time"

	"gorm.io/datatypes"
)

// VegetationReading is one NDVI measurement for a field. Readings are
// append-only; the latest reading is the one with the greatest Date.
type VegetationReading struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FieldID    uint           `gorm:"column:field_id;not null;index:idx_reading_field_date,priority:1" json:"field_id"`
	Date       time.Time      `gorm:"column:date;not null;index:idx_reading_field_date,priority:2" json:"date"`
	Value      float64        `gorm:"column:ndvi_value;not null" json:"ndvi_value"`
	ImageURL   *string        `gorm:"column:image_url" json:"image_url,omitempty"`
	Provenance datatypes.JSON `gorm:"column:ndvi_metadata" json:"ndvi_metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (VegetationReading) TableName() string { return "vegetation_reading" }
