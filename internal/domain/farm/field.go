package farm

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Field struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	FarmerID     uint    `gorm:"column:farmer_id;not null;index" json:"farmer_id"`
	Name         string  `gorm:"column:name;not null" json:"name"`
	AreaHectares float64 `gorm:"column:area_hectares;not null" json:"area_hectares"`
	CropType     string  `gorm:"column:crop_type" json:"crop_type,omitempty"`
	Latitude     float64 `gorm:"column:latitude;not null" json:"latitude"`
	Longitude    float64 `gorm:"column:longitude;not null" json:"longitude"`
	// GeoJSON geometry (Polygon or MultiPolygon), optional.
	PolygonCoordinates string    `gorm:"column:polygon_coordinates;type:text" json:"polygon_coordinates,omitempty"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Field) TableName() string { return "field" }

// Point is the field's reference coordinate as an orb point (lon, lat).
func (f Field) Point() orb.Point {
	return orb.Point{f.Longitude, f.Latitude}
}

// Geometry parses PolygonCoordinates. It returns nil when the field has no
// polygon or the stored text is not a polygonal GeoJSON geometry.
func (f Field) Geometry() orb.Geometry {
	raw := strings.TrimSpace(f.PolygonCoordinates)
	if raw == "" {
		return nil
	}
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil || g == nil {
		return nil
	}
	switch geom := g.Geometry().(type) {
	case orb.Polygon, orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}
