package ndvi

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
)

// ErrUnavailable is the only error a Source returns. The concrete cause is
// logged by the adapter and never reaches callers of Acquire.
var ErrUnavailable = errors.New("ndvi source unavailable")

// Source is one upstream provider of vegetation observations.
type Source interface {
	Name() string
	Query(ctx context.Context, in QueryInput) (Observation, error)
}

type QueryInput struct {
	FieldID uint
	Lat     float64
	Lon     float64
	Bound   orb.Bound
	AsOf    time.Time
}

type ObservationKind string

const (
	// ObservationBands carries decoded red/NIR reflectance.
	ObservationBands ObservationKind = "bands"
	// ObservationIndex carries an NDVI value computed upstream.
	ObservationIndex ObservationKind = "index"
	// ObservationScene references a scene whose pixels were not decoded.
	ObservationScene ObservationKind = "scene"
)

type Observation struct {
	Kind ObservationKind

	Red, NIR float64
	Index    float64
	Scene    Scene
}

// Scene describes the upstream product an observation came from. Fields are
// zero when the provider does not report them.
type Scene struct {
	ID         string
	Collection string
	AcquiredAt time.Time
	CloudCover *float64
	// Assets maps band names (or "product") to download URLs.
	Assets map[string]string
}

// BandDecoder turns a scene reference into mean red/NIR reflectance over
// the query bound.
type BandDecoder interface {
	Decode(ctx context.Context, scene Scene, in QueryInput) (red, nir float64, err error)
}

// DefaultBound is the query box used when a field has no polygon.
func DefaultBound(lat, lon float64) orb.Bound {
	const pad = 0.01
	return orb.Bound{
		Min: orb.Point{lon - pad, lat - pad},
		Max: orb.Point{lon + pad, lat + pad},
	}
}
