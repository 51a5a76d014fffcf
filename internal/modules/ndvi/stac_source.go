package ndvi

import (
	"context"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/clients/stac"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const (
	SourcePlanetaryComputer = "planetary_computer"
	SourceEarthSearch       = "earth_search"
	SourceSciHub            = "scihub"
	SourceSentinelHub       = "sentinel_hub"
)

const sentinel2Collection = "sentinel-2-l2a"

// STACSource searches a STAC catalog for Sentinel-2 L2A scenes. Planetary
// Computer and Earth Search differ only in name, URL and band asset keys.
type STACSource struct {
	name     string
	client   stac.Client
	log      *logger.Logger
	redKeys  []string
	nirKeys  []string
	before   time.Duration
	after    time.Duration
	pageSize int
}

func NewPlanetaryComputerSource(log *logger.Logger, client stac.Client) *STACSource {
	return newSTACSource(log, SourcePlanetaryComputer, client, []string{"B04"}, []string{"B08"})
}

func NewEarthSearchSource(log *logger.Logger, client stac.Client) *STACSource {
	return newSTACSource(log, SourceEarthSearch, client, []string{"red", "B04"}, []string{"nir", "B08"})
}

func newSTACSource(log *logger.Logger, name string, client stac.Client, red, nir []string) *STACSource {
	if log == nil {
		log = logger.Nop()
	}
	return &STACSource{
		name:     name,
		client:   client,
		log:      log.With("source", name),
		redKeys:  red,
		nirKeys:  nir,
		before:   30 * 24 * time.Hour,
		after:    5 * 24 * time.Hour,
		pageSize: 10,
	}
}

func (s *STACSource) Name() string { return s.name }

func (s *STACSource) Query(ctx context.Context, in QueryInput) (Observation, error) {
	for _, ceiling := range []float64{StrictCloudCeiling, RelaxedCloudCeiling} {
		items, err := s.client.Search(ctx, stac.SearchRequest{
			Collections: []string{sentinel2Collection},
			Bound:       in.Bound,
			From:        in.AsOf.Add(-s.before),
			To:          in.AsOf.Add(s.after),
			MaxCloud:    ceiling,
			Limit:       s.pageSize,
		})
		if err != nil {
			s.log.Warn("stac search failed", "field_id", in.FieldID, "error", err)
			return Observation{}, ErrUnavailable
		}
		scene, ok := selectScene(s.scenes(items), ceiling, in.AsOf)
		if !ok {
			s.log.Debug("no scene under cloud ceiling", "field_id", in.FieldID, "ceiling", ceiling, "candidates", len(items))
			continue
		}
		for band, href := range scene.Assets {
			signed, err := s.client.Sign(ctx, scene.Collection, href)
			if err != nil {
				s.log.Warn("asset signing failed", "scene_id", scene.ID, "band", band, "error", err)
				return Observation{}, ErrUnavailable
			}
			scene.Assets[band] = signed
		}
		return Observation{Kind: ObservationScene, Scene: scene}, nil
	}
	return Observation{}, ErrUnavailable
}

func (s *STACSource) scenes(items []stac.Item) []Scene {
	out := make([]Scene, 0, len(items))
	for _, it := range items {
		red, nir := it.AssetHref(s.redKeys...), it.AssetHref(s.nirKeys...)
		if red == "" || nir == "" {
			continue
		}
		collection := it.Collection
		if collection == "" {
			collection = sentinel2Collection
		}
		out = append(out, Scene{
			ID:         it.ID,
			Collection: collection,
			AcquiredAt: it.Properties.Datetime.UTC(),
			CloudCover: it.Properties.CloudCover,
			Assets:     map[string]string{"red": red, "nir": nir},
		})
	}
	return out
}
