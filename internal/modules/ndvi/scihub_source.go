package ndvi

import (
	"context"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/clients/scihub"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// SciHubSource queries Copernicus OpenSearch. Products are whole SAFE
// archives, so it only ever yields a scene reference.
type SciHubSource struct {
	client scihub.Client
	log    *logger.Logger
	window time.Duration
}

func NewSciHubSource(log *logger.Logger, client scihub.Client) *SciHubSource {
	if log == nil {
		log = logger.Nop()
	}
	return &SciHubSource{client: client, log: log.With("source", SourceSciHub), window: 5 * 24 * time.Hour}
}

func (s *SciHubSource) Name() string { return SourceSciHub }

func (s *SciHubSource) Query(ctx context.Context, in QueryInput) (Observation, error) {
	for _, ceiling := range []float64{StrictCloudCeiling, RelaxedCloudCeiling} {
		products, err := s.client.Search(ctx, scihub.SearchRequest{
			Bound:    in.Bound,
			From:     in.AsOf.Add(-s.window),
			To:       in.AsOf.Add(s.window),
			MaxCloud: ceiling,
		})
		if err != nil {
			s.log.Warn("scihub search failed", "field_id", in.FieldID, "error", err)
			return Observation{}, ErrUnavailable
		}
		scenes := make([]Scene, 0, len(products))
		for _, p := range products {
			if p.Href == "" {
				continue
			}
			cc := p.CloudCover
			scenes = append(scenes, Scene{
				ID:         p.ID,
				Collection: "S2MSI2A",
				AcquiredAt: p.Begin,
				CloudCover: &cc,
				Assets:     map[string]string{"product": p.Href},
			})
		}
		if scene, ok := selectScene(scenes, ceiling, in.AsOf); ok {
			return Observation{Kind: ObservationScene, Scene: scene}, nil
		}
	}
	return Observation{}, ErrUnavailable
}
