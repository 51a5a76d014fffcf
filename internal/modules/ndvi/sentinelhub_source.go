package ndvi

import (
	"context"
	"errors"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/clients/sentinelhub"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// SentinelHubSource reads a server-side mean NDVI, so it yields a direct
// index observation.
type SentinelHubSource struct {
	client sentinelhub.Client
	log    *logger.Logger
	before time.Duration
	after  time.Duration
}

func NewSentinelHubSource(log *logger.Logger, client sentinelhub.Client) *SentinelHubSource {
	if log == nil {
		log = logger.Nop()
	}
	return &SentinelHubSource{
		client: client,
		log:    log.With("source", SourceSentinelHub),
		before: 30 * 24 * time.Hour,
		after:  5 * 24 * time.Hour,
	}
}

func (s *SentinelHubSource) Name() string { return SourceSentinelHub }

func (s *SentinelHubSource) Query(ctx context.Context, in QueryInput) (Observation, error) {
	for _, ceiling := range []float64{StrictCloudCeiling, RelaxedCloudCeiling} {
		st, err := s.client.MeanNDVI(ctx, sentinelhub.StatsRequest{
			Bound:    in.Bound,
			From:     in.AsOf.Add(-s.before),
			To:       in.AsOf.Add(s.after),
			Near:     in.AsOf,
			MaxCloud: ceiling,
		})
		if errors.Is(err, sentinelhub.ErrNoData) {
			continue
		}
		if err != nil {
			s.log.Debug("sentinel hub statistics failed", "field_id", in.FieldID, "ceiling", ceiling, "error", err)
			return Observation{}, ErrUnavailable
		}
		return Observation{
			Kind:  ObservationIndex,
			Index: st.Mean,
			Scene: Scene{Collection: sentinel2Collection, AcquiredAt: st.Interval},
		}, nil
	}
	s.log.Warn("sentinel hub produced no statistics", "field_id", in.FieldID)
	return Observation{}, ErrUnavailable
}
