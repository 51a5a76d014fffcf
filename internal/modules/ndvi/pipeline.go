package ndvi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
	"github.com/fieldcare/fieldcare-backend/internal/observability"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// Cache stores serialized readings. The redis client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Config struct {
	// SourceTimeout bounds each adapter call.
	SourceTimeout time.Duration
	// DefaultLag is subtracted from now when no asOf is given.
	DefaultLag       time.Duration
	CacheTTL         time.Duration
	BatchConcurrency int
}

func (c Config) withDefaults() Config {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 20 * time.Second
	}
	if c.DefaultLag <= 0 {
		c.DefaultLag = 7 * 24 * time.Hour
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 6 * time.Hour
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	return c
}

type PipelineDeps struct {
	Log     *logger.Logger
	Sources []Source
	// Decoder is optional; without it scene references become estimates.
	Decoder BandDecoder
	// Cache is optional.
	Cache   Cache
	Metrics *observability.Metrics
	Config  Config
}

// Pipeline acquires NDVI readings by trying Sources in order.
type Pipeline struct {
	log     *logger.Logger
	sources []Source
	decoder BandDecoder
	cache   Cache
	metrics *observability.Metrics
	cfg     Config
	tracer  trace.Tracer
	group   singleflight.Group
	now     func() time.Time
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		log:     log.With("module", "NDVIPipeline"),
		sources: deps.Sources,
		decoder: deps.Decoder,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		cfg:     deps.Config.withDefaults(),
		tracer:  observability.Tracer(),
		now:     time.Now,
	}
}

// SourceNames returns the adapter order.
func (p *Pipeline) SourceNames() []string {
	out := make([]string, 0, len(p.sources))
	for _, s := range p.sources {
		out = append(out, s.Name())
	}
	return out
}

func (p *Pipeline) resolveAsOf(asOf *time.Time) time.Time {
	if asOf == nil || asOf.IsZero() {
		return p.now().UTC().Add(-p.cfg.DefaultLag)
	}
	return asOf.UTC()
}

func queryInput(field farm.Field, at time.Time) QueryInput {
	in := QueryInput{
		FieldID: field.ID,
		Lat:     field.Latitude,
		Lon:     field.Longitude,
		AsOf:    at,
	}
	if g := field.Geometry(); g != nil {
		in.Bound = g.Bound()
	} else {
		in.Bound = DefaultBound(field.Latitude, field.Longitude)
	}
	return in
}

func cacheKey(in QueryInput) string {
	return fmt.Sprintf("ndvi:%d:%s_%s:%s",
		in.FieldID,
		strconv.FormatFloat(in.Lat, 'f', -1, 64),
		strconv.FormatFloat(in.Lon, 'f', -1, 64),
		in.AsOf.Format("2006-01-02"),
	)
}

// Acquire returns a reading for field at asOf (default now minus
// DefaultLag). It never fails: when no source answers the reading is a
// deterministic mock.
func (p *Pipeline) Acquire(ctx context.Context, field farm.Field, asOf *time.Time) Reading {
	start := p.now()
	in := queryInput(field, p.resolveAsOf(asOf))

	ctx, span := p.tracer.Start(ctx, "ndvi.acquire", trace.WithAttributes(
		attribute.Int64("field.id", int64(field.ID)),
		attribute.String("ndvi.as_of", in.AsOf.Format(time.RFC3339)),
	))
	defer span.End()

	key := cacheKey(in)
	if r, ok := p.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("ndvi.cache_hit", true), attribute.String("ndvi.source", r.Source))
		return r
	}

	// The shared call outlives any single caller; each source call stays
	// bounded by SourceTimeout.
	detached := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		r := p.acquire(detached, in)
		p.store(detached, key, r)
		p.metrics.ObserveAcquisition(r.Source, string(r.Kind), p.now().Sub(start))
		p.log.Info("ndvi acquired", "field_id", field.ID, "source", r.Source, "kind", r.Kind, "value", r.Value)
		return r, nil
	})

	var r Reading
	select {
	case res := <-ch:
		r = res.Val.(Reading)
	case <-ctx.Done():
		span.SetStatus(codes.Error, "caller cancelled")
		r = mockReading(in)
	}
	span.SetAttributes(attribute.String("ndvi.source", r.Source), attribute.String("ndvi.kind", string(r.Kind)))
	return r
}

// AcquireBatch acquires readings for fields concurrently. Results keep the
// order of fields.
func (p *Pipeline) AcquireBatch(ctx context.Context, fields []farm.Field, asOf *time.Time) []Reading {
	out := make([]Reading, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchConcurrency)
	for i := range fields {
		i := i
		g.Go(func() error {
			out[i] = p.Acquire(gctx, fields[i], asOf)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) acquire(ctx context.Context, in QueryInput) Reading {
	for _, src := range p.sources {
		obs, err := p.query(ctx, src, in)
		if err != nil {
			continue
		}
		if r, ok := p.resolve(ctx, src.Name(), obs, in); ok {
			return r
		}
	}
	return mockReading(in)
}

func mockReading(in QueryInput) Reading {
	return newReading(in, Mock(in.Lat, in.Lon, in.AsOf), SourceMock, KindMock, "", Scene{})
}

// query calls src under SourceTimeout. A source that ignores cancellation
// is abandoned once the deadline passes.
func (p *Pipeline) query(ctx context.Context, src Source, in QueryInput) (Observation, error) {
	start := p.now()
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.SourceTimeout)
	defer cancel()
	callCtx, span := p.tracer.Start(callCtx, "ndvi.source", trace.WithAttributes(attribute.String("ndvi.source", src.Name())))
	defer span.End()

	type result struct {
		obs Observation
		err error
	}
	done := make(chan result, 1)
	go func() {
		obs, err := src.Query(callCtx, in)
		done <- result{obs, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = result{err: callCtx.Err()}
	}

	outcome := "ok"
	switch {
	case res.err == nil:
	case errors.Is(res.err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "unavailable"
	}
	p.metrics.ObserveSourceCall(src.Name(), outcome, p.now().Sub(start))
	if res.err != nil {
		span.SetStatus(codes.Error, outcome)
		p.log.Debug("ndvi source skipped", "source", src.Name(), "field_id", in.FieldID, "outcome", outcome)
		return Observation{}, ErrUnavailable
	}
	return res.obs, nil
}

// resolve turns an observation into a reading. It reports false when the
// observation carries no usable value.
func (p *Pipeline) resolve(ctx context.Context, name string, obs Observation, in QueryInput) (Reading, bool) {
	switch obs.Kind {
	case ObservationBands:
		if math.IsNaN(obs.Red) || math.IsNaN(obs.NIR) {
			return Reading{}, false
		}
		return newReading(in, FromBands(obs.Red, obs.NIR), name, KindMeasured, name, obs.Scene), true
	case ObservationIndex:
		if math.IsNaN(obs.Index) || math.IsInf(obs.Index, 0) {
			return Reading{}, false
		}
		return newReading(in, Clip(obs.Index, -1, 1), name, KindMeasured, name, obs.Scene), true
	case ObservationScene:
		if p.decoder != nil {
			red, nir, err := p.decoder.Decode(ctx, obs.Scene, in)
			if err == nil && !math.IsNaN(red) && !math.IsNaN(nir) {
				return newReading(in, FromBands(red, nir), name, KindMeasured, name, obs.Scene), true
			}
			p.log.Warn("band decode failed, estimating", "source", name, "scene_id", obs.Scene.ID, "error", err)
		}
		return newReading(in, Estimate(in.Lat, in.Lon, in.AsOf), name+"_estimated", KindEstimated, name, obs.Scene), true
	}
	return Reading{}, false
}

func (p *Pipeline) cached(ctx context.Context, key string) (Reading, bool) {
	if p.cache == nil {
		return Reading{}, false
	}
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.metrics.IncCacheLookup("error")
		p.log.Warn("ndvi cache get failed", "key", key, "error", err)
		return Reading{}, false
	}
	if !ok {
		p.metrics.IncCacheLookup("miss")
		return Reading{}, false
	}
	var r Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		p.metrics.IncCacheLookup("error")
		p.log.Warn("ndvi cache entry unreadable", "key", key, "error", err)
		return Reading{}, false
	}
	p.metrics.IncCacheLookup("hit")
	return r, true
}

// store caches real readings only; mocks are retried on the next call.
func (p *Pipeline) store(ctx context.Context, key string, r Reading) {
	if p.cache == nil || !r.IsRealData {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.cfg.CacheTTL); err != nil {
		p.log.Warn("ndvi cache set failed", "key", key, "error", err)
	}
}
