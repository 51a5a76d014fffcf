package ndvi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
)

var asOf = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testField() farm.Field {
	return farm.Field{ID: 7, Latitude: 10, Longitude: 20, Name: "north"}
}

func newTestPipeline(deps PipelineDeps) *Pipeline {
	if deps.Config.SourceTimeout == 0 {
		deps.Config.SourceTimeout = 200 * time.Millisecond
	}
	return NewPipeline(deps)
}

func decodeProvenance(t *testing.T, r Reading) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Provenance, &m); err != nil {
		t.Fatalf("provenance: %v", err)
	}
	return m
}

func TestAcquireMockWhenNoSources(t *testing.T) {
	p := newTestPipeline(PipelineDeps{})
	r := p.Acquire(context.Background(), testField(), &asOf)
	if r.Source != SourceMock || r.Kind != KindMock || r.IsRealData {
		t.Fatalf("expected mock reading, got %+v", r)
	}
	if r.Value < 0.2 || r.Value > 0.9 {
		t.Fatalf("mock value out of range: %v", r.Value)
	}
	if !r.Date.Equal(asOf) || r.FieldID != 7 {
		t.Fatalf("reading identity: %+v", r)
	}
	m := decodeProvenance(t, r)
	if m["source"] != "mock" || m["is_real_data"] != false || m["sentinel_source"] != "none" {
		t.Fatalf("provenance: %v", m)
	}
	coords := m["coordinates"].(map[string]any)
	if coords["lat"] != 10.0 || coords["lon"] != 20.0 || m["field_id"] != 7.0 {
		t.Fatalf("provenance coordinates: %v", m)
	}
}

func TestAcquireFallsThroughInOrder(t *testing.T) {
	first := &fakeSource{name: "first", err: ErrUnavailable}
	second := &fakeSource{name: "second", obs: Observation{Kind: ObservationBands, Red: 0.1, NIR: 0.5}}
	third := &fakeSource{name: "third", obs: Observation{Kind: ObservationIndex, Index: 0.9}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{first, second, third}})

	r := p.Acquire(context.Background(), testField(), &asOf)
	if r.Source != "second" || r.Kind != KindMeasured || !r.IsRealData {
		t.Fatalf("reading=%+v", r)
	}
	if math.Abs(r.Value-0.4/0.6) > 1e-9 {
		t.Fatalf("value=%v", r.Value)
	}
	if first.Calls() != 1 || second.Calls() != 1 || third.Calls() != 0 {
		t.Fatalf("calls first=%d second=%d third=%d", first.Calls(), second.Calls(), third.Calls())
	}
}

func TestAcquireTimeoutMovesToNextSource(t *testing.T) {
	slow := &fakeSource{name: "slow", delay: 2 * time.Second, ignoreCtx: true, obs: Observation{Kind: ObservationIndex, Index: 0.1}}
	fast := &fakeSource{name: "fast", obs: Observation{Kind: ObservationIndex, Index: 0.7}}
	p := newTestPipeline(PipelineDeps{
		Sources: []Source{slow, fast},
		Config:  Config{SourceTimeout: 50 * time.Millisecond},
	})

	start := time.Now()
	r := p.Acquire(context.Background(), testField(), &asOf)
	if time.Since(start) > time.Second {
		t.Fatalf("acquire waited for a timed out source")
	}
	if r.Source != "fast" || r.Value != 0.7 {
		t.Fatalf("reading=%+v", r)
	}
}

func TestAcquireNonSentinelErrorIsUnavailable(t *testing.T) {
	broken := &fakeSource{name: "broken", err: errors.New("boom")}
	p := newTestPipeline(PipelineDeps{Sources: []Source{broken}})
	if r := p.Acquire(context.Background(), testField(), &asOf); r.Source != SourceMock {
		t.Fatalf("reading=%+v", r)
	}
}

func TestAcquireIndexIsClipped(t *testing.T) {
	src := &fakeSource{name: "sh", obs: Observation{Kind: ObservationIndex, Index: 1.7}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}})
	if r := p.Acquire(context.Background(), testField(), &asOf); r.Value != 1 {
		t.Fatalf("value=%v", r.Value)
	}
}

func TestAcquireNaNIndexSkipsSource(t *testing.T) {
	nan := &fakeSource{name: "nan", obs: Observation{Kind: ObservationIndex, Index: math.NaN()}}
	next := &fakeSource{name: "next", obs: Observation{Kind: ObservationIndex, Index: 0.3}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{nan, next}})
	if r := p.Acquire(context.Background(), testField(), &asOf); r.Source != "next" {
		t.Fatalf("reading=%+v", r)
	}
}

func TestAcquireSceneWithoutDecoderIsEstimated(t *testing.T) {
	scene := Scene{ID: "S2A_X", CloudCover: cc(12), Assets: map[string]string{"red": "r", "nir": "n"}}
	src := &fakeSource{name: SourcePlanetaryComputer, obs: Observation{Kind: ObservationScene, Scene: scene}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}})

	r := p.Acquire(context.Background(), testField(), &asOf)
	if r.Source != "planetary_computer_estimated" || r.Kind != KindEstimated || !r.IsRealData {
		t.Fatalf("reading=%+v", r)
	}
	if r.Value != Estimate(10, 20, asOf) {
		t.Fatalf("value=%v", r.Value)
	}
	m := decodeProvenance(t, r)
	if m["scene_id"] != "S2A_X" || m["cloud_cover"] != 12.0 || m["sentinel_source"] != SourcePlanetaryComputer || m["kind"] != "estimated" {
		t.Fatalf("provenance=%v", m)
	}
}

func TestAcquireSceneUsesDecoder(t *testing.T) {
	src := &fakeSource{name: SourceEarthSearch, obs: Observation{Kind: ObservationScene, Scene: Scene{ID: "s"}}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}, Decoder: fakeDecoder{red: 0.2, nir: 0.6}})
	r := p.Acquire(context.Background(), testField(), &asOf)
	if r.Source != SourceEarthSearch || r.Kind != KindMeasured || math.Abs(r.Value-0.5) > 1e-9 {
		t.Fatalf("reading=%+v", r)
	}

	p = newTestPipeline(PipelineDeps{Sources: []Source{src}, Decoder: fakeDecoder{err: errors.New("cog read")}})
	if r := p.Acquire(context.Background(), testField(), &asOf); r.Kind != KindEstimated {
		t.Fatalf("decoder failure should estimate, got %+v", r)
	}
}

func TestAcquireDefaultsAsOf(t *testing.T) {
	p := newTestPipeline(PipelineDeps{})
	p.now = func() time.Time { return time.Date(2024, 6, 8, 9, 0, 0, 0, time.FixedZone("x", 3600)) }
	r := p.Acquire(context.Background(), testField(), nil)
	want := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	if !r.Date.Equal(want) || r.Date.Location() != time.UTC {
		t.Fatalf("date=%v want %v", r.Date, want)
	}
}

func TestAcquireUsesPolygonBound(t *testing.T) {
	var got QueryInput
	src := &recordingSource{onQuery: func(in QueryInput) { got = in }}
	f := testField()
	f.PolygonCoordinates = `{"type":"Polygon","coordinates":[[[19.5,9.5],[20.5,9.5],[20.5,10.5],[19.5,10.5],[19.5,9.5]]]}`
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}})
	p.Acquire(context.Background(), f, &asOf)
	if got.Bound.Min.Lon() != 19.5 || got.Bound.Max.Lat() != 10.5 {
		t.Fatalf("bound=%+v", got.Bound)
	}

	p.Acquire(context.Background(), testField(), &asOf)
	if math.Abs(got.Bound.Min.Lon()-19.99) > 1e-9 || math.Abs(got.Bound.Max.Lat()-10.01) > 1e-9 {
		t.Fatalf("default bound=%+v", got.Bound)
	}
}

type recordingSource struct {
	onQuery func(QueryInput)
}

func (r *recordingSource) Name() string { return "recording" }

func (r *recordingSource) Query(ctx context.Context, in QueryInput) (Observation, error) {
	r.onQuery(in)
	return Observation{}, ErrUnavailable
}

func TestAcquireCache(t *testing.T) {
	src := &fakeSource{name: "sh", obs: Observation{Kind: ObservationIndex, Index: 0.55}}
	cache := newMemCache()
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}, Cache: cache})

	r1 := p.Acquire(context.Background(), testField(), &asOf)
	r2 := p.Acquire(context.Background(), testField(), &asOf)
	if src.Calls() != 1 {
		t.Fatalf("source called %d times", src.Calls())
	}
	if r2.Value != r1.Value || r2.Source != r1.Source || string(r2.Provenance) != string(r1.Provenance) {
		t.Fatalf("cached reading differs: %+v vs %+v", r2, r1)
	}

	later := asOf.AddDate(0, 0, 1)
	p.Acquire(context.Background(), testField(), &later)
	if src.Calls() != 2 {
		t.Fatalf("different day should miss the cache")
	}
}

func TestAcquireSharedCallSurvivesCallerCancel(t *testing.T) {
	src := &fakeSource{name: "sh", delay: 100 * time.Millisecond, obs: Observation{Kind: ObservationIndex, Index: 0.55}}
	cache := newMemCache()
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}, Cache: cache})

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan Reading, 1)
	go func() { first <- p.Acquire(firstCtx, testField(), &asOf) }()

	deadline := time.Now().Add(time.Second)
	for src.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("source never called")
		}
		time.Sleep(time.Millisecond)
	}
	second := make(chan Reading, 1)
	go func() { second <- p.Acquire(context.Background(), testField(), &asOf) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case r := <-first:
		if r.Source != SourceMock {
			t.Fatalf("cancelled caller got %+v", r)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatalf("cancelled caller kept waiting")
	}

	r := <-second
	if r.Source != "sh" || r.Kind != KindMeasured || !r.IsRealData {
		t.Fatalf("live caller got %+v", r)
	}
	if src.Calls() != 1 {
		t.Fatalf("source called %d times", src.Calls())
	}
	if cache.sets != 1 {
		t.Fatalf("shared reading not cached: sets=%d", cache.sets)
	}
}

func TestAcquireDoesNotCacheMock(t *testing.T) {
	cache := newMemCache()
	p := newTestPipeline(PipelineDeps{Cache: cache})
	p.Acquire(context.Background(), testField(), &asOf)
	if cache.sets != 0 {
		t.Fatalf("mock reading was cached")
	}
}

func TestAcquireIgnoresCacheErrors(t *testing.T) {
	src := &fakeSource{name: "sh", obs: Observation{Kind: ObservationIndex, Index: 0.55}}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}, Cache: cache})
	if r := p.Acquire(context.Background(), testField(), &asOf); r.Source != "sh" {
		t.Fatalf("reading=%+v", r)
	}
}

func TestAcquireBatchKeepsOrder(t *testing.T) {
	src := &fakeSource{name: "sh", delay: 10 * time.Millisecond, obs: Observation{Kind: ObservationIndex, Index: 0.6}}
	p := newTestPipeline(PipelineDeps{Sources: []Source{src}, Config: Config{BatchConcurrency: 2}})
	fields := []farm.Field{
		{ID: 1, Latitude: 1, Longitude: 1},
		{ID: 2, Latitude: 2, Longitude: 2},
		{ID: 3, Latitude: 3, Longitude: 3},
	}
	out := p.AcquireBatch(context.Background(), fields, &asOf)
	if len(out) != 3 {
		t.Fatalf("len=%d", len(out))
	}
	for i, r := range out {
		if r.FieldID != fields[i].ID || r.Source != "sh" {
			t.Fatalf("out[%d]=%+v", i, r)
		}
	}
}

func TestVegetationReadingConversion(t *testing.T) {
	p := newTestPipeline(PipelineDeps{})
	r := p.Acquire(context.Background(), testField(), &asOf)
	row := r.VegetationReading()
	if row.FieldID != 7 || row.Value != r.Value || !row.Date.Equal(asOf) || len(row.Provenance) == 0 {
		t.Fatalf("row=%+v", row)
	}
}
