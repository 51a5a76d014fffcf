package ndvi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/clients/scihub"
	"github.com/fieldcare/fieldcare-backend/internal/clients/sentinelhub"
	"github.com/fieldcare/fieldcare-backend/internal/clients/stac"
)

type fakeSTAC struct {
	byCeiling map[float64][]stac.Item
	err       error
	signErr   error
	searches  []stac.SearchRequest
}

func (f *fakeSTAC) Search(ctx context.Context, req stac.SearchRequest) ([]stac.Item, error) {
	f.searches = append(f.searches, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.byCeiling[req.MaxCloud], nil
}

func (f *fakeSTAC) Sign(ctx context.Context, collection, href string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return href + "?sig", nil
}

func item(id string, cloud float64, when time.Time, assets ...string) stac.Item {
	it := stac.Item{ID: id, Collection: "sentinel-2-l2a", Assets: map[string]stac.Asset{}}
	it.Properties.Datetime = when
	it.Properties.CloudCover = &cloud
	for _, a := range assets {
		it.Assets[a] = stac.Asset{Href: "https://blob/" + id + "/" + a}
	}
	return it
}

func queryIn() QueryInput {
	return QueryInput{FieldID: 1, Lat: 10, Lon: 20, Bound: DefaultBound(10, 20), AsOf: asOf}
}

func TestSTACSourceStrictThenRelaxed(t *testing.T) {
	fake := &fakeSTAC{byCeiling: map[float64][]stac.Item{
		RelaxedCloudCeiling: {
			item("hazy", 42, asOf, "B04", "B08"),
			item("hazier", 48, asOf, "B04", "B08"),
		},
	}}
	src := NewPlanetaryComputerSource(nil, fake)
	obs, err := src.Query(context.Background(), queryIn())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(fake.searches) != 2 || fake.searches[0].MaxCloud != 30 || fake.searches[1].MaxCloud != 50 {
		t.Fatalf("searches=%+v", fake.searches)
	}
	if obs.Kind != ObservationScene || obs.Scene.ID != "hazy" {
		t.Fatalf("obs=%+v", obs)
	}
	if obs.Scene.Assets["red"] != "https://blob/hazy/B04?sig" || obs.Scene.Assets["nir"] != "https://blob/hazy/B08?sig" {
		t.Fatalf("assets=%v", obs.Scene.Assets)
	}
	s := fake.searches[0]
	if !s.From.Equal(asOf.AddDate(0, 0, -30)) || !s.To.Equal(asOf.AddDate(0, 0, 5)) {
		t.Fatalf("window %v..%v", s.From, s.To)
	}
}

func TestSTACSourceBandKeys(t *testing.T) {
	fake := &fakeSTAC{byCeiling: map[float64][]stac.Item{
		StrictCloudCeiling: {
			item("pc-keys", 5, asOf, "B04", "B08"),
			item("es-keys", 9, asOf, "red", "nir"),
		},
	}}
	obs, err := NewEarthSearchSource(nil, fake).Query(context.Background(), queryIn())
	if err != nil || obs.Scene.ID != "pc-keys" {
		t.Fatalf("earth search accepts both key sets: obs=%+v err=%v", obs, err)
	}
	fake.searches = nil
	fake.byCeiling[StrictCloudCeiling] = []stac.Item{item("es-keys", 9, asOf, "red", "nir")}
	if _, err := NewPlanetaryComputerSource(nil, fake).Query(context.Background(), queryIn()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("planetary computer needs B04/B08, err=%v", err)
	}
}

func TestSTACSourceErrorsAreUnavailable(t *testing.T) {
	src := NewPlanetaryComputerSource(nil, &fakeSTAC{err: errors.New("503")})
	if _, err := src.Query(context.Background(), queryIn()); err != ErrUnavailable {
		t.Fatalf("err=%v", err)
	}
	fake := &fakeSTAC{
		byCeiling: map[float64][]stac.Item{StrictCloudCeiling: {item("a", 1, asOf, "B04", "B08")}},
		signErr:   errors.New("sas"),
	}
	if _, err := NewPlanetaryComputerSource(nil, fake).Query(context.Background(), queryIn()); err != ErrUnavailable {
		t.Fatalf("sign failure err=%v", err)
	}
}

type fakeSciHub struct {
	products map[float64][]scihub.Product
	err      error
	reqs     []scihub.SearchRequest
}

func (f *fakeSciHub) Search(ctx context.Context, req scihub.SearchRequest) ([]scihub.Product, error) {
	f.reqs = append(f.reqs, req)
	return f.products[req.MaxCloud], f.err
}

func TestSciHubSource(t *testing.T) {
	fake := &fakeSciHub{products: map[float64][]scihub.Product{
		StrictCloudCeiling: {
			{ID: "nolink", CloudCover: 1},
			{ID: "p1", CloudCover: 20, Begin: asOf, Href: "https://hub/p1"},
		},
	}}
	obs, err := NewSciHubSource(nil, fake).Query(context.Background(), queryIn())
	if err != nil || obs.Kind != ObservationScene || obs.Scene.ID != "p1" || obs.Scene.Assets["product"] != "https://hub/p1" {
		t.Fatalf("obs=%+v err=%v", obs, err)
	}
	r := fake.reqs[0]
	if !r.From.Equal(asOf.AddDate(0, 0, -5)) || !r.To.Equal(asOf.AddDate(0, 0, 5)) {
		t.Fatalf("window %v..%v", r.From, r.To)
	}

	if _, err := NewSciHubSource(nil, &fakeSciHub{err: errors.New("401")}).Query(context.Background(), queryIn()); err != ErrUnavailable {
		t.Fatalf("err=%v", err)
	}
}

type fakeSentinelHub struct {
	stat     sentinelhub.Stat
	errAt    map[float64]error
	ceilings []float64
}

func (f *fakeSentinelHub) MeanNDVI(ctx context.Context, req sentinelhub.StatsRequest) (sentinelhub.Stat, error) {
	f.ceilings = append(f.ceilings, req.MaxCloud)
	if err := f.errAt[req.MaxCloud]; err != nil {
		return sentinelhub.Stat{}, err
	}
	return f.stat, nil
}

func TestSentinelHubSource(t *testing.T) {
	fake := &fakeSentinelHub{
		stat:  sentinelhub.Stat{Mean: 0.61, Interval: asOf},
		errAt: map[float64]error{StrictCloudCeiling: sentinelhub.ErrNoData},
	}
	obs, err := NewSentinelHubSource(nil, fake).Query(context.Background(), queryIn())
	if err != nil || obs.Kind != ObservationIndex || obs.Index != 0.61 {
		t.Fatalf("obs=%+v err=%v", obs, err)
	}
	fake.errAt[RelaxedCloudCeiling] = sentinelhub.ErrNoData
	if _, err := NewSentinelHubSource(nil, fake).Query(context.Background(), queryIn()); err != ErrUnavailable {
		t.Fatalf("err=%v", err)
	}
}

func TestSentinelHubSourceTransportErrorSkipsRelaxedQuery(t *testing.T) {
	fake := &fakeSentinelHub{
		stat:  sentinelhub.Stat{Mean: 0.61, Interval: asOf},
		errAt: map[float64]error{StrictCloudCeiling: errors.New("sentinelhub statistics: 401 unauthorized")},
	}
	if _, err := NewSentinelHubSource(nil, fake).Query(context.Background(), queryIn()); err != ErrUnavailable {
		t.Fatalf("err=%v", err)
	}
	if len(fake.ceilings) != 1 || fake.ceilings[0] != StrictCloudCeiling {
		t.Fatalf("queried ceilings %v", fake.ceilings)
	}
}

func TestParseSourceSpecs(t *testing.T) {
	specs, err := ParseSourceSpecs([]byte(`
sources:
  - name: Earth_Search
  - name: planetary_computer
    base_url: http://pc.local/stac
  - name: scihub
    disabled: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(specs) != 3 || specs[0].Name != SourceEarthSearch || specs[1].BaseURL != "http://pc.local/stac" || !specs[2].Disabled {
		t.Fatalf("specs=%+v", specs)
	}
	if _, err := ParseSourceSpecs([]byte("sources:\n  - name: scihub\n  - name: scihub\n")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := ParseSourceSpecs([]byte("sources: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestBuildSources(t *testing.T) {
	cfg := SourcesConfig{}
	for _, n := range DefaultSourceOrder {
		cfg.Sources = append(cfg.Sources, SourceSpec{Name: n})
	}
	sources, err := BuildSources(nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	if strings.Join(names, ",") != "planetary_computer,earth_search" {
		t.Fatalf("credential-less build=%v", names)
	}

	cfg.SciHubUsername, cfg.SciHubPassword = "u", "p"
	cfg.SentinelHubClientID, cfg.SentinelHubSecret = "id", "secret"
	sources, err = BuildSources(nil, cfg)
	if err != nil || len(sources) != 4 || sources[3].Name() != SourceSentinelHub {
		t.Fatalf("full build=%v err=%v", sources, err)
	}

	if _, err := BuildSources(nil, SourcesConfig{Sources: []SourceSpec{{Name: "landsat"}}}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestLoadSourcesConfigFromEnv(t *testing.T) {
	t.Setenv("NDVI_SOURCES_FILE", "")
	t.Setenv("NDVI_SOURCES", "Sentinel_Hub, earth_search")
	t.Setenv("SENTINELHUB_CLIENT_ID", "id")
	cfg, err := LoadSourcesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Name != SourceSentinelHub || cfg.SentinelHubClientID != "id" {
		t.Fatalf("cfg=%+v", cfg)
	}
}
