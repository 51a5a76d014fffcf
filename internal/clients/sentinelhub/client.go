package sentinelhub

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fieldcare/fieldcare-backend/internal/platform/httpx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const (
	DefaultBaseURL  = "https://services.sentinel-hub.com"
	DefaultTokenURL = "https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"
)

// ErrNoData means the query succeeded but no interval had valid pixels.
var ErrNoData = errors.New("sentinelhub statistics: no valid interval")

const ndviEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{ bands: ["B04", "B08", "dataMask"] }],
    output: [{ id: "ndvi", bands: 1, sampleType: "FLOAT32" }, { id: "dataMask", bands: 1 }]
  };
}
function evaluatePixel(s) {
  return { ndvi: [index(s.B08, s.B04)], dataMask: [s.dataMask] };
}`

// Client reads aggregated NDVI statistics from the Sentinel Hub
// Statistical API.
type Client interface {
	MeanNDVI(ctx context.Context, req StatsRequest) (Stat, error)
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type StatsRequest struct {
	Bound    orb.Bound
	From, To time.Time
	// Near picks the daily interval closest to this instant.
	Near     time.Time
	MaxCloud float64
}

type Stat struct {
	Mean     float64
	Interval time.Time
	Samples  int
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

// NewWithHTTPClient uses base for both the token exchange and API calls.
func NewWithHTTPClient(log *logger.Logger, cfg Config, base *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("sentinelhub: missing client credentials")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if base == nil {
		base = httpx.NewClient(cfg.Timeout)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The oauth2 transport caches and refreshes the token across calls.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	authed := cc.Client(tokenCtx)
	authed.Timeout = cfg.Timeout

	return &client{
		log:  log.With("client", "SentinelHubClient"),
		cfg:  cfg,
		http: authed,
	}, nil
}

type statsInput struct {
	Bounds struct {
		BBox       [4]float64        `json:"bbox"`
		Properties map[string]string `json:"properties"`
	} `json:"bounds"`
	Data []statsData `json:"data"`
}

type statsData struct {
	Type       string         `json:"type"`
	DataFilter map[string]any `json:"dataFilter,omitempty"`
}

type statsBody struct {
	Input       statsInput       `json:"input"`
	Aggregation statsAggregation `json:"aggregation"`
}

type statsAggregation struct {
	TimeRange struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"timeRange"`
	AggregationInterval struct {
		Of string `json:"of"`
	} `json:"aggregationInterval"`
	Evalscript string `json:"evalscript"`
	Resx       int    `json:"resx"`
	Resy       int    `json:"resy"`
}

type statsResponse struct {
	Data []struct {
		Interval struct {
			From time.Time `json:"from"`
		} `json:"interval"`
		Outputs map[string]struct {
			Bands map[string]struct {
				Stats struct {
					// Mean is a number, or the string "NaN" when every sample is masked.
					Mean        any `json:"mean"`
					SampleCount int `json:"sampleCount"`
					NoDataCount int `json:"noDataCount"`
				} `json:"stats"`
			} `json:"bands"`
		} `json:"outputs"`
	} `json:"data"`
}

func (c *client) MeanNDVI(ctx context.Context, req StatsRequest) (Stat, error) {
	var body statsBody
	body.Input.Bounds.BBox = [4]float64{req.Bound.Min.Lon(), req.Bound.Min.Lat(), req.Bound.Max.Lon(), req.Bound.Max.Lat()}
	body.Input.Bounds.Properties = map[string]string{"crs": "http://www.opengis.net/def/crs/OGC/1.3/CRS84"}
	data := statsData{Type: "sentinel-2-l2a"}
	if req.MaxCloud > 0 {
		data.DataFilter = map[string]any{"maxCloudCoverage": req.MaxCloud}
	}
	body.Input.Data = []statsData{data}
	body.Aggregation.TimeRange.From = req.From.UTC().Format(time.RFC3339)
	body.Aggregation.TimeRange.To = req.To.UTC().Format(time.RFC3339)
	body.Aggregation.AggregationInterval.Of = "P1D"
	body.Aggregation.Evalscript = ndviEvalscript
	body.Aggregation.Resx = 10
	body.Aggregation.Resy = 10

	var out statsResponse
	if err := httpx.DoJSON(ctx, c.http, http.MethodPost, c.cfg.BaseURL+"/api/v1/statistics", nil, body, &out); err != nil {
		return Stat{}, fmt.Errorf("sentinelhub statistics: %w", err)
	}

	best, found := Stat{}, false
	bestDelta := time.Duration(math.MaxInt64)
	for _, d := range out.Data {
		band, ok := d.Outputs["ndvi"].Bands["B0"]
		if !ok {
			continue
		}
		mean, ok := toFloat(band.Stats.Mean)
		if !ok || band.Stats.SampleCount <= band.Stats.NoDataCount {
			continue
		}
		delta := d.Interval.From.Sub(req.Near)
		if delta < 0 {
			delta = -delta
		}
		if !found || delta < bestDelta {
			best = Stat{Mean: mean, Interval: d.Interval.From.UTC(), Samples: band.Stats.SampleCount - band.Stats.NoDataCount}
			bestDelta = delta
			found = true
		}
	}
	if !found {
		return Stat{}, ErrNoData
	}
	c.log.Debug("sentinelhub statistics", "intervals", len(out.Data), "interval", best.Interval)
	return best, nil
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
