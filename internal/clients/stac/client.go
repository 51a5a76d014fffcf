package stac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/fieldcare/fieldcare-backend/internal/platform/httpx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const (
	PlanetaryComputerURL = "https://planetarycomputer.microsoft.com/api/stac/v1"
	PlanetaryComputerSAS = "https://planetarycomputer.microsoft.com/api/sas/v1/token"
	EarthSearchURL       = "https://earth-search.aws.element84.com/v1"
)

// Client searches a STAC API catalog.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Item, error)
	// Sign returns an href usable for download. Catalogs without a SAS
	// endpoint return href unchanged.
	Sign(ctx context.Context, collection, href string) (string, error)
}

type Config struct {
	BaseURL string
	// SASURL enables Planetary Computer style token signing.
	SASURL string
	// SubscriptionKey is sent as Ocp-Apim-Subscription-Key when set.
	SubscriptionKey string
	Timeout         time.Duration
}

type SearchRequest struct {
	Collections []string
	Bound       orb.Bound
	From, To    time.Time
	// MaxCloud filters on eo:cloud_cover < MaxCloud; 0 disables the filter.
	MaxCloud float64
	Limit    int
}

type Item struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	BBox       []float64        `json:"bbox"`
	Properties Properties       `json:"properties"`
	Assets     map[string]Asset `json:"assets"`
}

type Properties struct {
	Datetime   time.Time `json:"datetime"`
	CloudCover *float64  `json:"eo:cloud_cover"`
}

type Asset struct {
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

type searchBody struct {
	Collections []string                  `json:"collections"`
	BBox        [4]float64                `json:"bbox"`
	Datetime    string                    `json:"datetime"`
	Limit       int                       `json:"limit"`
	Query       map[string]map[string]any `json:"query,omitempty"`
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []Item `json:"features"`
}

type sasToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"msft:expiry"`
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client

	mu     sync.Mutex
	tokens map[string]sasToken
	now    func() time.Time
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

// NewWithHTTPClient lets tests inject a fake transport.
func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("stac: base url required")
	}
	cfg.SASURL = strings.TrimRight(strings.TrimSpace(cfg.SASURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.NewClient(cfg.Timeout)
	}
	return &client{
		log:    log.With("client", "STACClient", "base_url", cfg.BaseURL),
		cfg:    cfg,
		http:   httpClient,
		tokens: map[string]sasToken{},
		now:    time.Now,
	}, nil
}

func (c *client) header() http.Header {
	h := http.Header{}
	if c.cfg.SubscriptionKey != "" {
		h.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	}
	return h
}

func (c *client) Search(ctx context.Context, req SearchRequest) ([]Item, error) {
	if len(req.Collections) == 0 {
		return nil, fmt.Errorf("stac: collections required")
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	body := searchBody{
		Collections: req.Collections,
		BBox:        [4]float64{req.Bound.Min.Lon(), req.Bound.Min.Lat(), req.Bound.Max.Lon(), req.Bound.Max.Lat()},
		Datetime:    formatInterval(req.From, req.To),
		Limit:       req.Limit,
	}
	if req.MaxCloud > 0 {
		body.Query = map[string]map[string]any{"eo:cloud_cover": {"lt": req.MaxCloud}}
	}

	var out featureCollection
	if err := httpx.DoJSON(ctx, c.http, http.MethodPost, c.cfg.BaseURL+"/search", c.header(), body, &out); err != nil {
		return nil, fmt.Errorf("stac search: %w", err)
	}
	c.log.Debug("stac search", "collections", req.Collections, "max_cloud", req.MaxCloud, "features", len(out.Features))
	return out.Features, nil
}

// formatInterval renders an RFC 3339 interval covering whole UTC days.
func formatInterval(from, to time.Time) string {
	from, to = from.UTC(), to.UTC()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
	return start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339)
}

func (c *client) Sign(ctx context.Context, collection, href string) (string, error) {
	if c.cfg.SASURL == "" || href == "" {
		return href, nil
	}
	tok, err := c.token(ctx, collection)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("stac sign: %w", err)
	}
	if u.RawQuery == "" {
		u.RawQuery = tok
	} else {
		u.RawQuery += "&" + tok
	}
	return u.String(), nil
}

// token returns a cached SAS token, refreshing it a minute before expiry.
func (c *client) token(ctx context.Context, collection string) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[collection]
	c.mu.Unlock()
	if ok && c.now().Add(time.Minute).Before(cached.Expiry) {
		return cached.Token, nil
	}

	var out sasToken
	if err := httpx.DoJSON(ctx, c.http, http.MethodGet, c.cfg.SASURL+"/"+url.PathEscape(collection), c.header(), nil, &out); err != nil {
		return "", fmt.Errorf("stac sas token: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("stac sas token: empty token")
	}
	c.mu.Lock()
	c.tokens[collection] = out
	c.mu.Unlock()
	return out.Token, nil
}

// AssetHref returns the first non-empty href among keys.
func (it Item) AssetHref(keys ...string) string {
	for _, k := range keys {
		if a, ok := it.Assets[k]; ok && a.Href != "" {
			return a.Href
		}
	}
	return ""
}
