package scihub

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/fieldcare/fieldcare-backend/internal/platform/httpx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://apihub.copernicus.eu/apihub"

const queryTimeLayout = "2006-01-02T15:04:05"

// Client queries a Copernicus OpenSearch endpoint for Sentinel-2 L2A products.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Product, error)
}

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type SearchRequest struct {
	Bound    orb.Bound
	From, To time.Time
	MaxCloud float64
	Rows     int
}

type Product struct {
	ID         string
	Title      string
	Begin      time.Time
	CloudCover float64
	// Href is the product download link (rel alternative, else enclosure).
	Href string
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil, fmt.Errorf("scihub: missing credentials")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.NewClient(cfg.Timeout)
	}
	return &client{
		log:  log.With("client", "SciHubClient"),
		cfg:  cfg,
		http: httpClient,
	}, nil
}

// Query builds the OpenSearch q parameter.
func Query(req SearchRequest) string {
	maxCloud := req.MaxCloud
	if maxCloud <= 0 {
		maxCloud = 100
	}
	footprint := wkt.MarshalString(req.Bound.ToPolygon())
	return fmt.Sprintf(
		`platformname:Sentinel-2 AND producttype:S2MSI2A AND cloudcoverpercentage:[0 TO %s] AND beginposition:[%s TO %s] AND footprint:"Intersects(%s)"`,
		strconv.FormatFloat(maxCloud, 'f', -1, 64),
		req.From.UTC().Format(queryTimeLayout),
		req.To.UTC().Format(queryTimeLayout),
		footprint,
	)
}

func (c *client) Search(ctx context.Context, req SearchRequest) ([]Product, error) {
	if req.Rows <= 0 {
		req.Rows = 10
	}
	params := url.Values{}
	params.Set("q", Query(req))
	params.Set("rows", strconv.Itoa(req.Rows))
	params.Set("start", "0")

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	hreq.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	hreq.Header.Set("Accept", "application/atom+xml")

	raw, err := httpx.Do(c.http, hreq)
	if err != nil {
		return nil, fmt.Errorf("scihub search: %w", err)
	}
	products, err := parseFeed(raw)
	if err != nil {
		return nil, fmt.Errorf("scihub decode: %w", err)
	}
	c.log.Debug("scihub search", "max_cloud", req.MaxCloud, "products", len(products))
	return products, nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Links   []atomLink  `xml:"link"`
	Strings []namedElem `xml:"str"`
	Dates   []namedElem `xml:"date"`
	Doubles []namedElem `xml:"double"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type namedElem struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func lookup(elems []namedElem, name string) string {
	for _, e := range elems {
		if e.Name == name {
			return strings.TrimSpace(e.Value)
		}
	}
	return ""
}

func parseFeed(raw []byte) ([]Product, error) {
	var feed atomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Product{
			ID:         lookup(e.Strings, "uuid"),
			Title:      strings.TrimSpace(e.Title),
			CloudCover: 100,
		}
		if p.ID == "" {
			p.ID = strings.TrimSpace(e.ID)
		}
		if v := lookup(e.Doubles, "cloudcoverpercentage"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				p.CloudCover = f
			}
		}
		if v := lookup(e.Dates, "beginposition"); v != "" {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				p.Begin = t.UTC()
			}
		}
		p.Href = linkHref(e.Links, "alternative")
		if p.Href == "" {
			p.Href = linkHref(e.Links, "enclosure")
		}
		out = append(out, p)
	}
	return out, nil
}

func linkHref(links []atomLink, rel string) string {
	for _, l := range links {
		if l.Rel == rel && l.Href != "" {
			return l.Href
		}
	}
	return ""
}
