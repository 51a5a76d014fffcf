package stac

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}
}

func TestSearchSendsFilterAndDecodesItems(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/search") {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["datetime"] != "2024-05-01T00:00:00Z/2024-06-05T23:59:59Z" {
			t.Fatalf("datetime=%v", body["datetime"])
		}
		q, ok := body["query"].(map[string]any)
		if !ok {
			t.Fatalf("expected cloud filter, got %v", body)
		}
		cc := q["eo:cloud_cover"].(map[string]any)
		if cc["lt"].(float64) != 30 {
			t.Fatalf("cloud lt=%v", cc["lt"])
		}
		return respond(http.StatusOK, `{"type":"FeatureCollection","features":[
			{"id":"S2A_1","collection":"sentinel-2-l2a","properties":{"datetime":"2024-05-30T10:00:00Z","eo:cloud_cover":12.5},
			 "assets":{"B04":{"href":"https://blob/B04.tif"},"B08":{"href":"https://blob/B08.tif"}}},
			{"id":"S2A_2","properties":{"datetime":"2024-05-29T10:00:00Z"},"assets":{}}
		]}`), nil
	})}
	c, err := NewWithHTTPClient(logger.Nop(), Config{BaseURL: "http://stac/"}, hc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	items, err := c.Search(context.Background(), SearchRequest{
		Collections: []string{"sentinel-2-l2a"},
		Bound:       orb.Bound{Min: orb.Point{19.99, 9.99}, Max: orb.Point{20.01, 10.01}},
		From:        time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC),
		MaxCloud:    30,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}
	if cc := items[0].Properties.CloudCover; cc == nil || *cc != 12.5 {
		t.Fatalf("cloud cover %v", cc)
	}
	if items[1].Properties.CloudCover != nil {
		t.Fatalf("missing eo:cloud_cover should decode as nil")
	}
	if items[0].AssetHref("red", "B04") != "https://blob/B04.tif" {
		t.Fatalf("asset href %q", items[0].AssetHref("red", "B04"))
	}
}

func TestSearchWithoutCloudFilter(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		if strings.Contains(string(raw), "eo:cloud_cover") {
			t.Fatalf("unexpected filter in %s", raw)
		}
		return respond(http.StatusOK, `{"features":[]}`), nil
	})}
	c, _ := NewWithHTTPClient(logger.Nop(), Config{BaseURL: "http://stac"}, hc)
	items, err := c.Search(context.Background(), SearchRequest{Collections: []string{"c"}})
	if err != nil || len(items) != 0 {
		t.Fatalf("items=%v err=%v", items, err)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusBadGateway, "down"), nil
	})}
	c, _ := NewWithHTTPClient(logger.Nop(), Config{BaseURL: "http://stac"}, hc)
	if _, err := c.Search(context.Background(), SearchRequest{Collections: []string{"c"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSignCachesToken(t *testing.T) {
	var calls int32
	hc := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		if !strings.HasSuffix(req.URL.Path, "/token/sentinel-2-l2a") {
			t.Fatalf("token path %s", req.URL.Path)
		}
		exp := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		return respond(http.StatusOK, `{"token":"sv=1&sig=abc","msft:expiry":"`+exp+`"}`), nil
	})}
	c, _ := NewWithHTTPClient(logger.Nop(), Config{BaseURL: "http://stac", SASURL: "http://sas/token"}, hc)
	for i := 0; i < 3; i++ {
		signed, err := c.Sign(context.Background(), "sentinel-2-l2a", "https://blob/B04.tif")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if signed != "https://blob/B04.tif?sv=1&sig=abc" {
			t.Fatalf("signed=%q", signed)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("token fetched %d times", calls)
	}
}

func TestSignWithoutSASIsNoop(t *testing.T) {
	c, _ := NewWithHTTPClient(logger.Nop(), Config{BaseURL: "http://stac"}, &http.Client{})
	signed, err := c.Sign(context.Background(), "c", "https://x/y.tif")
	if err != nil || signed != "https://x/y.tif" {
		t.Fatalf("signed=%q err=%v", signed, err)
	}
}
