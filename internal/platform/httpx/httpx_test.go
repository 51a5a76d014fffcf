package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestDoJSON(t *testing.T) {
	c := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("missing content type")
		}
		if req.Header.Get("X-Test") != "1" {
			t.Fatalf("custom header not forwarded")
		}
		return respond(http.StatusOK, `{"ok":true}`), nil
	})}
	var out struct {
		OK bool `json:"ok"`
	}
	err := DoJSON(context.Background(), c, http.MethodPost, "http://upstream/x", http.Header{"X-Test": {"1"}}, map[string]int{"a": 1}, &out)
	if err != nil || !out.OK {
		t.Fatalf("DoJSON: out=%+v err=%v", out, err)
	}
}

func TestDoJSONHTTPError(t *testing.T) {
	c := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusBadGateway, strings.Repeat("x", 5000)), nil
	})}
	err := DoJSON(context.Background(), c, http.MethodGet, "http://upstream/x", nil, nil, nil)
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}
	if len(he.Body) != maxErrorBody {
		t.Fatalf("error body should be truncated, got %d bytes", len(he.Body))
	}
}

func TestDoJSONMalformedBody(t *testing.T) {
	c := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{not json`), nil
	})}
	var out map[string]any
	if err := DoJSON(context.Background(), c, http.MethodGet, "http://upstream/x", nil, nil, &out); err == nil {
		t.Fatalf("expected decode error")
	}
}
