package ndvi

import (
	"math"
	"testing"
	"time"
)

func TestFromBands(t *testing.T) {
	if v := FromBands(0.1, 0.5); math.Abs(v-0.4/0.6) > 1e-9 {
		t.Fatalf("FromBands=%v", v)
	}
	if v := FromBands(0, 0); v != 0 {
		t.Fatalf("zero denominator=%v", v)
	}
	if v := FromBands(-0.5, 0.5); v != 0 {
		t.Fatalf("opposite bands=%v", v)
	}
	if v := FromBands(-1, 3); v != 1 {
		t.Fatalf("expected clip to 1, got %v", v)
	}
}

func TestEstimateAndMockRanges(t *testing.T) {
	days := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	coords := [][2]float64{{10, 20}, {-33.9, 18.4}, {52.1, 5.3}, {0, 0}}
	for _, d := range days {
		for _, c := range coords {
			if v := Estimate(c[0], c[1], d); v < 0.15 || v > 0.85 {
				t.Fatalf("estimate %v out of range for %v %v", v, c, d)
			}
			if v := Mock(c[0], c[1], d); v < 0.2 || v > 0.9 {
				t.Fatalf("mock %v out of range for %v %v", v, c, d)
			}
		}
	}
}

func TestSynthesisIsDeterministic(t *testing.T) {
	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if Mock(10, 20, d) != Mock(10, 20, d) || Estimate(10, 20, d) != Estimate(10, 20, d) {
		t.Fatalf("synthesis not deterministic")
	}
	if CoordinateHash(10, 20) == CoordinateHash(20, 10) {
		t.Fatalf("hash should depend on coordinate order")
	}
}

func TestAssessHealth(t *testing.T) {
	cases := []struct {
		value     float64
		unhealthy bool
		severity  Severity
	}{
		{0.2, true, SeverityHigh},
		{0.3, true, SeverityMedium},
		{0.49, true, SeverityMedium},
		{0.5, false, SeverityLow},
		{0.8, false, SeverityLow},
	}
	for _, c := range cases {
		h := AssessHealth(c.value, DefaultHealthThreshold)
		if h.IsUnhealthy != c.unhealthy || h.Severity != c.severity {
			t.Fatalf("AssessHealth(%v)=%+v", c.value, h)
		}
	}
	if h := AssessHealth(0.6, 0.7); !h.IsUnhealthy || h.Severity != SeverityLow {
		t.Fatalf("custom threshold: %+v", h)
	}
}
