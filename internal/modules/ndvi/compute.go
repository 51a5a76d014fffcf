package ndvi

import (
	"hash/fnv"
	"math"
	"strconv"
	"time"
)

// FromBands returns clip((nir-red)/(nir+red), -1, 1); a zero denominator
// yields 0.
func FromBands(red, nir float64) float64 {
	sum := nir + red
	if sum == 0 || math.IsNaN(sum) {
		return 0
	}
	return Clip((nir-red)/sum, -1, 1)
}

func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// CoordinateHash is FNV-1a over "<lat>_<lon>".
func CoordinateHash(lat, lon float64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lon, 'f', -1, 64)))
	return h.Sum64()
}

func seasonal(amplitude float64, t time.Time) float64 {
	return amplitude * math.Sin(float64(t.YearDay())/365*2*math.Pi)
}

// Estimate synthesizes a value for a real scene whose bands were not
// decoded. It is deterministic in (lat, lon, day of year).
func Estimate(lat, lon float64, asOf time.Time) float64 {
	base := 0.4 + float64(CoordinateHash(lat, lon)%150)/500
	return Clip(base+seasonal(0.15, asOf), 0.15, 0.85)
}

// Mock is the value used when no source produced an observation.
func Mock(lat, lon float64, asOf time.Time) float64 {
	base := 0.5 + float64(CoordinateHash(lat, lon)%100)/500
	return Clip(base+seasonal(0.1, asOf), 0.2, 0.9)
}
