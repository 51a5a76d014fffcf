package ndvi

import (
	"sort"
	"time"
)

const (
	StrictCloudCeiling  = 30.0
	RelaxedCloudCeiling = 50.0
)

// selectScene keeps scenes strictly under ceiling and returns the one with
// the lowest cloud cover, ties broken by distance from asOf. Scenes without
// a cloud cover never pass a ceiling.
func selectScene(scenes []Scene, ceiling float64, asOf time.Time) (Scene, bool) {
	kept := make([]Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.CloudCover != nil && *s.CloudCover < ceiling {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return Scene{}, false
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ci, cj := *kept[i].CloudCover, *kept[j].CloudCover
		if ci != cj {
			return ci < cj
		}
		return absDuration(kept[i].AcquiredAt.Sub(asOf)) < absDuration(kept[j].AcquiredAt.Sub(asOf))
	})
	return kept[0], true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
