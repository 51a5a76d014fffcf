package treatment

// EffectiveThreshold is the improvement percentage above which a treatment
// counts as effective.
const EffectiveThreshold = 5.0

// Comparison is the before/after NDVI outcome of a treatment.
type Comparison struct {
	BeforeIndex           float64 `json:"before_ndvi"`
	AfterIndex            float64 `json:"after_ndvi"`
	ImprovementPercentage float64 `json:"improvement_percentage"`
	IsEffective           bool    `json:"is_effective"`
}

// Improvement returns (after - before) / before * 100. A baseline that is
// not positive has no meaningful ratio and yields 0.
func Improvement(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (after - before) / before * 100
}

func Compare(before, after float64) Comparison {
	pct := Improvement(before, after)
	return Comparison{
		BeforeIndex:           before,
		AfterIndex:            after,
		ImprovementPercentage: pct,
		IsEffective:           pct > EffectiveThreshold,
	}
}
