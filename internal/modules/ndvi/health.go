package ndvi

const DefaultHealthThreshold = 0.5

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Health struct {
	Value       float64  `json:"ndvi_value"`
	Threshold   float64  `json:"threshold"`
	IsUnhealthy bool     `json:"is_unhealthy"`
	Severity    Severity `json:"severity"`
}

// AssessHealth flags values under threshold. Severity bands are fixed and
// independent of threshold.
func AssessHealth(value, threshold float64) Health {
	sev := SeverityLow
	switch {
	case value < 0.3:
		sev = SeverityHigh
	case value < 0.5:
		sev = SeverityMedium
	}
	return Health{
		Value:       value,
		Threshold:   threshold,
		IsUnhealthy: value < threshold,
		Severity:    sev,
	}
}
