package auth

import "sort"

// Capability is a profile kind a user holds.
type Capability string

const (
	CapabilityFarmer     Capability = "farmer"
	CapabilityAgronomist Capability = "agronomist"
)

// Identity is the authenticated caller resolved once per request. A user may
// hold neither, either, or both profiles.
type Identity struct {
	UserID       uint  `json:"user_id"`
	FarmerID     *uint `json:"farmer_id,omitempty"`
	AgronomistID *uint `json:"agronomist_id,omitempty"`
}

func (i Identity) IsFarmer() bool     { return i.FarmerID != nil }
func (i Identity) IsAgronomist() bool { return i.AgronomistID != nil }

func (i Identity) Has(c Capability) bool {
	switch c {
	case CapabilityFarmer:
		return i.IsFarmer()
	case CapabilityAgronomist:
		return i.IsAgronomist()
	default:
		return false
	}
}

// Capabilities returns the held capabilities in a stable order.
func (i Identity) Capabilities() []Capability {
	out := make([]Capability, 0, 2)
	if i.IsFarmer() {
		out = append(out, CapabilityFarmer)
	}
	if i.IsAgronomist() {
		out = append(out, CapabilityAgronomist)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
