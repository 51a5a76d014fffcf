package auth

import "testing"

func TestIdentityCapabilities(t *testing.T) {
	fid, aid := uint(3), uint(9)
	cases := []struct {
		name string
		id   Identity
		want []Capability
	}{
		{"none", Identity{UserID: 1}, nil},
		{"farmer", Identity{UserID: 1, FarmerID: &fid}, []Capability{CapabilityFarmer}},
		{"agronomist", Identity{UserID: 1, AgronomistID: &aid}, []Capability{CapabilityAgronomist}},
		{"both", Identity{UserID: 1, FarmerID: &fid, AgronomistID: &aid}, []Capability{CapabilityAgronomist, CapabilityFarmer}},
	}
	for _, tc := range cases {
		got := tc.id.Capabilities()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] || !tc.id.Has(got[i]) {
				t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
			}
		}
	}
}
