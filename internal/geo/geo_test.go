package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"same point", 48.8566, 2.3522, 48.8566, 2.3522, 0},
		{"nashville to los angeles", 36.12, -86.67, 33.94, -118.40, 2886.45},
		{"one degree of longitude at the equator", 0, 0, 0, 1, 111.19},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HaversineKm(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(got-tc.want) > 0.5 {
				t.Fatalf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := HaversineKm(55.75, 37.62, 59.94, 30.31)
	b := HaversineKm(59.94, 30.31, 55.75, 37.62)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", a, b)
	}
}

func TestWithinRadiusBoundaryInclusive(t *testing.T) {
	// A point is inside its own zero-radius circle.
	if !WithinRadius(10, 20, 10, 20, 0) {
		t.Fatal("center must be within a zero radius")
	}

	d := HaversineKm(0, 0, 0, 0.089)
	if !WithinRadius(0, 0, 0, 0.089, d) {
		t.Fatal("point exactly on the boundary must be within")
	}
	if WithinRadius(0, 0, 0, 0.089, d-0.001) {
		t.Fatal("point just outside the radius must not be within")
	}
}
