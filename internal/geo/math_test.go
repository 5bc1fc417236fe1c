package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestLonLatToMercator(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		x, y     float64
	}{
		{"Origin", 0, 0, 0.5, 0.5},
		{"West Edge", -180, 0, 0, 0.5},
		{"North Limit", 0, MaxLat, 0.5, 0},
		{"Beyond North Limit", 0, 89.9, 0.5, 0},
		{"South Limit", 0, -MaxLat, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := LonLatToMercator(tt.lon, tt.lat)
			if !near(x, tt.x, 1e-9) || !near(y, tt.y, 1e-6) {
				t.Errorf("LonLatToMercator() = (%v, %v), want (%v, %v)", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	for _, p := range []orb.Point{{-123.17, 49.26}, {151.2, -33.87}, {0, 0}, {179.9, 80}} {
		x, y := LonLatToMercator(p.Lon(), p.Lat())
		lon, lat := MercatorToLonLat(x, y)
		if !near(lon, p.Lon(), 1e-9) || !near(lat, p.Lat(), 1e-9) {
			t.Errorf("Round trip of %v gave (%v, %v)", p, lon, lat)
		}
	}
}

func TestDestination(t *testing.T) {
	center := orb.Point{-123.17, 49.26}

	north := Destination(center, 1000, 0)
	// one kilometre is about 0.009 degrees of latitude
	if !near(north.Lat()-center.Lat(), 0.008983, 1e-4) || !near(north.Lon(), center.Lon(), 1e-9) {
		t.Errorf("Destination(north) = %v", north)
	}

	east := Destination(center, 1000, 90)
	if east.Lon() <= center.Lon() || !near(east.Lat(), center.Lat(), 1e-4) {
		t.Errorf("Destination(east) = %v", east)
	}

	wrapped := Destination(orb.Point{179.999, 0}, 1000, 90)
	if wrapped.Lon() > -179 || wrapped.Lon() < -180 {
		t.Errorf("Destination across the antimeridian = %v", wrapped)
	}
}

func TestCircleRing(t *testing.T) {
	ring := CircleRing(orb.Point{0, 0}, 500, 4)
	if len(ring) != 9 {
		t.Fatalf("CircleRing() has %d points, want 9", len(ring))
	}
	if !ring.Closed() {
		t.Error("CircleRing() is not closed")
	}
}

func TestCircleBound(t *testing.T) {
	b := CircleBound(orb.Point{10, 10}, 1000)
	if !b.Contains(orb.Point{10, 10}) || b.Max.Lat() <= 10 || b.Min.Lon() >= 10 {
		t.Errorf("CircleBound() = %v", b)
	}
}
