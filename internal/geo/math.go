// Package geo holds the projection and distance math used to place
// annotation features on a flat canvas.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the WGS84 equatorial radius in metres.
const EarthRadius = 6378137.0

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

// LonLatToMercator projects WGS84 coordinates onto the unit square of the
// Web Mercator world: x grows east from 0 at -180, y grows south from 0 at
// MaxLat.
func LonLatToMercator(lon, lat float64) (x, y float64) {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x = (lon + 180.0) / 360.0

	latRad := lat * math.Pi / 180.0
	mercatorY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = 0.5 - mercatorY/(2.0*math.Pi)

	return x, y
}

// MercatorToLonLat reverses LonLatToMercator.
func MercatorToLonLat(x, y float64) (lon, lat float64) {
	lon = x*360.0 - 180.0

	// y: [0..1] -> mercatorY: [PI..-PI]
	mercatorY := (0.5 - y) * 2.0 * math.Pi
	latRad := (2.0 * math.Atan(math.Exp(mercatorY))) - (math.Pi * 0.5)
	lat = latRad * (180.0 / math.Pi)

	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return lon, lat
}

// Destination returns the point reached by travelling distance metres from
// p along the great circle with the given bearing (degrees from north).
func Destination(p orb.Point, distance, bearing float64) orb.Point {
	lat1 := p.Lat() * math.Pi / 180.0
	lon1 := p.Lon() * math.Pi / 180.0
	brng := bearing * math.Pi / 180.0
	d := distance / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := lon2 * 180.0 / math.Pi
	// wrap into [-180, 180)
	lon = math.Mod(lon+540.0, 360.0) - 180.0

	return orb.Point{lon, lat2 * 180.0 / math.Pi}
}

// CircleRing approximates a circle of radius metres around center with a
// closed ring of the given number of segments (at least 8).
func CircleRing(center orb.Point, radius float64, segments int) orb.Ring {
	if segments < 8 {
		segments = 8
	}

	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360.0 / float64(segments)
		ring = append(ring, Destination(center, radius, bearing))
	}

	return append(ring, ring[0])
}

// CircleBound is the bounding box of a circle of radius metres.
func CircleBound(center orb.Point, radius float64) orb.Bound {
	b := center.Bound()
	for _, bearing := range []float64{0, 90, 180, 270} {
		b = b.Extend(Destination(center, radius, bearing))
	}
	return b
}
