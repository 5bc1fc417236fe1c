package sharecodec

import (
	"strconv"
	"strings"
)

// Basemap identifies the background tile style.
type Basemap int

const (
	BasemapStreets   Basemap = 1
	BasemapSatellite Basemap = 2

	DefaultBasemap = BasemapStreets
)

// Basemaps lists every known basemap.
var Basemaps = []Basemap{BasemapStreets, BasemapSatellite}

// Valid reports whether b is a known basemap.
func (b Basemap) Valid() bool {
	return b == BasemapStreets || b == BasemapSatellite
}

// OrDefault maps unknown ids to DefaultBasemap.
func (b Basemap) OrDefault() Basemap {
	if b.Valid() {
		return b
	}
	return DefaultBasemap
}

func (b Basemap) String() string {
	switch b {
	case BasemapStreets:
		return "streets"
	case BasemapSatellite:
		return "satellite"
	}
	return "basemap(" + strconv.Itoa(int(b)) + ")"
}

// ParseBasemap reads a bm value. Empty, non-integer and unknown values
// yield DefaultBasemap.
func ParseBasemap(s string) Basemap {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultBasemap
	}
	return Basemap(n).OrDefault()
}
