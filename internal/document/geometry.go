package document

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// GeometryType names a geometry as it appears in the document.
type GeometryType string

// Supported geometry types.
const (
	PointType      GeometryType = "Point"
	LineStringType GeometryType = "LineString"
	PolygonType    GeometryType = "Polygon"
)

// Geometry is the shape of a feature. Coordinates holds an orb.Point,
// orb.LineString or orb.Polygon; for any other type it is nil and the
// coordinates are kept verbatim in Raw.
type Geometry struct {
	Coordinates orb.Geometry
	Type        GeometryType
	Raw         json.RawMessage
}

// NewPoint returns a Point geometry.
func NewPoint(lon, lat float64) Geometry {
	return Geometry{Type: PointType, Coordinates: orb.Point{lon, lat}}
}

// NewLineString returns a LineString geometry.
func NewLineString(ls orb.LineString) Geometry {
	return Geometry{Type: LineStringType, Coordinates: ls}
}

// NewPolygon returns a Polygon geometry.
func NewPolygon(p orb.Polygon) Geometry {
	return Geometry{Type: PolygonType, Coordinates: p}
}

// FromOrb wraps an orb geometry, reporting false for shapes the document
// can not hold.
func FromOrb(g orb.Geometry) (Geometry, bool) {
	switch v := g.(type) {
	case orb.Point:
		return Geometry{Type: PointType, Coordinates: v}, true
	case orb.LineString:
		return Geometry{Type: LineStringType, Coordinates: v}, true
	case orb.Polygon:
		return Geometry{Type: PolygonType, Coordinates: v}, true
	case orb.Ring:
		return Geometry{Type: PolygonType, Coordinates: orb.Polygon{v}}, true
	}
	return Geometry{}, false
}

// Supported reports whether the geometry type is one the document models.
func (g Geometry) Supported() bool {
	return g.Coordinates != nil
}

// Validate checks that a supported geometry carries enough coordinates.
func (g Geometry) Validate() error {
	switch c := g.Coordinates.(type) {
	case orb.Point:
		return nil
	case orb.LineString:
		if len(c) < 2 {
			return fmt.Errorf("linestring needs 2 positions, got %d", len(c))
		}
	case orb.Polygon:
		if len(c) == 0 {
			return fmt.Errorf("polygon has no rings")
		}
		for i, r := range c {
			if len(r) < 4 {
				return fmt.Errorf("polygon ring %d needs 4 positions, got %d", i, len(r))
			}
		}
	case nil:
		switch g.Type {
		case PointType, LineStringType, PolygonType:
			return fmt.Errorf("%s has malformed coordinates %s", g.Type, g.Raw)
		}
		return fmt.Errorf("geometry type %q is not supported", g.Type)
	}
	return nil
}

// normalize closes open polygon rings.
func (g *Geometry) normalize() {
	poly, ok := g.Coordinates.(orb.Polygon)
	if !ok {
		return
	}
	for i, r := range poly {
		if len(r) > 0 && !r.Closed() {
			poly[i] = append(r, r[0])
		}
	}
}

// Clone returns a deep copy.
func (g Geometry) Clone() Geometry {
	c := Geometry{Type: g.Type}
	if g.Coordinates != nil {
		c.Coordinates = orb.Clone(g.Coordinates)
	}
	if g.Raw != nil {
		c.Raw = append(json.RawMessage(nil), g.Raw...)
	}
	return c
}

type geometryJSON struct {
	Type        GeometryType `json:"type"`
	Coordinates any          `json:"coordinates"`
}

// MarshalJSON writes {"type":...,"coordinates":...}.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any = g.Raw
	if g.Coordinates != nil {
		coords = g.Coordinates
	}
	return encode(geometryJSON{Type: g.Type, Coordinates: coords})
}

// UnmarshalJSON reads a geometry object. Unknown types and malformed
// coordinates are kept, not rejected, so one odd feature does not spoil a
// whole document.
func (g *Geometry) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type        GeometryType    `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*g = Geometry{Type: raw.Type}
	var err error
	switch raw.Type {
	case PointType:
		var p orb.Point
		err = unmarshalCoordinates(raw.Coordinates, &p)
		g.Coordinates = p
	case LineStringType:
		var ls orb.LineString
		err = unmarshalCoordinates(raw.Coordinates, &ls)
		g.Coordinates = ls
	case PolygonType:
		var poly orb.Polygon
		err = unmarshalCoordinates(raw.Coordinates, &poly)
		g.Coordinates = poly
	default:
		g.Raw = raw.Coordinates
	}

	// malformed coordinates leave the geometry unsupported, like an unknown type
	if err != nil {
		g.Coordinates = nil
		g.Raw = raw.Coordinates
	}

	return nil
}

func unmarshalCoordinates(b json.RawMessage, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	return nil
}

// MarshalYAML mirrors the JSON shape.
func (g Geometry) MarshalYAML() (any, error) {
	var coords any
	if g.Coordinates != nil {
		coords = g.Coordinates
	} else if len(g.Raw) > 0 {
		if err := json.Unmarshal(g.Raw, &coords); err != nil {
			return nil, err
		}
	}
	return map[string]any{"type": string(g.Type), "coordinates": coords}, nil
}
