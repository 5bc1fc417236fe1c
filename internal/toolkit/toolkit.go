// Package toolkit is an in-memory stand-in for a Leaflet-style map and draw
// toolkit. It keeps an ordered layer stack, fires events when a layer is
// drawn, and tracks the active basemap tiles.
package toolkit

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Kind is the layer class the toolkit renders a feature with.
type Kind int

const (
	Marker Kind = iota
	Polyline
	Polygon
	Circle
)

func (k Kind) String() string {
	switch k {
	case Marker:
		return "marker"
	case Polyline:
		return "polyline"
	case Polygon:
		return "polygon"
	case Circle:
		return "circle"
	}
	return "unknown"
}

// PathOptions is the resolved vector style of a layer.
type PathOptions struct {
	Color            string
	FillColor        string
	Weight           float64
	Opacity          float64
	FillOpacity      float64
	Stroke           bool
	Fill             bool
	FillColorEnabled bool
}

// EffectiveFillColor is the color the layer is filled with.
func (o PathOptions) EffectiveFillColor() string {
	if o.FillColorEnabled {
		return o.FillColor
	}
	return o.Color
}

// Layer is one rendered feature.
type Layer struct {
	// Feature carries the geometry and the popup properties. Circles keep
	// their center as an orb.Point.
	Feature *geojson.Feature

	// ID is assigned by the map when the layer is added.
	ID string

	// Tag is the feature identifier owned by the editing session.
	Tag string

	Options PathOptions
	Kind    Kind

	// Radius in metres, circles only.
	Radius float64
}

// Map holds the layer stack, bottom-most first.
type Map struct {
	byID        map[string]*Layer
	byTag       map[string]*Layer
	tiles       string
	attribution string
	layers      []*Layer
	onCreate    []func(*Layer)
	nextID      int
}

// New returns an empty map.
func New() *Map {
	return &Map{
		byID:  make(map[string]*Layer),
		byTag: make(map[string]*Layer),
	}
}

// Layers returns the layers in render order.
func (m *Map) Layers() []*Layer {
	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// Len returns the number of layers.
func (m *Map) Len() int {
	return len(m.layers)
}

// LayerByTag looks a layer up by session feature ID.
func (m *Map) LayerByTag(tag string) (*Layer, bool) {
	l, ok := m.byTag[tag]
	return l, ok
}

// AddLayer puts l on top of the stack and returns its toolkit ID.
func (m *Map) AddLayer(l *Layer) string {
	m.nextID++
	l.ID = strconv.Itoa(m.nextID)
	m.layers = append(m.layers, l)
	m.byID[l.ID] = l
	if l.Tag != "" {
		m.byTag[l.Tag] = l
	}
	return l.ID
}

// Draw adds a layer the way a user drawing on the map would: the layer is
// added and every OnCreate listener is notified.
func (m *Map) Draw(l *Layer) string {
	id := m.AddLayer(l)
	for _, fn := range m.onCreate {
		fn(l)
	}
	return id
}

// OnCreate registers a listener for drawn layers.
func (m *Map) OnCreate(fn func(*Layer)) {
	m.onCreate = append(m.onCreate, fn)
}

// SetTag links the layer to a session feature ID.
func (m *Map) SetTag(id, tag string) bool {
	l, ok := m.byID[id]
	if !ok {
		return false
	}
	if l.Tag != "" {
		delete(m.byTag, l.Tag)
	}
	l.Tag = tag
	if tag != "" {
		m.byTag[tag] = l
	}
	return true
}

// RemoveLayer drops the layer with the given toolkit ID.
func (m *Map) RemoveLayer(id string) bool {
	l, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	if l.Tag != "" {
		delete(m.byTag, l.Tag)
	}
	for i, v := range m.layers {
		if v == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			break
		}
	}
	return true
}

// SetBasemap switches the tile source.
func (m *Map) SetBasemap(tiles, attribution string) {
	m.tiles, m.attribution = tiles, attribution
}

// Basemap returns the active tile source.
func (m *Map) Basemap() (tiles, attribution string) {
	return m.tiles, m.attribution
}

// Bound covers every layer geometry. Circles contribute their center only.
func (m *Map) Bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, l := range m.layers {
		if l.Feature == nil || l.Feature.Geometry == nil {
			continue
		}
		gb := l.Feature.Geometry.Bound()
		if !found {
			b, found = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, found
}

// GeoJSON exports the layers the way Leaflet's toGeoJSON does: circles
// degrade to plain points and lose their radius.
func (m *Map) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range m.layers {
		if l.Feature == nil {
			continue
		}
		f := geojson.NewFeature(orb.Clone(l.Feature.Geometry))
		f.Properties = l.Feature.Properties.Clone()
		fc.Append(f)
	}
	return fc
}
