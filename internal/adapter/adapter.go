// Package adapter converts between map toolkit layers and the annotation
// document.
package adapter

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/toolkit"
)

var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrInvalidGeometry     = errors.New("invalid geometry")
)

// Map is the part of a map toolkit the adapter drives. *toolkit.Map
// implements it.
type Map interface {
	Layers() []*toolkit.Layer
	AddLayer(l *toolkit.Layer) string
	RemoveLayer(id string) bool
	LayerByTag(tag string) (*toolkit.Layer, bool)
	SetTag(id, tag string) bool
	OnCreate(fn func(*toolkit.Layer))
	SetBasemap(tiles, attribution string)
}

// Report counts what FromDocument did with each feature.
type Report struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// Property keys the toolkit payload uses.
const (
	propTitle            = "title"
	propDescription      = "description"
	propTooltip          = "tooltip"
	propPermanentTooltip = "permanentTooltip"
	propData             = "data"
)

// ToDocument snapshots every layer in render order. Layers that carry no
// usable geometry are left out and reported in the joined error; the
// returned document always holds the rest.
func ToDocument(m Map) (document.FeatureCollection, error) {
	var doc document.FeatureCollection
	var errs []error
	for _, l := range m.Layers() {
		f, err := FeatureFromLayer(l)
		if err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", l.ID, err))
			continue
		}
		doc.Features = append(doc.Features, f)
	}
	return doc, errors.Join(errs...)
}

// FromDocument adds the features of doc to m. Features already on the map
// are counted as duplicates and skipped, so importing a document twice is
// harmless. Features that can not be drawn are skipped and reported in the
// joined error while the rest are still added.
func FromDocument(doc document.FeatureCollection, m Map) (Report, error) {
	existing := make(map[uint64]int)
	for _, l := range m.Layers() {
		if f, err := FeatureFromLayer(l); err == nil {
			existing[f.Fingerprint()]++
		}
	}

	var report Report
	var errs []error
	for i, f := range doc.Features {
		fp := f.Fingerprint()
		if existing[fp] > 0 {
			existing[fp]--
			report.Duplicates++
			continue
		}

		l, err := LayerFromFeature(f)
		if err != nil {
			report.Skipped++
			errs = append(errs, fmt.Errorf("feature %d: %w", i, err))
			continue
		}
		m.AddLayer(l)
		report.Added++
	}

	return report, errors.Join(errs...)
}

// FeatureFromLayer reads one layer into a document feature.
func FeatureFromLayer(l *toolkit.Layer) (document.Feature, error) {
	if l == nil || l.Feature == nil || l.Feature.Geometry == nil {
		return document.Feature{}, fmt.Errorf("%w: layer has no geometry", ErrInvalidGeometry)
	}

	g, ok := document.FromOrb(l.Feature.Geometry)
	if !ok {
		return document.Feature{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, l.Feature.Geometry.GeoJSONType())
	}

	props := l.Feature.Properties
	f := document.Feature{
		Geometry: g.Clone(),
		Properties: document.Properties{
			Title:            props.MustString(propTitle, ""),
			Description:      props.MustString(propDescription, ""),
			Tooltip:          props.MustBool(propTooltip, false),
			PermanentTooltip: props.MustBool(propPermanentTooltip, false),
			Data:             readData(props[propData]),
			Style:            document.Diff(appearance(l.Options)),
		},
	}
	if l.Kind == toolkit.Circle {
		if g.Type != document.PointType {
			return document.Feature{}, fmt.Errorf("%w: circle centre is a %s", ErrInvalidGeometry, g.Type)
		}
		f.Properties.Radius = l.Radius
	}

	f.Normalize()
	return f, nil
}

// LayerFromFeature builds the layer that renders f. Points with a radius
// become circles.
func LayerFromFeature(f document.Feature) (*toolkit.Layer, error) {
	if !f.Geometry.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, f.Geometry.Type)
	}
	if err := f.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
	}

	f = f.Clone()
	f.Normalize()

	l := &toolkit.Layer{
		Feature: geojson.NewFeature(f.Geometry.Coordinates),
		Options: pathOptions(f.Properties.Style.Resolve()),
	}
	writeProperties(l.Feature.Properties, f.Properties)

	switch f.Geometry.Coordinates.(type) {
	case orb.Point:
		l.Kind = toolkit.Marker
		if f.IsCircle() {
			l.Kind = toolkit.Circle
			l.Radius = f.Properties.Radius
		}
	case orb.LineString:
		l.Kind = toolkit.Polyline
	case orb.Polygon:
		l.Kind = toolkit.Polygon
	}

	return l, nil
}

// writeProperties stores the popup fields in the toolkit payload. Empty
// fields are left out.
func writeProperties(dst geojson.Properties, p document.Properties) {
	for _, k := range []string{propTitle, propDescription, propTooltip, propPermanentTooltip, propData} {
		delete(dst, k)
	}
	if p.Title != "" {
		dst[propTitle] = p.Title
	}
	if p.Description != "" {
		dst[propDescription] = p.Description
	}
	if p.Tooltip {
		dst[propTooltip] = true
	}
	if p.PermanentTooltip {
		dst[propPermanentTooltip] = true
	}
	if len(p.Data) > 0 {
		rows := make([]any, len(p.Data))
		for i, d := range p.Data {
			rows[i] = []any{d.Key, d.Value}
		}
		dst[propData] = rows
	}
}

// readData accepts rows written by writeProperties as well as rows decoded
// from JSON. Rows that are not string pairs are dropped.
func readData(v any) []document.DataEntry {
	var out []document.DataEntry
	switch rows := v.(type) {
	case [][2]string:
		for _, r := range rows {
			out = append(out, document.DataEntry{Key: r[0], Value: r[1]})
		}
	case []any:
		for _, r := range rows {
			if e, ok := readRow(r); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func readRow(v any) (document.DataEntry, bool) {
	switch r := v.(type) {
	case [2]string:
		return document.DataEntry{Key: r[0], Value: r[1]}, true
	case []string:
		if len(r) == 2 {
			return document.DataEntry{Key: r[0], Value: r[1]}, true
		}
	case []any:
		if len(r) != 2 {
			return document.DataEntry{}, false
		}
		k, ok1 := r[0].(string)
		val, ok2 := r[1].(string)
		if ok1 && ok2 {
			return document.DataEntry{Key: k, Value: val}, true
		}
	}
	return document.DataEntry{}, false
}

func pathOptions(a document.Appearance) toolkit.PathOptions {
	return toolkit.PathOptions{
		Stroke:           a.Stroke,
		Color:            a.Color,
		Weight:           a.Weight,
		Opacity:          a.Opacity,
		Fill:             a.Fill,
		FillColorEnabled: a.FillColorEnabled,
		FillColor:        a.FillColor,
		FillOpacity:      a.FillOpacity,
	}
}

func appearance(o toolkit.PathOptions) document.Appearance {
	return document.Appearance{
		Stroke:           o.Stroke,
		Color:            o.Color,
		Weight:           o.Weight,
		Opacity:          o.Opacity,
		Fill:             o.Fill,
		FillColorEnabled: o.FillColorEnabled,
		FillColor:        o.FillColor,
		FillOpacity:      o.FillOpacity,
	}
}
