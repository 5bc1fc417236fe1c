// Package document defines the annotation document: the toolkit-independent
// form of every drawn feature with its metadata, and its JSON encoding.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// ErrNotCollection is returned by Parse for JSON that is not a
// FeatureCollection object.
var ErrNotCollection = errors.New("not a FeatureCollection")

const (
	collectionType = "FeatureCollection"
	featureType    = "Feature"
)

// FeatureCollection is the annotation document. Features are ordered from
// the bottom-most to the top-most.
type FeatureCollection struct {
	Features []Feature `yaml:"features"`
}

// Feature is a single annotated shape.
type Feature struct {
	Properties Properties `yaml:"properties"`
	Geometry   Geometry   `yaml:"geometry"`
}

// Properties is the metadata attached to a feature.
type Properties struct {
	Style            *Style      `yaml:"style,omitempty"`
	Title            string      `yaml:"title,omitempty"`
	Description      string      `yaml:"description,omitempty"`
	Data             []DataEntry `yaml:"data,omitempty"`
	Radius           float64     `yaml:"radius,omitempty"`
	Tooltip          bool        `yaml:"tooltip,omitempty"`
	PermanentTooltip bool        `yaml:"permanentTooltip,omitempty"`
}

// propertiesJSON fixes the key order of serialized properties.
type propertiesJSON struct {
	Title            string      `json:"title,omitempty"`
	Description      string      `json:"description,omitempty"`
	Tooltip          bool        `json:"tooltip,omitempty"`
	PermanentTooltip bool        `json:"permanentTooltip,omitempty"`
	Style            *Style      `json:"style,omitempty"`
	Data             []DataEntry `json:"data,omitempty"`
	Radius           float64     `json:"radius,omitempty"`
}

// DataEntry is one row of the user-defined key/value table. It is encoded
// as a two element array.
type DataEntry struct {
	Key   string
	Value string
}

// MarshalJSON writes ["key","value"].
func (d DataEntry) MarshalJSON() ([]byte, error) {
	return encode([2]string{d.Key, d.Value})
}

// UnmarshalJSON reads ["key","value"].
func (d *DataEntry) UnmarshalJSON(b []byte) error {
	var pair [2]string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("data entry: %w", err)
	}
	d.Key, d.Value = pair[0], pair[1]
	return nil
}

// MarshalYAML writes a two element sequence.
func (d DataEntry) MarshalYAML() (any, error) {
	return []string{d.Key, d.Value}, nil
}

// MarshalJSON writes the properties in a fixed key order.
func (p Properties) MarshalJSON() ([]byte, error) {
	return encode(p.fields())
}

func (p Properties) fields() propertiesJSON {
	return propertiesJSON{
		Title:            p.Title,
		Description:      p.Description,
		Tooltip:          p.Tooltip,
		PermanentTooltip: p.PermanentTooltip,
		Style:            p.Style,
		Data:             p.Data,
		Radius:           p.Radius,
	}
}

// UnmarshalJSON reads a properties object; unknown keys are dropped.
func (p *Properties) UnmarshalJSON(b []byte) error {
	var v propertiesJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Properties{
		Title:            v.Title,
		Description:      v.Description,
		Tooltip:          v.Tooltip,
		PermanentTooltip: v.PermanentTooltip,
		Style:            v.Style,
		Data:             v.Data,
		Radius:           v.Radius,
	}
	return nil
}

type featureJSON struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   Geometry   `json:"geometry"`
}

// MarshalJSON writes a GeoJSON Feature.
func (f Feature) MarshalJSON() ([]byte, error) {
	return encode(featureJSON{Type: featureType, Properties: f.Properties, Geometry: f.Geometry})
}

// UnmarshalJSON reads a GeoJSON Feature.
func (f *Feature) UnmarshalJSON(b []byte) error {
	var v featureJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Type != "" && v.Type != featureType {
		return fmt.Errorf("unexpected feature type %q", v.Type)
	}
	f.Properties, f.Geometry = v.Properties, v.Geometry
	return nil
}

type collectionJSON struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// MarshalJSON writes a GeoJSON FeatureCollection.
func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []Feature{}
	}
	return encode(collectionJSON{Type: collectionType, Features: features})
}

// UnmarshalJSON reads a GeoJSON FeatureCollection.
func (fc *FeatureCollection) UnmarshalJSON(b []byte) error {
	var v collectionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Type != collectionType {
		return fmt.Errorf("%w: type %q", ErrNotCollection, v.Type)
	}
	fc.Features = v.Features
	return nil
}

// Marshal serializes the document as compact JSON. HTML characters are not
// escaped; control characters always are.
func Marshal(fc FeatureCollection) ([]byte, error) {
	return encode(fc)
}

// Parse reads a serialized document and normalizes it.
func Parse(data []byte) (FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return FeatureCollection{}, err
	}
	fc.Normalize()
	return fc, nil
}

// Len returns the number of features.
func (fc FeatureCollection) Len() int {
	return len(fc.Features)
}

// Normalize enforces the document invariants on every feature.
func (fc *FeatureCollection) Normalize() {
	if len(fc.Features) == 0 {
		fc.Features = nil
	}
	for i := range fc.Features {
		fc.Features[i].Normalize()
	}
}

// Clone returns a deep copy.
func (fc FeatureCollection) Clone() FeatureCollection {
	if fc.Features == nil {
		return FeatureCollection{}
	}
	c := FeatureCollection{Features: make([]Feature, len(fc.Features))}
	for i, f := range fc.Features {
		c.Features[i] = f.Clone()
	}
	return c
}

// Normalize enforces the feature invariants: tooltips need a title,
// permanent tooltips need a tooltip, styles are sparse, and only points
// carry a radius.
func (f *Feature) Normalize() {
	p := &f.Properties
	if p.Title == "" {
		p.Tooltip = false
	}
	if !p.Tooltip {
		p.PermanentTooltip = false
	}
	p.Style = p.Style.Normalize()
	if len(p.Data) == 0 {
		p.Data = nil
	}
	if f.Geometry.Type != PointType || p.Radius < 0 || math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) {
		p.Radius = 0
	}
	f.Geometry.normalize()
}

// IsCircle reports whether the feature is a circle: a point with a radius.
func (f Feature) IsCircle() bool {
	return f.Geometry.Type == PointType && f.Properties.Radius > 0
}

// Clone returns a deep copy.
func (f Feature) Clone() Feature {
	c := f
	c.Properties.Style = f.Properties.Style.Clone()
	if f.Properties.Data != nil {
		c.Properties.Data = append([]DataEntry(nil), f.Properties.Data...)
	}
	c.Geometry = f.Geometry.Clone()
	return c
}

// Fingerprint hashes the canonical encoding of the normalized feature. Equal
// features share a fingerprint.
func (f Feature) Fingerprint() uint64 {
	c := f.Clone()
	c.Normalize()
	b, err := encode(c)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

// encode marshals v without HTML escaping and without the trailing newline
// json.Encoder appends.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
