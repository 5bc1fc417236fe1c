// Package session holds the live annotation document while a user edits it.
//
// Features are addressed by identifiers the session mints itself, so edits
// never depend on how a map toolkit numbers its layers. Every mutation
// touches exactly one feature, leaves the document valid, and returns an
// Edit describing the change for whatever renders the map.
package session

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/sharecodec"
)

var (
	ErrUnknownFeature     = errors.New("unknown feature")
	ErrTitleRequired      = errors.New("tooltip requires a title")
	ErrTooltipDisabled    = errors.New("permanent tooltip requires the tooltip to be enabled")
	ErrDataIndex          = errors.New("data index out of range")
	ErrNotPoint           = errors.New("radius applies to points only")
	ErrInvalidRadius      = errors.New("radius must be a finite non-negative number")
	ErrUnsupportedFeature = errors.New("unsupported geometry")
)

// FeatureID identifies a feature within a session.
type FeatureID string

// NewFeatureID mints a random identifier.
func NewFeatureID() FeatureID {
	return FeatureID(uuid.NewString())
}

type entry struct {
	feature document.Feature
	seq     uint64
}

// Session is the editable document plus the selected basemap. It is not
// safe for concurrent use.
type Session struct {
	features map[FeatureID]*entry
	basemap  sharecodec.Basemap
	seq      uint64
}

// New returns an empty session on the default basemap.
func New() *Session {
	return &Session{
		features: make(map[FeatureID]*entry),
		basemap:  sharecodec.DefaultBasemap,
	}
}

// FromState starts a session from a decoded share URL.
func FromState(state sharecodec.State) (*Session, []Edit, error) {
	s := New()
	s.basemap = state.Basemap.OrDefault()
	edits, err := s.Load(state.Document)
	return s, edits, err
}

// Len returns the number of features.
func (s *Session) Len() int {
	return len(s.features)
}

// Basemap returns the selected basemap.
func (s *Session) Basemap() sharecodec.Basemap {
	return s.basemap
}

// SetBasemap selects a basemap. Unknown ids fall back to the default.
func (s *Session) SetBasemap(bm sharecodec.Basemap) Edit {
	s.basemap = bm.OrDefault()
	return Edit{Op: OpBasemap, Basemap: s.basemap}
}

// Feature returns a copy of the feature.
func (s *Session) Feature(id FeatureID) (document.Feature, bool) {
	e, ok := s.features[id]
	if !ok {
		return document.Feature{}, false
	}
	return e.feature.Clone(), true
}

// IDs returns the feature identifiers, bottom-most first.
func (s *Session) IDs() []FeatureID {
	ids := make([]FeatureID, 0, len(s.features))
	for id := range s.features {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b FeatureID) int {
		return compareSeq(s.features[a].seq, s.features[b].seq)
	})
	return ids
}

// Document snapshots the session as an annotation document.
func (s *Session) Document() document.FeatureCollection {
	var doc document.FeatureCollection
	for _, id := range s.IDs() {
		doc.Features = append(doc.Features, s.features[id].feature.Clone())
	}
	return doc
}

// ShareURL builds the share link for the current state.
func (s *Session) ShareURL(baseURL string) (string, error) {
	return sharecodec.BuildShareURL(baseURL, s.basemap, s.Document())
}

// Add appends a feature on top and returns its add edit.
func (s *Session) Add(f document.Feature) (Edit, error) {
	if err := checkGeometry(f.Geometry); err != nil {
		return Edit{}, err
	}

	f = f.Clone()
	f.Normalize()

	id := NewFeatureID()
	s.seq++
	s.features[id] = &entry{feature: f, seq: s.seq}

	return Edit{Op: OpAdd, ID: id, Feature: f.Clone()}, nil
}

// Remove deletes a feature.
func (s *Session) Remove(id FeatureID) (Edit, error) {
	e, ok := s.features[id]
	if !ok {
		return Edit{}, unknown(id)
	}
	delete(s.features, id)
	return Edit{Op: OpRemove, ID: id, Feature: e.feature}, nil
}

// Load replaces every feature with the ones from doc. Features with
// unsupported geometry are skipped and reported in the joined error; the
// rest still load.
func (s *Session) Load(doc document.FeatureCollection) ([]Edit, error) {
	var edits []Edit
	for _, id := range s.IDs() {
		edit, _ := s.Remove(id)
		edits = append(edits, edit)
	}

	added, err := s.add(doc, nil)
	return append(edits, added...), err
}

// Import appends the features of doc that the session does not hold yet.
// Importing the same document twice adds nothing the second time, while
// repeated features inside doc are kept.
func (s *Session) Import(doc document.FeatureCollection) ([]Edit, error) {
	seen := make(map[uint64]int, len(s.features))
	for _, e := range s.features {
		seen[e.feature.Fingerprint()]++
	}
	return s.add(doc, seen)
}

func (s *Session) add(doc document.FeatureCollection, seen map[uint64]int) ([]Edit, error) {
	var edits []Edit
	var errs []error

	for i, f := range doc.Features {
		if seen != nil {
			fp := f.Fingerprint()
			if seen[fp] > 0 {
				seen[fp]--
				continue
			}
		}

		edit, err := s.Add(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %d: %w", i, err))
			continue
		}
		edits = append(edits, edit)
	}

	return edits, errors.Join(errs...)
}

// SetTitle sets the title. An empty title also turns both tooltips off.
func (s *Session) SetTitle(id FeatureID, title string) (Edit, error) {
	return s.update(id, OpLabel, func(f *document.Feature) error {
		f.Properties.Title = title
		if title == "" {
			f.Properties.Tooltip = false
			f.Properties.PermanentTooltip = false
		}
		return nil
	})
}

// SetDescription sets the popup description.
func (s *Session) SetDescription(id FeatureID, description string) (Edit, error) {
	return s.update(id, OpLabel, func(f *document.Feature) error {
		f.Properties.Description = description
		return nil
	})
}

// SetTooltip toggles the hover tooltip. Turning it off also turns the
// permanent tooltip off.
func (s *Session) SetTooltip(id FeatureID, on bool) (Edit, error) {
	return s.update(id, OpLabel, func(f *document.Feature) error {
		if on && f.Properties.Title == "" {
			return ErrTitleRequired
		}
		f.Properties.Tooltip = on
		if !on {
			f.Properties.PermanentTooltip = false
		}
		return nil
	})
}

// SetPermanentTooltip toggles the always-visible tooltip.
func (s *Session) SetPermanentTooltip(id FeatureID, on bool) (Edit, error) {
	return s.update(id, OpLabel, func(f *document.Feature) error {
		if on && !f.Properties.Tooltip {
			return ErrTooltipDisabled
		}
		f.Properties.PermanentTooltip = on
		return nil
	})
}

// AddData appends a key/value row.
func (s *Session) AddData(id FeatureID, key, value string) (Edit, error) {
	return s.update(id, OpData, func(f *document.Feature) error {
		f.Properties.Data = append(f.Properties.Data, document.DataEntry{Key: key, Value: value})
		return nil
	})
}

// UpdateData replaces the row at index.
func (s *Session) UpdateData(id FeatureID, index int, key, value string) (Edit, error) {
	return s.update(id, OpData, func(f *document.Feature) error {
		if index < 0 || index >= len(f.Properties.Data) {
			return fmt.Errorf("%w: %d", ErrDataIndex, index)
		}
		f.Properties.Data[index] = document.DataEntry{Key: key, Value: value}
		return nil
	})
}

// RemoveData deletes the row at index.
func (s *Session) RemoveData(id FeatureID, index int) (Edit, error) {
	return s.update(id, OpData, func(f *document.Feature) error {
		if index < 0 || index >= len(f.Properties.Data) {
			return fmt.Errorf("%w: %d", ErrDataIndex, index)
		}
		f.Properties.Data = slices.Delete(f.Properties.Data, index, index+1)
		return nil
	})
}

// SetStyle overrides one style property. A value equal to the default
// removes the override.
func (s *Session) SetStyle(id FeatureID, key document.StyleKey, value any) (Edit, error) {
	return s.update(id, OpStyle, func(f *document.Feature) error {
		style, err := f.Properties.Style.With(key, value)
		if err != nil {
			return err
		}
		f.Properties.Style = style
		return nil
	})
}

// ClearStyle drops one style override.
func (s *Session) ClearStyle(id FeatureID, key document.StyleKey) (Edit, error) {
	return s.update(id, OpStyle, func(f *document.Feature) error {
		style, err := f.Properties.Style.Without(key)
		if err != nil {
			return err
		}
		f.Properties.Style = style
		return nil
	})
}

// SetRadius makes a point a circle of radius metres. Zero turns it back
// into a marker.
func (s *Session) SetRadius(id FeatureID, radius float64) (Edit, error) {
	return s.update(id, OpRadius, func(f *document.Feature) error {
		if f.Geometry.Type != document.PointType {
			return ErrNotPoint
		}
		if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
		}
		f.Properties.Radius = radius
		return nil
	})
}

// SetGeometry replaces the shape, as after a vertex drag.
func (s *Session) SetGeometry(id FeatureID, g document.Geometry) (Edit, error) {
	return s.update(id, OpGeometry, func(f *document.Feature) error {
		if err := checkGeometry(g); err != nil {
			return err
		}
		f.Geometry = g.Clone()
		return nil
	})
}

// update applies fn to a copy of the feature and commits it only when fn
// succeeds, so a failed edit leaves the session untouched.
func (s *Session) update(id FeatureID, op Op, fn func(*document.Feature) error) (Edit, error) {
	e, ok := s.features[id]
	if !ok {
		return Edit{}, unknown(id)
	}

	f := e.feature.Clone()
	if err := fn(&f); err != nil {
		return Edit{}, err
	}
	f.Normalize()
	e.feature = f

	return Edit{Op: op, ID: id, Feature: f.Clone()}, nil
}

func checkGeometry(g document.Geometry) error {
	if !g.Supported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedFeature, g.Type)
	}
	return g.Validate()
}

func unknown(id FeatureID) error {
	return fmt.Errorf("%w: %s", ErrUnknownFeature, id)
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
