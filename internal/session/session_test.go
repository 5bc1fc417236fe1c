package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/sharecodec"
)

func point() document.Feature {
	return document.Feature{Geometry: document.NewPoint(-123.17, 49.26)}
}

func line() document.Feature {
	return document.Feature{Geometry: document.NewLineString(orb.LineString{{0, 0}, {1, 1}})}
}

func mustAdd(t *testing.T, s *Session, f document.Feature) FeatureID {
	t.Helper()
	edit, err := s.Add(f)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if edit.Op != OpAdd || edit.ID == "" {
		t.Fatalf("Add() edit = %+v", edit)
	}
	return edit.ID
}

func TestAddRemoveKeepsOrder(t *testing.T) {
	s := New()
	a := mustAdd(t, s, point())
	b := mustAdd(t, s, line())
	c := mustAdd(t, s, point())

	if _, err := s.Remove(b); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Remove(b); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("Remove() twice error = %v, want ErrUnknownFeature", err)
	}

	if ids := s.IDs(); !reflect.DeepEqual(ids, []FeatureID{a, c}) {
		t.Errorf("IDs() = %v, want [%s %s]", ids, a, c)
	}
	if s.Document().Len() != 2 {
		t.Errorf("Document().Len() = %d, want 2", s.Document().Len())
	}
}

func TestAddRejectsBadGeometry(t *testing.T) {
	s := New()
	tests := []struct {
		name string
		f    document.Feature
	}{
		{"Unsupported", document.Feature{Geometry: document.Geometry{Type: "MultiPoint"}}},
		{"Short Line", document.Feature{Geometry: document.NewLineString(orb.LineString{{0, 0}})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Add(tt.f); err == nil {
				t.Error("Add() accepted the feature")
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSetTitleClearsTooltips(t *testing.T) {
	s := New()
	id := mustAdd(t, s, point())

	if _, err := s.SetTooltip(id, true); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("SetTooltip() without title error = %v", err)
	}
	if _, err := s.SetTitle(id, "Harbour"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetPermanentTooltip(id, true); !errors.Is(err, ErrTooltipDisabled) {
		t.Fatalf("SetPermanentTooltip() without tooltip error = %v", err)
	}
	if _, err := s.SetTooltip(id, true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetPermanentTooltip(id, true); err != nil {
		t.Fatal(err)
	}

	edit, err := s.SetTitle(id, "")
	if err != nil {
		t.Fatal(err)
	}
	p := edit.Feature.Properties
	if p.Tooltip || p.PermanentTooltip {
		t.Errorf("Properties after clearing title = %+v", p)
	}
}

func TestSetTooltipOffClearsPermanent(t *testing.T) {
	s := New()
	f := point()
	f.Properties = document.Properties{Title: "t", Tooltip: true, PermanentTooltip: true}
	id := mustAdd(t, s, f)

	edit, err := s.SetTooltip(id, false)
	if err != nil {
		t.Fatal(err)
	}
	if edit.Op != OpLabel || edit.Feature.Properties.PermanentTooltip {
		t.Errorf("SetTooltip(false) edit = %+v", edit)
	}
}

func TestData(t *testing.T) {
	s := New()
	id := mustAdd(t, s, point())

	s.AddData(id, "depth", "12m")
	s.AddData(id, "bottom", "sand")
	if _, err := s.UpdateData(id, 1, "bottom", "rock"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateData(id, 2, "x", "y"); !errors.Is(err, ErrDataIndex) {
		t.Errorf("UpdateData(2) error = %v", err)
	}
	if _, err := s.RemoveData(id, -1); !errors.Is(err, ErrDataIndex) {
		t.Errorf("RemoveData(-1) error = %v", err)
	}

	edit, err := s.RemoveData(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []document.DataEntry{{Key: "bottom", Value: "rock"}}
	if !reflect.DeepEqual(edit.Feature.Properties.Data, want) {
		t.Errorf("Data = %v, want %v", edit.Feature.Properties.Data, want)
	}

	edit, _ = s.RemoveData(id, 0)
	if edit.Feature.Properties.Data != nil {
		t.Errorf("Data after removing every row = %v, want nil", edit.Feature.Properties.Data)
	}
}

func TestStyleIsSparse(t *testing.T) {
	s := New()
	id := mustAdd(t, s, line())

	edit, err := s.SetStyle(id, document.StyleColor, "#3388ff")
	if err != nil {
		t.Fatal(err)
	}
	if edit.Feature.Properties.Style != nil {
		t.Errorf("Default color left style %+v", edit.Feature.Properties.Style)
	}

	edit, _ = s.SetStyle(id, document.StyleColor, "#FF0000")
	if c, ok := edit.Feature.Properties.Style.Get(document.StyleColor); !ok || c != "#ff0000" {
		t.Errorf("Style color = %v, %v", c, ok)
	}

	if _, err := s.SetStyle(id, document.StyleWeight, "heavy"); !errors.Is(err, document.ErrStyleValue) {
		t.Errorf("SetStyle(weight, string) error = %v", err)
	}
	f, _ := s.Feature(id)
	if f.Properties.Style.Resolve().Weight != document.DefaultAppearance.Weight {
		t.Error("Failed edit changed the feature")
	}

	edit, _ = s.ClearStyle(id, document.StyleColor)
	if edit.Feature.Properties.Style != nil {
		t.Errorf("Style after clearing = %+v, want nil", edit.Feature.Properties.Style)
	}
}

func TestSetRadius(t *testing.T) {
	s := New()
	p := mustAdd(t, s, point())
	l := mustAdd(t, s, line())

	if _, err := s.SetRadius(l, 10); !errors.Is(err, ErrNotPoint) {
		t.Errorf("SetRadius(line) error = %v", err)
	}
	if _, err := s.SetRadius(p, -1); !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("SetRadius(-1) error = %v", err)
	}
	edit, err := s.SetRadius(p, 500)
	if err != nil || !edit.Feature.IsCircle() {
		t.Errorf("SetRadius(500) = %+v, %v", edit, err)
	}
}

func TestSetGeometryDropsRadius(t *testing.T) {
	s := New()
	f := point()
	f.Properties.Radius = 100
	id := mustAdd(t, s, f)

	edit, err := s.SetGeometry(id, document.NewLineString(orb.LineString{{0, 0}, {2, 2}}))
	if err != nil {
		t.Fatal(err)
	}
	if edit.Op != OpGeometry || edit.Feature.Properties.Radius != 0 {
		t.Errorf("SetGeometry() edit = %+v", edit)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	doc := document.FeatureCollection{Features: []document.Feature{point(), point(), line()}}

	s := New()
	edits, err := s.Import(doc)
	if err != nil || len(edits) != 3 {
		t.Fatalf("Import() = %d edits, %v", len(edits), err)
	}
	edits, err = s.Import(doc)
	if err != nil || len(edits) != 0 {
		t.Errorf("Second Import() = %d edits, %v", len(edits), err)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestLoadReplacesAndSkipsUnsupported(t *testing.T) {
	s := New()
	old := mustAdd(t, s, point())

	doc := document.FeatureCollection{Features: []document.Feature{
		line(),
		{Geometry: document.Geometry{Type: "MultiPoint"}},
	}}
	edits, err := s.Load(doc)
	if !errors.Is(err, ErrUnsupportedFeature) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFeature", err)
	}
	if len(edits) != 2 || edits[0].Op != OpRemove || edits[0].ID != old || edits[1].Op != OpAdd {
		t.Errorf("Load() edits = %+v", edits)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestFromStateAndShareURL(t *testing.T) {
	doc := document.FeatureCollection{Features: []document.Feature{line()}}
	s, _, err := FromState(sharecodec.State{Basemap: sharecodec.BasemapSatellite, Document: doc})
	if err != nil {
		t.Fatal(err)
	}

	link, err := s.ShareURL("https://map.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	state, err := sharecodec.ParseShareURL(link)
	if err != nil {
		t.Fatal(err)
	}
	if state.Basemap != sharecodec.BasemapSatellite || !reflect.DeepEqual(state.Document, doc) {
		t.Errorf("ParseShareURL() = %+v", state)
	}

	if edit := s.SetBasemap(9); edit.Basemap != sharecodec.BasemapStreets || s.Basemap() != sharecodec.BasemapStreets {
		t.Errorf("SetBasemap(9) = %+v", edit)
	}
}

func TestUnknownFeature(t *testing.T) {
	s := New()
	if _, err := s.SetTitle("missing", "x"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("SetTitle() error = %v", err)
	}
	if _, ok := s.Feature("missing"); ok {
		t.Error("Feature() found a missing feature")
	}
}
