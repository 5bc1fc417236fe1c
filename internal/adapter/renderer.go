package adapter

import (
	"fmt"

	"github.com/woozymasta/quickmap/internal/session"
	"github.com/woozymasta/quickmap/internal/sharecodec"
	"github.com/woozymasta/quickmap/internal/toolkit"
)

// TileSource resolves a basemap to its tile URL template and attribution.
type TileSource func(bm sharecodec.Basemap) (tiles, attribution string)

// Renderer keeps a map in step with a session by applying its edits.
// Layers are found through the session feature ID stored as the layer tag.
type Renderer struct {
	Map   Map
	Tiles TileSource
}

// Apply renders one edit.
func (r *Renderer) Apply(e session.Edit) error {
	switch {
	case e.Op == session.OpAdd:
		l, err := LayerFromFeature(e.Feature)
		if err != nil {
			return err
		}
		l.Tag = string(e.ID)
		r.Map.AddLayer(l)

	case e.Op == session.OpRemove:
		l, ok := r.Map.LayerByTag(string(e.ID))
		if !ok {
			return fmt.Errorf("no layer for feature %s", e.ID)
		}
		r.Map.RemoveLayer(l.ID)

	case e.Op == session.OpBasemap:
		if r.Tiles != nil {
			r.Map.SetBasemap(r.Tiles(e.Basemap))
		}

	case e.IsUpdate():
		l, ok := r.Map.LayerByTag(string(e.ID))
		if !ok {
			return fmt.Errorf("no layer for feature %s", e.ID)
		}
		next, err := LayerFromFeature(e.Feature)
		if err != nil {
			return err
		}
		update(l, next)

	default:
		return fmt.Errorf("unknown edit op %q", e.Op)
	}

	return nil
}

// ApplyAll renders edits in order and stops at the first failure.
func (r *Renderer) ApplyAll(edits []session.Edit) error {
	for _, e := range edits {
		if err := r.Apply(e); err != nil {
			return fmt.Errorf("%s %s: %w", e.Op, e.ID, err)
		}
	}
	return nil
}

// update swaps the rendered state of l in place, keeping its identity.
func update(l, next *toolkit.Layer) {
	l.Feature = next.Feature
	l.Options = next.Options
	l.Kind = next.Kind
	l.Radius = next.Radius
}

// Attach registers features the user draws on m with s and tags the new
// layers with the minted feature IDs. Drawn layers the session rejects are
// removed from the map again and reported to onError, which may be nil.
func Attach(s *session.Session, m Map, onError func(error)) {
	m.OnCreate(func(l *toolkit.Layer) {
		f, err := FeatureFromLayer(l)
		if err == nil {
			var edit session.Edit
			edit, err = s.Add(f)
			if err == nil {
				m.SetTag(l.ID, string(edit.ID))
				return
			}
		}

		m.RemoveLayer(l.ID)
		if onError != nil {
			onError(err)
		}
	})
}
