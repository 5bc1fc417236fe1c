package server

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/quickmap/internal/adapter"
	"github.com/woozymasta/quickmap/internal/session"
	"github.com/woozymasta/quickmap/internal/toolkit"
)

// Workspace is a stored editing session together with the map its edits
// are rendered to.
type Workspace struct {
	Session *session.Session
	Map     *toolkit.Map

	renderer *adapter.Renderer
	drawErr  error
}

func newWorkspace(sess *session.Session, edits []session.Edit, tiles adapter.TileSource) *Workspace {
	m := toolkit.New()
	m.SetBasemap(tiles(sess.Basemap()))

	ws := &Workspace{
		Session:  sess,
		Map:      m,
		renderer: &adapter.Renderer{Map: m, Tiles: tiles},
	}
	adapter.Attach(sess, m, func(err error) { ws.drawErr = err })
	ws.Apply(edits...)
	return ws
}

// Apply renders edits onto the map. A map that falls out of step with the
// session is redrawn from scratch.
func (ws *Workspace) Apply(edits ...session.Edit) {
	err := ws.renderer.ApplyAll(edits)
	if err == nil {
		return
	}

	log.Warn().Err(err).Int("features", ws.Session.Len()).Msg("Map out of step with session, redrawing")
	for _, l := range ws.Map.Layers() {
		ws.Map.RemoveLayer(l.ID)
	}
	for _, id := range ws.Session.IDs() {
		f, _ := ws.Session.Feature(id)
		if err := ws.renderer.Apply(session.Edit{Op: session.OpAdd, ID: id, Feature: f}); err != nil {
			log.Error().Err(err).Str("feature", string(id)).Msg("Failed to redraw feature")
		}
	}
}

// Draw puts a layer on the map as if the user had drawn it. The session
// picks it up through the map's create event.
func (ws *Workspace) Draw(l *toolkit.Layer) (session.Edit, error) {
	ws.drawErr = nil
	ws.Map.Draw(l)
	if ws.drawErr != nil {
		return session.Edit{}, ws.drawErr
	}

	id := session.FeatureID(l.Tag)
	f, ok := ws.Session.Feature(id)
	if !ok {
		return session.Edit{}, errors.New("drawn layer was not registered")
	}
	return session.Edit{Op: session.OpAdd, ID: id, Feature: f}, nil
}
