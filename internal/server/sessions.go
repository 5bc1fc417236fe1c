package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/quickmap/internal/adapter"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/session"
	"github.com/woozymasta/quickmap/internal/sharecodec"
)

// Edit actions accepted by HandleEditFeature.
const (
	actionSetTitle            = "set-title"
	actionSetDescription      = "set-description"
	actionSetTooltip          = "set-tooltip"
	actionSetPermanentTooltip = "set-permanent-tooltip"
	actionAddData             = "add-data"
	actionUpdateData          = "update-data"
	actionRemoveData          = "remove-data"
	actionSetStyle            = "set-style"
	actionClearStyle          = "clear-style"
	actionSetRadius           = "set-radius"
	actionSetGeometry         = "set-geometry"
)

type sessionFeature struct {
	Feature document.Feature  `json:"feature"`
	ID      session.FeatureID `json:"id"`
}

type sessionResponse struct {
	ID       string             `json:"id"`
	Warning  string             `json:"warning,omitempty"`
	Errors   []string           `json:"errors,omitempty"`
	Features []sessionFeature   `json:"features"`
	Basemap  sharecodec.Basemap `json:"basemap"`
}

// editRequest is one mutation of one feature. Key is the style key for
// style actions and the data key for data actions; Value is the new value.
type editRequest struct {
	Action string          `json:"action"`
	Key    string          `json:"key,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Index  int             `json:"index,omitempty"`
}

type basemapRequest struct {
	Basemap sharecodec.Basemap `json:"basemap"`
}

// mapResponse is the rendered side of a workspace: the layers as the map
// itself exports them, and the active tile source.
type mapResponse struct {
	Layers      *geojson.FeatureCollection `json:"layers"`
	Tiles       string                     `json:"tiles"`
	Attribution string                     `json:"attribution,omitempty"`
}

func snapshot(id string, s *session.Session) sessionResponse {
	resp := sessionResponse{ID: id, Basemap: s.Basemap(), Features: []sessionFeature{}}
	for _, fid := range s.IDs() {
		f, _ := s.Feature(fid)
		resp.Features = append(resp.Features, sessionFeature{ID: fid, Feature: f})
	}
	return resp
}

// withSession resolves the {sid} path variable and runs fn under the
// workspace lock. Unknown sessions answer 404.
func (s *ServerContext) withSession(w http.ResponseWriter, r *http.Request, fn func(id string, ws *Workspace) error) {
	id := mux.Vars(r)["sid"]
	found, err := s.Sessions.With(id, func(ws *Workspace) error {
		return fn(id, ws)
	})
	if !found {
		writeError(w, NewAPIError(ErrNotFound.Code, "Session not found", http.StatusNotFound))
		return
	}
	if err != nil {
		writeError(w, err)
	}
}

// HandleCreateSession opens a session, optionally seeded from the bm and gj
// query parameters.
func (s *ServerContext) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, warning := decodeQuery(r)

	sess, edits, loadErr := session.FromState(state)
	id := s.Sessions.Create(newWorkspace(sess, edits, s.Config.Tiles))

	resp := snapshot(id, sess)
	resp.Warning = warning
	resp.Errors = splitErrors(loadErr)

	log.Info().
		Str("session", id).
		Int("features", sess.Len()).
		Int("open", s.Sessions.Len()).
		Msg("Session created")

	writeJSON(w, http.StatusCreated, resp)
}

// HandleGetSession returns every feature of a session.
func (s *ServerContext) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(id string, ws *Workspace) error {
		writeJSON(w, http.StatusOK, snapshot(id, ws.Session))
		return nil
	})
}

// HandleSessionMap returns the map layers the session is rendered to.
func (s *ServerContext) HandleSessionMap(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ string, ws *Workspace) error {
		tiles, attribution := ws.Map.Basemap()
		writeJSON(w, http.StatusOK, mapResponse{
			Layers:      ws.Map.GeoJSON(),
			Tiles:       tiles,
			Attribution: attribution,
		})
		return nil
	})
}

// HandleDeleteSession closes a session.
func (s *ServerContext) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(mux.Vars(r)["sid"]) {
		writeError(w, NewAPIError(ErrNotFound.Code, "Session not found", http.StatusNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddFeature adds a feature given as a GeoJSON Feature object.
func (s *ServerContext) HandleAddFeature(w http.ResponseWriter, r *http.Request) {
	var f document.Feature
	if err := decodeBody(w, r, &f); err != nil {
		writeError(w, err)
		return
	}

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edit, err := ws.Session.Add(f)
		if err != nil {
			return editError(err)
		}
		ws.Apply(edit)
		writeJSON(w, http.StatusCreated, edit)
		return nil
	})
}

// HandleDrawFeature puts a shape on the session map the way a user drawing
// it would. The session reads it back from the layer through the map's
// create event.
func (s *ServerContext) HandleDrawFeature(w http.ResponseWriter, r *http.Request) {
	var f document.Feature
	if err := decodeBody(w, r, &f); err != nil {
		writeError(w, err)
		return
	}
	layer, err := adapter.LayerFromFeature(f)
	if err != nil {
		writeError(w, editError(err))
		return
	}

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edit, err := ws.Draw(layer)
		if err != nil {
			return editError(err)
		}
		writeJSON(w, http.StatusCreated, edit)
		return nil
	})
}

// HandleImportFeatures appends the features of a posted document that the
// session does not hold yet.
func (s *ServerContext) HandleImportFeatures(w http.ResponseWriter, r *http.Request) {
	var doc document.FeatureCollection
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, err)
		return
	}
	doc.Normalize()

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edits, err := ws.Session.Import(doc)
		ws.Apply(edits...)
		writeJSON(w, http.StatusOK, struct {
			Edits  []session.Edit `json:"edits"`
			Errors []string       `json:"errors,omitempty"`
		}{Edits: append([]session.Edit{}, edits...), Errors: splitErrors(err)})
		return nil
	})
}

// HandleEditFeature applies one editRequest.
func (s *ServerContext) HandleEditFeature(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	fid := session.FeatureID(mux.Vars(r)["fid"])

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edit, err := applyEdit(ws.Session, fid, req)
		if err != nil {
			return editError(err)
		}
		ws.Apply(edit)
		writeJSON(w, http.StatusOK, edit)
		return nil
	})
}

// HandleRemoveFeature deletes a feature.
func (s *ServerContext) HandleRemoveFeature(w http.ResponseWriter, r *http.Request) {
	fid := session.FeatureID(mux.Vars(r)["fid"])

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edit, err := ws.Session.Remove(fid)
		if err != nil {
			return editError(err)
		}
		ws.Apply(edit)
		writeJSON(w, http.StatusOK, edit)
		return nil
	})
}

// HandleSetBasemap switches the session basemap.
func (s *ServerContext) HandleSetBasemap(w http.ResponseWriter, r *http.Request) {
	var req basemapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.withSession(w, r, func(_ string, ws *Workspace) error {
		edit := ws.Session.SetBasemap(req.Basemap)
		ws.Apply(edit)
		writeJSON(w, http.StatusOK, edit)
		return nil
	})
}

// HandleSessionShare builds the share URL of a session.
func (s *ServerContext) HandleSessionShare(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ string, ws *Workspace) error {
		link, err := ws.Session.ShareURL(s.baseURL(r))
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s.shareResponse(link))
		return nil
	})
}

func applyEdit(sess *session.Session, id session.FeatureID, req editRequest) (session.Edit, error) {
	switch req.Action {
	case actionSetTitle:
		var v string
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		return sess.SetTitle(id, v)

	case actionSetDescription:
		var v string
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		return sess.SetDescription(id, v)

	case actionSetTooltip, actionSetPermanentTooltip:
		var v bool
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		if req.Action == actionSetTooltip {
			return sess.SetTooltip(id, v)
		}
		return sess.SetPermanentTooltip(id, v)

	case actionAddData, actionUpdateData:
		var v string
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		if req.Action == actionAddData {
			return sess.AddData(id, req.Key, v)
		}
		return sess.UpdateData(id, req.Index, req.Key, v)

	case actionRemoveData:
		return sess.RemoveData(id, req.Index)

	case actionSetStyle:
		var v any
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		return sess.SetStyle(id, document.StyleKey(req.Key), v)

	case actionClearStyle:
		return sess.ClearStyle(id, document.StyleKey(req.Key))

	case actionSetRadius:
		var v float64
		if err := decodeValue(req, &v); err != nil {
			return session.Edit{}, err
		}
		return sess.SetRadius(id, v)

	case actionSetGeometry:
		var g document.Geometry
		if err := decodeValue(req, &g); err != nil {
			return session.Edit{}, err
		}
		return sess.SetGeometry(id, g)
	}

	return session.Edit{}, fmt.Errorf("unknown action %q", req.Action)
}

func decodeValue(req editRequest, v any) error {
	if len(req.Value) == 0 {
		return fmt.Errorf("action %s needs a value", req.Action)
	}
	if err := json.Unmarshal(req.Value, v); err != nil {
		return fmt.Errorf("action %s: %w", req.Action, err)
	}
	return nil
}
