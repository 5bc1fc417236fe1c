package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
)

// Handler wires every route and the middleware chain:
// logging, panic recovery, gzip, query length limit, and rate limiting on
// the API and preview routes.
func (s *ServerContext) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(LimitQuery(s.Config.Limits.MaxQuery))

	r.HandleFunc("/", s.HandleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/favicon.svg", s.HandleFavicon).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/preview.webp", s.Limiter.Middleware(http.HandlerFunc(s.HandlePreview))).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.Limiter.Middleware)
	api.HandleFunc("/basemaps", s.HandleBasemaps).Methods(http.MethodGet)
	api.HandleFunc("/document", s.HandleDocument).Methods(http.MethodGet)
	api.HandleFunc("/export", s.HandleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", s.HandleImport).Methods(http.MethodPost)
	api.HandleFunc("/share", s.HandleShare).Methods(http.MethodPost)

	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", s.HandleCreateSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{sid}", s.HandleGetSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{sid}", s.HandleDeleteSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{sid}/basemap", s.HandleSetBasemap).Methods(http.MethodPut)
	sessions.HandleFunc("/{sid}/map", s.HandleSessionMap).Methods(http.MethodGet)
	sessions.HandleFunc("/{sid}/share", s.HandleSessionShare).Methods(http.MethodGet)
	sessions.HandleFunc("/{sid}/features", s.HandleAddFeature).Methods(http.MethodPost)
	sessions.HandleFunc("/{sid}/draw", s.HandleDrawFeature).Methods(http.MethodPost)
	sessions.HandleFunc("/{sid}/import", s.HandleImportFeatures).Methods(http.MethodPost)
	sessions.HandleFunc("/{sid}/features/{fid}", s.HandleEditFeature).Methods(http.MethodPatch)
	sessions.HandleFunc("/{sid}/features/{fid}", s.HandleRemoveFeature).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, NewAPIError("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed))
	})

	return RequestLogger(Recover(gzhttp.GzipHandler(r)))
}
