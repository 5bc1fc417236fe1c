// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/quickmap/internal/adapter"
	"github.com/woozymasta/quickmap/internal/config"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/preview"
	"github.com/woozymasta/quickmap/internal/sharecodec"
	"github.com/woozymasta/quickmap/internal/toolkit"
)

const (
	maxBodySize    = 1 << 20
	minPreviewSide = 64
	maxPreviewSide = 1024
)

type pageData struct {
	Basemap       config.Basemap
	CSS           template.CSS
	JS            template.JS
	Warning       string
	Attribution   string
	ShareURL      string
	PreviewURL    string
	ExportURL     string
	Features      []featureView
	PreviewWidth  int
	PreviewHeight int
}

type featureView struct {
	Kind        string
	Title       string
	Description string
	Color       string
	Data        []document.DataEntry
	Index       int
	Radius      float64
}

// documentResponse is the decoded state of a share query.
type documentResponse struct {
	Document document.FeatureCollection `json:"document"`
	Warning  string                     `json:"warning,omitempty"`
	Basemap  sharecodec.Basemap         `json:"basemap"`
}

type shareRequest struct {
	Document document.FeatureCollection `json:"document"`
	Basemap  sharecodec.Basemap         `json:"basemap"`
}

type shareResponse struct {
	URL     string `json:"url"`
	Warning string `json:"warning,omitempty"`
	Length  int    `json:"length"`
}

type importResponse struct {
	Document document.FeatureCollection `json:"document"`
	Errors   []string                   `json:"errors,omitempty"`
	Report   adapter.Report             `json:"report"`
}

// decodeQuery reads the share state and logs what could not be decoded.
func decodeQuery(r *http.Request) (sharecodec.State, string) {
	state, err := sharecodec.ParseQuery(r.URL.RawQuery)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Share state decode failed")
		return state, err.Error()
	}
	return state, ""
}

// HandleIndex renders the share page for the bm and gj parameters.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	state, warning := decodeQuery(r)

	shareURL, err := sharecodec.BuildShareURL(s.baseURL(r), state.Basemap, state.Document)
	if err != nil {
		writeError(w, err)
		return
	}
	query := queryOf(shareURL)

	bm := s.Config.Basemap(state.Basemap)
	_, attribution := s.Config.Tiles(state.Basemap)
	data := pageData{
		Basemap:       bm,
		Warning:       warning,
		Attribution:   attribution,
		ShareURL:      shareURL,
		PreviewURL:    "/preview.webp?" + query,
		ExportURL:     "/api/export?" + query,
		PreviewWidth:  s.Preview.Width,
		PreviewHeight: s.Preview.Height,
	}
	for i, f := range state.Document.Features {
		data.Features = append(data.Features, viewFeature(i+1, f))
	}

	page, err := s.render(data)
	if err != nil {
		writeError(w, err)
		return
	}

	etag := fmt.Sprintf(`"%x"`, xxhash.Sum64(page))
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(page)
}

func viewFeature(index int, f document.Feature) featureView {
	kind := string(f.Geometry.Type)
	if f.IsCircle() {
		kind = "Circle"
	}
	return featureView{
		Index:       index,
		Kind:        kind,
		Title:       f.Properties.Title,
		Description: f.Properties.Description,
		Data:        f.Properties.Data,
		Radius:      f.Properties.Radius,
		Color:       f.Properties.Style.Resolve().Color,
	}
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.favicon)
}

// HandleBasemaps lists the configured basemaps.
func (s *ServerContext) HandleBasemaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config.Basemaps)
}

// HandleDocument decodes the share query into JSON. A broken gj is not an
// error: the response carries an empty document and a warning.
func (s *ServerContext) HandleDocument(w http.ResponseWriter, r *http.Request) {
	state, warning := decodeQuery(r)
	writeJSON(w, http.StatusOK, documentResponse{
		Basemap:  state.Basemap,
		Document: state.Document,
		Warning:  warning,
	})
}

// HandleExport serves the decoded document as a GeoJSON download.
func (s *ServerContext) HandleExport(w http.ResponseWriter, r *http.Request) {
	state, _ := decodeQuery(r)

	body, err := document.Marshal(state.Document)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="quickmap.geojson"`)
	_, _ = w.Write(body)
}

// HandleImport normalizes a pasted document. Features that can not be
// drawn are dropped and listed in errors.
func (s *ServerContext) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, invalid(err))
		return
	}

	doc, err := document.Parse(body)
	if err != nil {
		writeError(w, invalid(err))
		return
	}

	m := toolkit.New()
	report, importErr := adapter.FromDocument(doc, m)
	imported, exportErr := adapter.ToDocument(m)

	resp := importResponse{Document: imported, Report: report}
	resp.Errors = append(splitErrors(importErr), splitErrors(exportErr)...)

	log.Info().
		Int("added", report.Added).
		Int("duplicates", report.Duplicates).
		Int("skipped", report.Skipped).
		Msg("Document imported")

	writeJSON(w, http.StatusOK, resp)
}

// HandleShare builds a share URL from a posted document.
func (s *ServerContext) HandleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Document.Normalize()

	link, err := sharecodec.BuildShareURL(s.baseURL(r), req.Basemap.OrDefault(), req.Document)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.shareResponse(link))
}

func (s *ServerContext) shareResponse(link string) shareResponse {
	resp := shareResponse{URL: link, Length: len(link)}
	if limit := s.Config.Limits.MaxQuery; limit > 0 && len(link) > limit {
		resp.Warning = fmt.Sprintf("share URL is %d bytes, links longer than %d are rejected", len(link), limit)
	}
	return resp
}

// HandlePreview renders the decoded document as a WebP thumbnail. The
// optional w and h parameters pick the size.
func (s *ServerContext) HandlePreview(w http.ResponseWriter, r *http.Request) {
	state, _ := decodeQuery(r)

	opts := s.Preview
	q := r.URL.Query()
	opts.Width = previewSide(q.Get("w"), opts.Width)
	opts.Height = previewSide(q.Get("h"), opts.Height)

	var buf bytes.Buffer
	if err := preview.Encode(&buf, state.Document, opts); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}

func previewSide(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return min(max(n, minPreviewSide), maxPreviewSide)
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return invalid(err)
	}
	return nil
}

// splitErrors flattens an errors.Join result.
func splitErrors(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// queryOf returns the raw query of a share URL.
func queryOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.RawQuery
}
