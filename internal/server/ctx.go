package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/woozymasta/quickmap/assets"
	"github.com/woozymasta/quickmap/internal/config"
	"github.com/woozymasta/quickmap/internal/preview"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Sessions *Store
	Limiter  *RateLimiter
	Preview  preview.Options

	minifier *minify.M
	page     *template.Template
	css      template.CSS
	js       template.JS
	favicon  []byte
}

// NewServerContext minifies the embedded assets and parses the page
// template.
func NewServerContext(cfg *config.Config) (*ServerContext, error) {
	log.Info().Int("basemaps", len(cfg.Basemaps)).Msg("Initializing server context")

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cssMin, err := m.Bytes("text/css", assets.Style)
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	jsMin, err := m.Bytes("text/javascript", assets.Script)
	if err != nil {
		return nil, fmt.Errorf("minify js: %w", err)
	}
	svgMin, err := m.Bytes("image/svg+xml", assets.Favicon)
	if err != nil {
		return nil, fmt.Errorf("minify svg: %w", err)
	}

	page, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	log.Debug().
		Int("css", len(cssMin)).
		Int("js", len(jsMin)).
		Int("favicon", len(svgMin)).
		Msg("Assets minified")

	return &ServerContext{
		Config:   cfg,
		Sessions: NewStore(cfg.Sessions.Max, cfg.Sessions.TTL),
		Limiter:  NewRateLimiter(cfg.Limits.Rate, cfg.Limits.Burst),
		Preview:  preview.DefaultOptions,
		minifier: m,
		page:     page,
		css:      template.CSS(cssMin),
		js:       template.JS(jsMin),
		favicon:  svgMin,
	}, nil
}

// render executes the page template and minifies the result.
func (s *ServerContext) render(data pageData) ([]byte, error) {
	data.CSS, data.JS = s.css, s.js

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	out, err := s.minifier.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify page: %w", err)
	}
	return out, nil
}

// baseURL is where share links point: the configured base URL or the page
// the request came in on.
func (s *ServerContext) baseURL(r *http.Request) string {
	if s.Config.BaseURL != "" {
		return s.Config.BaseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	return scheme + "://" + r.Host + "/"
}
