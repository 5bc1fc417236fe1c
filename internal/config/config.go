// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/quickmap/internal/sharecodec"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	// BaseURL prefixes generated share links. Empty means the URL the
	// request came in on.
	BaseURL     string    `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Attribution string    `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Basemaps    []Basemap `yaml:"basemaps" json:"basemaps"`
	View        View      `yaml:"view" json:"view"`
	Sessions    Sessions  `yaml:"sessions" json:"-"`
	Limits      Limits    `yaml:"limits" json:"-"`
}

// Basemap is a tile source selectable with the bm parameter.
type Basemap struct {
	Name        string `yaml:"name" json:"name"`
	Tiles       string `yaml:"tiles" json:"tiles"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	ID          int    `yaml:"id" json:"id"`
}

// View is the initial map view for an empty document.
type View struct {
	Center [2]float64 `yaml:"center" json:"center"` // lon, lat
	Zoom   int        `yaml:"zoom" json:"zoom"`
}

// Sessions bounds the in-memory editing sessions.
type Sessions struct {
	Max int           `yaml:"max,omitempty"`
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// Limits protects the API from abuse.
type Limits struct {
	Rate     float64 `yaml:"rate,omitempty"`  // requests per second per client
	Burst    int64   `yaml:"burst,omitempty"` // bucket capacity
	MaxQuery int     `yaml:"max_query,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// ${VAR} references are expanded from the environment first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if len(c.Basemaps) == 0 {
		c.Basemaps = []Basemap{
			{
				ID:          int(sharecodec.BasemapStreets),
				Name:        "Streets",
				Tiles:       "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
				Attribution: "&copy; OpenStreetMap contributors",
			},
			{
				ID:          int(sharecodec.BasemapSatellite),
				Name:        "Satellite",
				Tiles:       "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
				Attribution: "Tiles &copy; Esri",
			},
		}
	}
	if c.View.Zoom <= 0 {
		c.View.Zoom = 2
	}
	if c.Sessions.Max <= 0 {
		c.Sessions.Max = 1000
	}
	if c.Sessions.TTL <= 0 {
		c.Sessions.TTL = time.Hour
	}
	if c.Limits.Rate <= 0 {
		c.Limits.Rate = 10
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 20
	}
	if c.Limits.MaxQuery <= 0 {
		c.Limits.MaxQuery = 64 << 10
	}
}

// Validate checks the basemaps and the view.
func (c *Config) Validate() error {
	seen := make(map[int]bool, len(c.Basemaps))
	for i, bm := range c.Basemaps {
		if !sharecodec.Basemap(bm.ID).Valid() {
			return fmt.Errorf("basemaps[%d]: unknown id %d", i, bm.ID)
		}
		if seen[bm.ID] {
			return fmt.Errorf("basemaps[%d]: duplicate id %d", i, bm.ID)
		}
		seen[bm.ID] = true
		if bm.Tiles == "" {
			return fmt.Errorf("basemaps[%d]: tiles URL is empty", i)
		}
	}

	if c.View.Zoom > 22 {
		return fmt.Errorf("view zoom %d is above 22", c.View.Zoom)
	}
	if lon, lat := c.View.Center[0], c.View.Center[1]; lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("view center [%v, %v] is out of range", lon, lat)
	}

	return nil
}

// Basemap returns the tile source for bm, or the first configured one when
// bm is not configured.
func (c *Config) Basemap(bm sharecodec.Basemap) Basemap {
	for _, b := range c.Basemaps {
		if b.ID == int(bm) {
			return b
		}
	}
	if len(c.Basemaps) > 0 {
		return c.Basemaps[0]
	}
	return Basemap{ID: int(bm)}
}

// Tiles returns the tile URL template and attribution for bm. The global
// attribution is appended to the basemap's own.
func (c *Config) Tiles(bm sharecodec.Basemap) (tiles, attribution string) {
	b := c.Basemap(bm)
	attribution = b.Attribution
	if c.Attribution != "" {
		if attribution != "" {
			attribution += " | "
		}
		attribution += c.Attribution
	}
	return b.Tiles, attribution
}
