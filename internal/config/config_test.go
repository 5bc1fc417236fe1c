package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/woozymasta/quickmap/internal/sharecodec"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TILE_KEY", "secret")
	path := writeConfig(t, `
base_url: https://map.example.com/
attribution: Example
basemaps:
  - id: 2
    name: Aerial
    tiles: https://tiles.example.com/{z}/{x}/{y}.jpg?key=${TILE_KEY}
view:
  center: [-123.1, 49.2]
  zoom: 11
sessions:
  ttl: 30m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "https://map.example.com/" || cfg.View.Zoom != 11 || cfg.View.Center[0] != -123.1 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Sessions.TTL != 30*time.Minute || cfg.Sessions.Max != 1000 {
		t.Errorf("Sessions = %+v", cfg.Sessions)
	}

	tiles, attr := cfg.Tiles(sharecodec.BasemapSatellite)
	if tiles != "https://tiles.example.com/{z}/{x}/{y}.jpg?key=secret" || attr != "Example" {
		t.Errorf("Tiles() = %q, %q", tiles, attr)
	}

	// only satellite is configured, streets falls back to it
	if b := cfg.Basemap(sharecodec.BasemapStreets); b.ID != 2 {
		t.Errorf("Basemap(streets) = %+v", b)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Syntax", "basemaps: [\n"},
		{"Unknown Basemap", "basemaps:\n  - id: 5\n    tiles: x\n"},
		{"Duplicate Basemap", "basemaps:\n  - id: 1\n    tiles: x\n  - id: 1\n    tiles: y\n"},
		{"Empty Tiles", "basemaps:\n  - id: 1\n"},
		{"Bad Zoom", "view:\n  zoom: 30\n"},
		{"Bad Center", "view:\n  center: [200, 0]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() succeeded")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Errorf("Load() error = %v, want not exist", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if len(cfg.Basemaps) != 2 || cfg.Limits.MaxQuery == 0 || cfg.Limits.Rate == 0 {
		t.Errorf("Default() = %+v", cfg)
	}
	if tiles, attr := cfg.Tiles(sharecodec.BasemapStreets); tiles == "" || attr == "" {
		t.Errorf("Tiles(streets) = %q, %q", tiles, attr)
	}
}
