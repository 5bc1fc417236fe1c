package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/woozymasta/quickmap/internal/document"
)

const sampleDocument = `{"type":"FeatureCollection","features":[` +
	`{"type":"Feature","properties":{"title":"Harbour","radius":500},"geometry":{"type":"Point","coordinates":[-123.17,49.26]}},` +
	`{"type":"Feature","properties":{"title":"multi"},"geometry":{"type":"MultiPoint","coordinates":[[1,2],[3,4]]}},` +
	`{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[1,2],[3,4]]}}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, "doc.geojson", sampleDocument)
	link := filepath.Join(dir, "link.txt")

	enc := &encodeCommand{Input: in, Output: link, BaseURL: "https://map.example.com/?x=1", Basemap: 2}
	if err := enc.Execute(nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	url := strings.TrimSpace(readFile(t, link))
	if !strings.HasPrefix(url, "https://map.example.com/?bm=2&gj=") {
		t.Fatalf("unexpected share URL %q", url)
	}

	out := filepath.Join(dir, "out.geojson")
	dec := &decodeCommand{Input: link, Output: out, Format: "json", Strict: true}
	if err := dec.Execute(nil); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, err := document.Parse([]byte(readFile(t, out)))
	if err != nil {
		t.Fatalf("parse decoded: %v", err)
	}
	want, _ := document.Parse([]byte(sampleDocument))
	if got.Len() != want.Len() {
		t.Fatalf("decoded %d features, want %d", got.Len(), want.Len())
	}
	if got.Features[0].Properties.Title != "Harbour" || got.Features[0].Properties.Radius != 500 {
		t.Errorf("first feature = %+v", got.Features[0].Properties)
	}
}

func TestEncodeQueryOnly(t *testing.T) {
	in := writeFile(t, "doc.geojson", `{"type":"FeatureCollection","features":[]}`)
	out := filepath.Join(t.TempDir(), "q.txt")

	enc := &encodeCommand{Input: in, Output: out, Basemap: 7, QueryOnly: true}
	if err := enc.Execute(nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if q := readFile(t, out); !strings.HasPrefix(q, "bm=1&gj=") {
		t.Errorf("query = %q, want default basemap", q)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		format  string
		strict  bool
		wantErr bool
		want    string
	}{
		{"Empty Query", "bm=2", "json", true, false, `"features": []`},
		{"Broken Document", "https://map.example.com/?bm=2&gj=garbage", "json", false, false, `"features": []`},
		{"Broken Strict", "https://map.example.com/?bm=2&gj=garbage", "json", true, true, ""},
		{"Yaml", "bm=1", "yaml", true, false, "features: []"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out")
			cmd := &decodeCommand{Output: out, Format: tt.format, Strict: tt.strict}
			cmd.Args.URL = tt.url

			err := cmd.Execute(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := readFile(t, out); !strings.Contains(got, tt.want) {
				t.Errorf("output %q does not contain %q", got, tt.want)
			}
		})
	}
}

func TestImport(t *testing.T) {
	in := writeFile(t, "doc.geojson", sampleDocument)
	out := filepath.Join(t.TempDir(), "out.geojson")

	cmd := &importCommand{Input: in, Output: out, Format: "json"}
	if err := cmd.Execute(nil); err != nil {
		t.Fatalf("import: %v", err)
	}

	got, err := document.Parse([]byte(readFile(t, out)))
	if err != nil {
		t.Fatalf("parse imported: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("imported %d features, want 2", got.Len())
	}
	for _, f := range got.Features {
		if f.Properties.Title == "multi" {
			t.Error("multipoint feature was kept")
		}
	}
}

func TestImportNative(t *testing.T) {
	in := writeFile(t, "doc.geojson", sampleDocument)
	out := filepath.Join(t.TempDir(), "out.geojson")

	cmd := &importCommand{Input: in, Output: out, Format: "json", Native: true}
	if err := cmd.Execute(nil); err != nil {
		t.Fatalf("import: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection([]byte(readFile(t, out)))
	if err != nil {
		t.Fatalf("unmarshal native export: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("native export has %d features, want 2", len(fc.Features))
	}
	if fc.Features[0].Geometry.GeoJSONType() != "Point" {
		t.Errorf("circle exported as %s, want Point", fc.Features[0].Geometry.GeoJSONType())
	}
}

func TestReadInputMissing(t *testing.T) {
	if _, err := readInput(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
