package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/quickmap/internal/adapter"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/preview"
	"github.com/woozymasta/quickmap/internal/sharecodec"
	"github.com/woozymasta/quickmap/internal/toolkit"

	"gopkg.in/yaml.v3"
)

type encodeCommand struct {
	Input     string `short:"i" long:"in"         description:"Document file. Reads from stdin if empty"`
	Output    string `short:"o" long:"out"        description:"Output file path. Writes to stdout if empty"`
	BaseURL   string `short:"b" long:"base-url"   env:"BASE_URL" description:"Base URL of the share link" default:"http://localhost:8080/"`
	Basemap   int    `short:"m" long:"basemap"    description:"Basemap id (1 streets, 2 satellite)" default:"1"`
	QueryOnly bool   `short:"q" long:"query-only" description:"Print only the query string"`
}

func (c *encodeCommand) Execute([]string) error {
	data, err := readInput(c.Input)
	if err != nil {
		return err
	}

	doc, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	bm := sharecodec.Basemap(c.Basemap).OrDefault()
	var out string
	if c.QueryOnly {
		out, err = sharecodec.BuildQuery(bm, doc)
	} else {
		out, err = sharecodec.BuildShareURL(c.BaseURL, bm, doc)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("features", doc.Len()).
		Int("document_bytes", len(data)).
		Int("url_bytes", len(out)).
		Msg("Document encoded")

	return writeOutput(c.Output, []byte(out+"\n"))
}

type decodeCommand struct {
	Input  string `short:"i" long:"in"     description:"File holding the share URL. Reads from stdin if empty and no URL is given"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Strict bool   `short:"s" long:"strict" description:"Fail when the document can not be decoded instead of printing an empty one"`

	Args struct {
		URL string `positional-arg-name:"url" description:"Share URL or bare query string"`
	} `positional-args:"yes"`
}

func (c *decodeCommand) Execute([]string) error {
	link := c.Args.URL
	if link == "" {
		data, err := readInput(c.Input)
		if err != nil {
			return err
		}
		link = strings.TrimSpace(string(data))
	}

	var state sharecodec.State
	var err error
	if strings.Contains(link, "?") {
		state, err = sharecodec.ParseShareURL(link)
	} else {
		state, err = sharecodec.ParseQuery(link)
	}
	if err != nil {
		if c.Strict {
			return err
		}
		log.Warn().Err(err).Msg("Document could not be decoded, writing an empty one")
	}

	log.Info().
		Int("basemap", int(state.Basemap)).
		Str("basemap_name", state.Basemap.String()).
		Int("features", state.Document.Len()).
		Msg("Share URL decoded")

	out, err := marshal(state.Document, c.Format)
	if err != nil {
		return err
	}
	return writeOutput(c.Output, out)
}

type importCommand struct {
	Input  string `short:"i" long:"in"     description:"GeoJSON file. Reads from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Native bool   `short:"n" long:"native" description:"Write plain GeoJSON as the map exports it, circles become points"`
}

func (c *importCommand) Execute([]string) error {
	data, err := readInput(c.Input)
	if err != nil {
		return err
	}

	doc, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	m := toolkit.New()
	report, importErr := adapter.FromDocument(doc, m)
	logSkipped(importErr)

	event := log.Info().
		Int("added", report.Added).
		Int("duplicates", report.Duplicates).
		Int("skipped", report.Skipped)
	if b, ok := m.Bound(); ok {
		event = event.Floats64("bound", []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()})
	}
	event.Msg("Document imported")

	if c.Native {
		out, err := m.GeoJSON().MarshalJSON()
		if err != nil {
			return err
		}
		return writeOutput(c.Output, append(out, '\n'))
	}

	imported, exportErr := adapter.ToDocument(m)
	logSkipped(exportErr)

	out, err := marshal(imported, c.Format)
	if err != nil {
		return err
	}
	return writeOutput(c.Output, out)
}

type previewCommand struct {
	Output  string  `short:"o" long:"out"     description:"WebP file to write" required:"true"`
	Width   int     `short:"W" long:"width"   description:"Image width"  default:"512"`
	Height  int     `short:"H" long:"height"  description:"Image height" default:"256"`
	Quality float32 `short:"q" long:"quality" description:"WebP quality" default:"80"`

	Args struct {
		URL string `positional-arg-name:"url" required:"yes" description:"Share URL"`
	} `positional-args:"yes"`
}

func (c *previewCommand) Execute([]string) error {
	state, err := sharecodec.ParseShareURL(c.Args.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Document could not be decoded, rendering an empty map")
	}

	opts := preview.DefaultOptions
	opts.Width, opts.Height, opts.Quality = c.Width, c.Height, c.Quality

	var buf bytes.Buffer
	if err := preview.Encode(&buf, state.Document, opts); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}

	log.Info().
		Int("features", state.Document.Len()).
		Int("bytes", buf.Len()).
		Str("file", c.Output).
		Msg("Preview written")

	return writeOutput(c.Output, buf.Bytes())
}

// logSkipped warns once per error joined into err.
func logSkipped(err error) {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		if err != nil {
			log.Warn().Err(err).Msg("Feature skipped")
		}
		return
	}
	for _, e := range joined.Unwrap() {
		log.Warn().Err(e).Msg("Feature skipped")
	}
}

func marshal(doc document.FeatureCollection, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(doc)
	}

	data, err := document.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
