// Package sharecodec turns the map state into share URL query parameters
// and back.
//
// The document travels in the gj parameter as
//
//	percentEncode(compress(substituteShort(json(doc))))
//
// and the basemap in bm. Decoding never fails hard: a broken gj yields an
// error together with a usable State holding the basemap and an empty
// document.
package sharecodec

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/woozymasta/quickmap/internal/compress"
	"github.com/woozymasta/quickmap/internal/dictionary"
	"github.com/woozymasta/quickmap/internal/document"
)

// Query parameter names.
const (
	ParamBasemap  = "bm"
	ParamDocument = "gj"
)

// ErrDecodeFailure is matched by every error about an undecodable gj value.
var ErrDecodeFailure = errors.New("share state decode failure")

// State is the map state carried by a share URL.
type State struct {
	Document document.FeatureCollection
	Basemap  Basemap
}

// Encode runs the document through serialization, dictionary substitution
// and compression. The result is printable ASCII but not yet
// percent-encoded.
func Encode(doc document.FeatureCollection) (string, error) {
	b, err := document.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	text := string(b)
	if reserved := dictionary.Collisions(text); len(reserved) > 0 {
		return "", fmt.Errorf("serialized document carries reserved bytes %v", reserved)
	}
	return compress.Compress(dictionary.SubstituteShort(text)), nil
}

// Decode reverses Encode. Errors match ErrDecodeFailure.
func Decode(s string) (document.FeatureCollection, error) {
	text, err := compress.Decompress(s)
	if err != nil {
		return document.FeatureCollection{}, decodeError("decompress", err)
	}

	doc, err := document.Parse([]byte(dictionary.RestoreLong(text)))
	if err != nil {
		return document.FeatureCollection{}, decodeError("parse document", err)
	}

	return doc, nil
}

func decodeError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecodeFailure, stage, err)
}

// BuildShareURL returns baseURL with the bm and gj parameters. Any query
// or fragment already on baseURL is dropped.
func BuildShareURL(baseURL string, bm Basemap, doc document.FeatureCollection) (string, error) {
	query, err := BuildQuery(bm, doc)
	if err != nil {
		return "", err
	}

	base, _, _ := strings.Cut(baseURL, "#")
	base, _, _ = strings.Cut(base, "?")

	return base + "?" + query, nil
}

// BuildQuery returns the "bm=..&gj=.." query string.
func BuildQuery(bm Basemap, doc document.FeatureCollection) (string, error) {
	encoded, err := Encode(doc)
	if err != nil {
		return "", err
	}

	return ParamBasemap + "=" + strconv.Itoa(int(bm.OrDefault())) +
		"&" + ParamDocument + "=" + url.QueryEscape(encoded), nil
}

// ParseShareURL reads the state from a full share URL. The returned State
// is usable even when the error is not nil.
func ParseShareURL(rawURL string) (State, error) {
	_, query, _ := strings.Cut(rawURL, "?")
	query, _, _ = strings.Cut(query, "#")
	return ParseQuery(query)
}

// ParseQuery reads the state from a raw, still percent-encoded query
// string. The first bm and gj occurrences win. The returned State is usable
// even when the error is not nil.
func ParseQuery(rawQuery string) (State, error) {
	state := State{Basemap: DefaultBasemap}

	var gj string
	var seenBasemap, seenDocument bool
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}

		switch key {
		case ParamBasemap:
			if seenBasemap {
				continue
			}
			seenBasemap = true
			if v, err := url.QueryUnescape(value); err == nil {
				state.Basemap = ParseBasemap(v)
			}
		case ParamDocument:
			if seenDocument {
				continue
			}
			seenDocument = true
			gj = value
		}
	}

	if gj == "" {
		return state, nil
	}

	encoded, err := url.QueryUnescape(gj)
	if err != nil {
		return state, decodeError("percent-decode", err)
	}

	doc, err := Decode(encoded)
	if err != nil {
		return state, err
	}
	state.Document = doc

	return state, nil
}
