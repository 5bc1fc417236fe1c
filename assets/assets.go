// Package assets embeds the share page sources. They are minified once when
// the server starts.
package assets

import _ "embed"

var (
	//go:embed index.html.tpl
	IndexTemplate string

	//go:embed style.css
	Style []byte

	//go:embed script.js
	Script []byte

	//go:embed favicon.svg
	Favicon []byte
)
