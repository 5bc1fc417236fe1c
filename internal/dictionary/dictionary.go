// Package dictionary shortens the serialized annotation document by swapping
// known structural JSON substrings for reserved single-byte tokens.
//
// Tokens are the control bytes 0x01..0x1F. encoding/json escapes every byte
// below 0x20 inside strings and never emits one between values, so a token
// can not occur in serialized output and restoring is unambiguous.
package dictionary

import (
	"fmt"
	"strings"
)

// Token is a reserved byte standing in for a dictionary entry.
type Token byte

// entries are applied top to bottom. An entry that contains another entry
// must come first, otherwise the shorter one consumes its text.
var entries = []string{
	`{"type":"FeatureCollection","features":[`,
	`{"type":"Feature","properties":{`,
	`},"geometry":{"type":"Point","coordinates":[`,
	`},"geometry":{"type":"LineString","coordinates":[[`,
	`},"geometry":{"type":"Polygon","coordinates":[[[`,
	`"permanentTooltip":true`,
	`"tooltip":true`,
	`"description":"`,
	`"title":"`,
	`"style":{`,
	`"data":[["`,
	`"],["`,
	`"radius":`,
	`"stroke":false`,
	`"fill":false`,
	`"fillColorEnabled":true`,
	`"fillColor":"#`,
	`"fillOpacity":`,
	`"color":"#`,
	`"weight":`,
	`"opacity":`,
	`]]]}},`,
	`]]}},`,
	`]}},`,
	`]]]}}]}`,
	`]],[[`,
	`],[`,
	`"geometry":`,
	`"coordinates":`,
	`"type":"`,
	`","`,
}

var (
	restorer *strings.Replacer
	tokens   [256]bool
)

func init() {
	if len(entries) > 0x1f {
		panic(fmt.Sprintf("dictionary: %d entries exceed the %d reserved tokens", len(entries), 0x1f))
	}

	pairs := make([]string, 0, len(entries)*2)
	for i, e := range entries {
		if e == "" || Collisions(e) != nil {
			panic(fmt.Sprintf("dictionary: entry %d %q is empty or holds a reserved byte", i, e))
		}
		t := tokenFor(i)
		tokens[t] = true
		pairs = append(pairs, string(rune(t)), e)
	}
	restorer = strings.NewReplacer(pairs...)
}

func tokenFor(i int) Token {
	return Token(i + 1)
}

// SubstituteShort replaces every dictionary entry in s with its token.
func SubstituteShort(s string) string {
	for i, e := range entries {
		if strings.Contains(s, e) {
			s = strings.ReplaceAll(s, e, string(rune(tokenFor(i))))
		}
	}
	return s
}

// RestoreLong expands every token in s back into its entry.
func RestoreLong(s string) string {
	return restorer.Replace(s)
}

// Collisions lists the reserved bytes present in s, in order of first
// appearance. Text carrying them does not survive SubstituteShort followed
// by RestoreLong; serialized JSON never does.
func Collisions(s string) []Token {
	var found []Token
	var seen [32]bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 || c >= 0x20 || seen[c] {
			continue
		}
		seen[c] = true
		found = append(found, Token(c))
	}
	return found
}

// Entry returns the text a token stands for.
func Entry(t Token) (string, bool) {
	if !tokens[t] {
		return "", false
	}
	return entries[int(t)-1], true
}

// Len reports the number of dictionary entries.
func Len() int {
	return len(entries)
}
