package dictionary

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

const sampleDocument = `{"type":"FeatureCollection","features":[` +
	`{"type":"Feature","properties":{"title":"Stanley Park","description":"trail loop","tooltip":true,"permanentTooltip":true,` +
	`"style":{"stroke":false,"color":"#ff0000","weight":5,"opacity":0.5,"fill":false,"fillColorEnabled":true,"fillColor":"#00ff00","fillOpacity":0.4},` +
	`"data":[["k","v"],["k","w"]]},"geometry":{"type":"Polygon","coordinates":[[[-123.1,49.2],[-123.2,49.2],[-123.2,49.3],[-123.1,49.2]],[[0,0],[1,1],[0,1],[0,0]]]}},` +
	`{"type":"Feature","properties":{"radius":500},"geometry":{"type":"Point","coordinates":[-123.17,49.26]}},` +
	`{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[1,2],[3,4]]}},` +
	`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`

func TestSubstituteRestoreDocument(t *testing.T) {
	short := SubstituteShort(sampleDocument)
	if len(short) >= len(sampleDocument)/2 {
		t.Errorf("Substituted length %d not below half of %d", len(short), len(sampleDocument))
	}
	if got := RestoreLong(short); got != sampleDocument {
		t.Errorf("Round trip failed.\n got: %s\nwant: %s", got, sampleDocument)
	}
}

func TestSubstituteRestoreTokenSoup(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var b strings.Builder
		n := rng.Intn(60)
		for i := 0; i < n; i++ {
			b.WriteString(entries[rng.Intn(len(entries))])
			if rng.Intn(4) == 0 {
				b.WriteString(`"x":1,`)
			}
		}
		input := b.String()
		if got := RestoreLong(SubstituteShort(input)); got != input {
			t.Fatalf("Round %d: round trip failed.\n got: %q\nwant: %q", round, got, input)
		}
	}
}

func TestSubstituteEachEntry(t *testing.T) {
	for i, e := range entries {
		short := SubstituteShort(e)
		if len(short) >= len(e) {
			t.Errorf("Entry %d %q was not shortened: %q", i, e, short)
		}
		if got := RestoreLong(short); got != e {
			t.Errorf("Entry %d: got %q, want %q", i, got, e)
		}
	}
}

func TestEntriesNotShadowed(t *testing.T) {
	// an earlier entry must never be a substring of a later one
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if strings.Contains(entries[j], entries[i]) {
				t.Errorf("Entry %d %q shadows later entry %d %q", i, entries[i], j, entries[j])
			}
		}
	}
}

func TestSubstituteLeavesPlainText(t *testing.T) {
	input := `{"name":"_geometry_ type: Point"}`
	if got := SubstituteShort(input); got != input {
		t.Errorf("SubstituteShort() changed unrelated text: %q", got)
	}
}

func TestCollisions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"Clean", sampleDocument, nil},
		{"Escaped JSON Control", `{"title":"a\u0001b"}`, nil},
		{"Raw Tokens", "a\x03b\x01c\x03", []Token{3, 1}},
		{"NUL Ignored", "a\x00b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Collisions(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Collisions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry(t *testing.T) {
	if got, ok := Entry(1); !ok || got != entries[0] {
		t.Errorf("Entry(1) = %q, %v", got, ok)
	}
	if _, ok := Entry(Token(Len() + 1)); ok {
		t.Error("Entry() resolved an unassigned token")
	}
	if _, ok := Entry(0); ok {
		t.Error("Entry(0) resolved")
	}
}
