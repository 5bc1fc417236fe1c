package document

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// StyleKey names one overridable style property.
type StyleKey string

// Style properties, in serialization order.
const (
	StyleStroke           StyleKey = "stroke"
	StyleColor            StyleKey = "color"
	StyleWeight           StyleKey = "weight"
	StyleOpacity          StyleKey = "opacity"
	StyleFill             StyleKey = "fill"
	StyleFillColorEnabled StyleKey = "fillColorEnabled"
	StyleFillColor        StyleKey = "fillColor"
	StyleFillOpacity      StyleKey = "fillOpacity"
)

// StyleKeys lists every style property.
var StyleKeys = []StyleKey{
	StyleStroke,
	StyleColor,
	StyleWeight,
	StyleOpacity,
	StyleFill,
	StyleFillColorEnabled,
	StyleFillColor,
	StyleFillOpacity,
}

var (
	ErrUnknownStyleKey = errors.New("unknown style key")
	ErrStyleValue      = errors.New("invalid style value")
)

// Appearance is a fully resolved style.
type Appearance struct {
	Color            string
	FillColor        string
	Weight           float64
	Opacity          float64
	FillOpacity      float64
	Stroke           bool
	Fill             bool
	FillColorEnabled bool
}

// DefaultAppearance holds the global style defaults.
var DefaultAppearance = Appearance{
	Stroke:           true,
	Color:            "#3388ff",
	Weight:           3,
	Opacity:          1,
	Fill:             true,
	FillColorEnabled: false,
	FillColor:        "#3388ff",
	FillOpacity:      0.2,
}

// EffectiveFillColor is the color polygons and circles are filled with.
func (a Appearance) EffectiveFillColor() string {
	if a.FillColorEnabled {
		return a.FillColor
	}
	return a.Color
}

// Style is a sparse set of overrides. A nil field means "use the default";
// a non-nil field never equals its default.
type Style struct {
	Stroke           *bool    `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Color            *string  `json:"color,omitempty" yaml:"color,omitempty"`
	Weight           *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Opacity          *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Fill             *bool    `json:"fill,omitempty" yaml:"fill,omitempty"`
	FillColorEnabled *bool    `json:"fillColorEnabled,omitempty" yaml:"fillColorEnabled,omitempty"`
	FillColor        *string  `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	FillOpacity      *float64 `json:"fillOpacity,omitempty" yaml:"fillOpacity,omitempty"`
}

// Resolve overlays the overrides on the defaults. A nil style resolves to
// DefaultAppearance.
func (s *Style) Resolve() Appearance {
	a := DefaultAppearance
	if s == nil {
		return a
	}
	if s.Stroke != nil {
		a.Stroke = *s.Stroke
	}
	if s.Color != nil {
		a.Color = *s.Color
	}
	if s.Weight != nil {
		a.Weight = *s.Weight
	}
	if s.Opacity != nil {
		a.Opacity = *s.Opacity
	}
	if s.Fill != nil {
		a.Fill = *s.Fill
	}
	if s.FillColorEnabled != nil {
		a.FillColorEnabled = *s.FillColorEnabled
	}
	if s.FillColor != nil {
		a.FillColor = *s.FillColor
	}
	if s.FillOpacity != nil {
		a.FillOpacity = *s.FillOpacity
	}
	return a
}

// Diff returns the sparse overrides that turn the defaults into a, or nil
// when a equals the defaults.
func Diff(a Appearance) *Style {
	d := DefaultAppearance
	s := &Style{}
	if a.Stroke != d.Stroke {
		s.Stroke = ptr(a.Stroke)
	}
	if !sameColor(a.Color, d.Color) {
		s.Color = ptr(a.Color)
	}
	if a.Weight != d.Weight {
		s.Weight = ptr(a.Weight)
	}
	if a.Opacity != d.Opacity {
		s.Opacity = ptr(a.Opacity)
	}
	if a.Fill != d.Fill {
		s.Fill = ptr(a.Fill)
	}
	if a.FillColorEnabled != d.FillColorEnabled {
		s.FillColorEnabled = ptr(a.FillColorEnabled)
	}
	if !sameColor(a.FillColor, d.FillColor) {
		s.FillColor = ptr(a.FillColor)
	}
	if a.FillOpacity != d.FillOpacity {
		s.FillOpacity = ptr(a.FillOpacity)
	}
	if s.IsEmpty() {
		return nil
	}
	return s
}

// Normalize drops overrides equal to their default and returns nil when
// nothing is left.
func (s *Style) Normalize() *Style {
	if s == nil {
		return nil
	}
	return Diff(s.Resolve())
}

// IsEmpty reports whether the style overrides nothing.
func (s *Style) IsEmpty() bool {
	return s == nil || *s == Style{}
}

// Get returns the override for key, if any.
func (s *Style) Get(key StyleKey) (any, bool) {
	if s == nil {
		return nil, false
	}
	switch key {
	case StyleStroke:
		return deref(s.Stroke)
	case StyleColor:
		return deref(s.Color)
	case StyleWeight:
		return deref(s.Weight)
	case StyleOpacity:
		return deref(s.Opacity)
	case StyleFill:
		return deref(s.Fill)
	case StyleFillColorEnabled:
		return deref(s.FillColorEnabled)
	case StyleFillColor:
		return deref(s.FillColor)
	case StyleFillOpacity:
		return deref(s.FillOpacity)
	}
	return nil, false
}

// With returns a copy of s with key set to v. Setting a key to its default
// removes the override; the result is nil when no override remains.
// Booleans take bool, colors take "#rgb" or "#rrggbb" strings, and numbers
// take float64 or int.
func (s *Style) With(key StyleKey, v any) (*Style, error) {
	a := s.Resolve()

	switch key {
	case StyleStroke, StyleFill, StyleFillColorEnabled:
		b, ok := v.(bool)
		if !ok {
			return s, fmt.Errorf("%w: %s wants a boolean, got %T", ErrStyleValue, key, v)
		}
		switch key {
		case StyleStroke:
			a.Stroke = b
		case StyleFill:
			a.Fill = b
		default:
			a.FillColorEnabled = b
		}

	case StyleColor, StyleFillColor:
		c, ok := v.(string)
		if !ok || !validColor(c) {
			return s, fmt.Errorf("%w: %s wants a #rrggbb color, got %v", ErrStyleValue, key, v)
		}
		c = canonicalColor(c)
		if key == StyleColor {
			a.Color = c
		} else {
			a.FillColor = c
		}

	case StyleWeight, StyleOpacity, StyleFillOpacity:
		f, ok := number(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return s, fmt.Errorf("%w: %s wants a non-negative number, got %v", ErrStyleValue, key, v)
		}
		if key != StyleWeight && f > 1 {
			return s, fmt.Errorf("%w: %s must be within 0..1, got %v", ErrStyleValue, key, f)
		}
		switch key {
		case StyleWeight:
			a.Weight = f
		case StyleOpacity:
			a.Opacity = f
		default:
			a.FillOpacity = f
		}

	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownStyleKey, key)
	}

	return s.merge(key, a), nil
}

// Without returns a copy of s with the override for key removed.
func (s *Style) Without(key StyleKey) (*Style, error) {
	if !knownKey(key) {
		return s, fmt.Errorf("%w: %q", ErrUnknownStyleKey, key)
	}
	return s.merge(key, DefaultAppearance), nil
}

// merge copies the value of key from a into a copy of s and normalizes it.
func (s *Style) merge(key StyleKey, a Appearance) *Style {
	var c Style
	if s != nil {
		c = *s
	}
	switch key {
	case StyleStroke:
		c.Stroke = ptr(a.Stroke)
	case StyleColor:
		c.Color = ptr(a.Color)
	case StyleWeight:
		c.Weight = ptr(a.Weight)
	case StyleOpacity:
		c.Opacity = ptr(a.Opacity)
	case StyleFill:
		c.Fill = ptr(a.Fill)
	case StyleFillColorEnabled:
		c.FillColorEnabled = ptr(a.FillColorEnabled)
	case StyleFillColor:
		c.FillColor = ptr(a.FillColor)
	case StyleFillOpacity:
		c.FillOpacity = ptr(a.FillOpacity)
	}
	return c.Normalize()
}

// Clone returns a deep copy.
func (s *Style) Clone() *Style {
	if s == nil {
		return nil
	}
	return &Style{
		Stroke:           clonePtr(s.Stroke),
		Color:            clonePtr(s.Color),
		Weight:           clonePtr(s.Weight),
		Opacity:          clonePtr(s.Opacity),
		Fill:             clonePtr(s.Fill),
		FillColorEnabled: clonePtr(s.FillColorEnabled),
		FillColor:        clonePtr(s.FillColor),
		FillOpacity:      clonePtr(s.FillOpacity),
	}
}

func knownKey(key StyleKey) bool {
	for _, k := range StyleKeys {
		if k == key {
			return true
		}
	}
	return false
}

func validColor(c string) bool {
	if len(c) != 4 && len(c) != 7 || c[0] != '#' {
		return false
	}
	for i := 1; i < len(c); i++ {
		switch ch := c[i]; {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}

// canonicalColor lowercases c and expands the #rgb short form.
func canonicalColor(c string) string {
	c = strings.ToLower(c)
	if len(c) == 4 && c[0] == '#' {
		return string([]byte{'#', c[1], c[1], c[2], c[2], c[3], c[3]})
	}
	return c
}

func sameColor(a, b string) bool {
	return canonicalColor(a) == canonicalColor(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
