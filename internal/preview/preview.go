// Package preview draws a small WebP thumbnail of an annotation document.
// There are no basemap tiles behind the shapes; the preview only shows the
// features with their own styles on a plain background.
package preview

import (
	"image"
	"image/color"
	"io"
	"math"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/geo"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const (
	circleSegments = 64
	markerRadius   = 6.0
	// maxScale caps the zoom for tiny documents such as a single marker,
	// roughly web map zoom 16.
	maxScale = 256 << 16
)

// Options controls the canvas.
type Options struct {
	Background color.Color
	Width      int
	Height     int
	Padding    int
	Quality    float32
}

// DefaultOptions is a 512x256 canvas with a light grey background.
var DefaultOptions = Options{
	Width:      512,
	Height:     256,
	Padding:    16,
	Quality:    80,
	Background: color.NRGBA{R: 0xf2, G: 0xef, B: 0xe9, A: 0xff},
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultOptions.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultOptions.Height
	}
	if o.Padding < 0 || 2*o.Padding >= min(o.Width, o.Height) {
		o.Padding = 0
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultOptions.Quality
	}
	if o.Background == nil {
		o.Background = DefaultOptions.Background
	}
	return o
}

// Encode renders doc and writes it as lossy WebP.
func Encode(w io.Writer, doc document.FeatureCollection, opts Options) error {
	opts = opts.withDefaults()
	img := Render(doc, opts)
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: opts.Quality})
}

// Render draws doc onto a new canvas. Features are painted bottom-most
// first; unsupported geometries are ignored.
func Render(doc document.FeatureCollection, opts Options) *image.RGBA {
	opts = opts.withDefaults()
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, xdraw.Src)

	bound, ok := Bound(doc)
	if !ok {
		return img
	}

	c := &canvas{img: img, proj: fit(bound, opts)}
	for _, f := range doc.Features {
		c.feature(f)
	}

	return img
}

// Bound covers every supported feature, circles included with their
// radius.
func Bound(doc document.FeatureCollection) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range doc.Features {
		if !f.Geometry.Supported() {
			continue
		}
		fb := f.Geometry.Coordinates.Bound()
		if p, ok := f.Geometry.Coordinates.(orb.Point); ok && f.IsCircle() {
			fb = geo.CircleBound(p, f.Properties.Radius)
		}
		if !found {
			b, found = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, found
}

// projection maps lon/lat to canvas pixels.
type projection struct {
	originX, originY float64
	scale            float64
}

func (p projection) point(pt orb.Point) (float32, float32) {
	x, y := geo.LonLatToMercator(pt.Lon(), pt.Lat())
	return float32((x - p.originX) * p.scale), float32((y - p.originY) * p.scale)
}

// fit centers the bound on the canvas at the largest scale that keeps it
// inside the padding.
func fit(b orb.Bound, opts Options) projection {
	minX, maxY := geo.LonLatToMercator(b.Min.Lon(), b.Min.Lat())
	maxX, minY := geo.LonLatToMercator(b.Max.Lon(), b.Max.Lat())

	w := float64(opts.Width - 2*opts.Padding)
	h := float64(opts.Height - 2*opts.Padding)

	scale := float64(maxScale)
	if dx := maxX - minX; dx > 0 {
		scale = math.Min(scale, w/dx)
	}
	if dy := maxY - minY; dy > 0 {
		scale = math.Min(scale, h/dy)
	}

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return projection{
		originX: cx - float64(opts.Width)/2/scale,
		originY: cy - float64(opts.Height)/2/scale,
		scale:   scale,
	}
}

type canvas struct {
	img  *image.RGBA
	proj projection
}

func (c *canvas) feature(f document.Feature) {
	a := f.Properties.Style.Resolve()

	switch g := f.Geometry.Coordinates.(type) {
	case orb.Point:
		if f.IsCircle() {
			ring := c.ring(geo.CircleRing(g, f.Properties.Radius, circleSegments))
			c.area([][]pixel{ring}, a)
			return
		}
		x, y := c.proj.point(g)
		c.marker(x, y, a)

	case orb.LineString:
		if a.Stroke {
			c.stroke(c.line(g), a)
		}

	case orb.Polygon:
		rings := make([][]pixel, len(g))
		for i, r := range g {
			rings[i] = c.ring(r)
		}
		c.area(rings, a)
	}
}

type pixel struct{ x, y float32 }

func (c *canvas) line(ls orb.LineString) []pixel {
	out := make([]pixel, len(ls))
	for i, p := range ls {
		out[i].x, out[i].y = c.proj.point(p)
	}
	return out
}

func (c *canvas) ring(r orb.Ring) []pixel {
	return c.line(orb.LineString(r))
}

// area fills and outlines closed rings. Inner rings cut holes when they
// wind opposite to the outer ring, as GeoJSON orders them.
func (c *canvas) area(rings [][]pixel, a document.Appearance) {
	if a.Fill {
		z := c.rasterizer()
		for _, r := range rings {
			path(z, r, true)
		}
		c.paint(z, a.EffectiveFillColor(), a.FillOpacity)
	}
	if a.Stroke {
		for _, r := range rings {
			c.stroke(r, a)
		}
	}
}

// stroke draws every segment as a quad with round joins.
func (c *canvas) stroke(pts []pixel, a document.Appearance) {
	if len(pts) < 2 {
		return
	}
	half := float32(math.Max(a.Weight, 1) / 2)

	z := c.rasterizer()
	for i := 1; i < len(pts); i++ {
		segment(z, pts[i-1], pts[i], half)
	}
	for _, p := range pts {
		disc(z, p, half)
	}
	c.paint(z, a.Color, a.Opacity)
}

func (c *canvas) marker(x, y float32, a document.Appearance) {
	z := c.rasterizer()
	disc(z, pixel{x, y}, markerRadius)
	c.paint(z, a.Color, 1)

	z = c.rasterizer()
	disc(z, pixel{x, y}, markerRadius/2)
	c.paint(z, "#ffffff", 1)
}

func (c *canvas) rasterizer() *vector.Rasterizer {
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = xdraw.Over
	return z
}

func (c *canvas) paint(z *vector.Rasterizer, hex string, opacity float64) {
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(parseColor(hex, opacity)), image.Point{})
}

func path(z *vector.Rasterizer, pts []pixel, closed bool) {
	if len(pts) == 0 {
		return
	}
	z.MoveTo(pts[0].x, pts[0].y)
	for _, p := range pts[1:] {
		z.LineTo(p.x, p.y)
	}
	if closed {
		z.ClosePath()
	}
}

func segment(z *vector.Rasterizer, a, b pixel, half float32) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half

	z.MoveTo(a.x+nx, a.y+ny)
	z.LineTo(b.x+nx, b.y+ny)
	z.LineTo(b.x-nx, b.y-ny)
	z.LineTo(a.x-nx, a.y-ny)
	z.ClosePath()
}

// disc winds the same way as the quads from segment so overlapping shapes
// add up instead of cancelling.
func disc(z *vector.Rasterizer, center pixel, r float32) {
	const steps = 16
	for i := 0; i <= steps; i++ {
		t := 2 * math.Pi * float64(i) / steps
		x := center.x + r*float32(math.Cos(t))
		y := center.y - r*float32(math.Sin(t))
		if i == 0 {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
	z.ClosePath()
}

// parseColor reads "#rgb" or "#rrggbb". Anything else is the default
// stroke color.
func parseColor(hex string, opacity float64) color.NRGBA {
	if len(hex) == 4 && hex[0] == '#' {
		hex = "#" + string([]byte{hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	v, err := strconv.ParseUint(hex[min(1, len(hex)):], 16, 32)
	if len(hex) != 7 || hex[0] != '#' || err != nil {
		return parseColor(document.DefaultAppearance.Color, opacity)
	}

	opacity = math.Max(0, math.Min(1, opacity))
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: uint8(math.Round(opacity * 255)),
	}
}
