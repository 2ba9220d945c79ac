package whiteboard

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/dkeye/Seminar/internal/domain"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
	"golang.org/x/image/vector"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

func (f Format) ContentType() string {
	switch f {
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	}
	return "image/png"
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatBMP:
		return FormatBMP, nil
	case FormatTIFF, "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

const circleSegments = 64

// ExportSnapshot rasterizes the current list onto a white canvas of the
// configured size and encodes it. It does not mutate the engine.
func (e *Engine) ExportSnapshot(f Format) ([]byte, error) {
	img := Rasterize(e.List(), e.opts.CanvasWidth, e.opts.CanvasHeight)
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG, "":
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("export %q: %w", f, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws list in stacking order.
func Rasterize(list Elements, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	z := vector.NewRasterizer(w, h)
	list.Each(func(_ int, el domain.DrawingElement) bool {
		drawShape(dst, z, Geometry(el))
		return true
	})
	return dst
}

func drawShape(dst *image.RGBA, z *vector.Rasterizer, s Shape) {
	src := image.NewUniform(parseColor(s.Style.Color, s.Style.Opacity))
	half := math.Max(s.Style.StrokeWidth, 1) / 2

	if s.Kind == ShapeText {
		drawText(dst, s, src)
		return
	}

	z.Reset(dst.Bounds().Dx(), dst.Bounds().Dy())
	switch s.Kind {
	case ShapeSegment:
		strokeSegment(z, s.Segment, half)
	case ShapeArrow:
		strokeSegment(z, s.Segment, half)
		strokeSegment(z, s.Barbs[0], half)
		strokeSegment(z, s.Barbs[1], half)
	case ShapeRect:
		for _, e := range s.Rect.Edges() {
			strokeSegment(z, e, half)
		}
	case ShapeCircle:
		prev := domain.Point{X: s.Center.X + s.Radius, Y: s.Center.Y}
		for i := 1; i <= circleSegments; i++ {
			a := 2 * math.Pi * float64(i) / circleSegments
			p := domain.Point{X: s.Center.X + s.Radius*math.Cos(a), Y: s.Center.Y + s.Radius*math.Sin(a)}
			strokeSegment(z, Segment{prev, p}, half)
			prev = p
		}
	default:
		if len(s.Points) == 1 {
			fillPolygon(z, disc(s.Points[0], half))
		}
		for i := 1; i < len(s.Points); i++ {
			strokeSegment(z, Segment{s.Points[i-1], s.Points[i]}, half)
		}
	}
	z.Draw(dst, dst.Bounds(), src, image.Point{})
}

// strokeSegment fills a quad around the segment plus round caps, which
// also give polylines their rounded joins.
func strokeSegment(z *vector.Rasterizer, s Segment, half float64) {
	dx, dy := s.B.X-s.A.X, s.B.Y-s.A.Y
	l := math.Hypot(dx, dy)
	if l > 0 {
		nx, ny := -dy/l*half, dx/l*half
		fillPolygon(z, []domain.Point{
			{X: s.A.X + nx, Y: s.A.Y + ny},
			{X: s.B.X + nx, Y: s.B.Y + ny},
			{X: s.B.X - nx, Y: s.B.Y - ny},
			{X: s.A.X - nx, Y: s.A.Y - ny},
		})
	}
	fillPolygon(z, disc(s.A, half))
	fillPolygon(z, disc(s.B, half))
}

func disc(c domain.Point, r float64) []domain.Point {
	const n = 12
	pts := make([]domain.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = domain.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

// fillPolygon adds pts with a fixed winding so overlapping pieces of one
// shape accumulate instead of cancelling.
func fillPolygon(z *vector.Rasterizer, pts []domain.Point) {
	if len(pts) < 3 {
		return
	}
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if area < 0 {
		pts = reversed(pts)
	}
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

func reversed(pts []domain.Point) []domain.Point {
	out := make([]domain.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// drawText renders with the fixed 7x13 face and scales it to the
// element's font size.
func drawText(dst *image.RGBA, s Shape, src image.Image) {
	face := basicfont.Face7x13
	adv := font.MeasureString(face, s.Text).Ceil()
	if adv == 0 {
		return
	}
	glyphs := image.NewRGBA(image.Rect(0, 0, adv, face.Height))
	d := font.Drawer{Dst: glyphs, Src: src, Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(s.Text)

	scale := s.FontSize / float64(face.Height)
	anchor := s.Points[0]
	dr := image.Rect(
		int(anchor.X),
		int(anchor.Y-s.FontSize),
		int(anchor.X+float64(adv)*scale),
		int(anchor.Y),
	)
	draw.ApproxBiLinear.Scale(dst, dr, glyphs, glyphs.Bounds(), draw.Over, nil)
}

var namedColors = map[string]color.NRGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {220, 38, 38, 255},
	"green":  {22, 163, 74, 255},
	"blue":   {37, 99, 235, 255},
	"yellow": {250, 204, 21, 255},
	"orange": {234, 88, 12, 255},
	"purple": {147, 51, 234, 255},
}

// parseColor accepts #rgb, #rrggbb and a few names; anything else is black.
func parseColor(s string, opacity float64) color.NRGBA {
	c, ok := namedColors[strings.ToLower(s)]
	if !ok {
		c = color.NRGBA{A: 255}
		hex := strings.TrimPrefix(s, "#")
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
				c = color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
			}
		}
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}
