package whiteboard

import (
	"math"

	"github.com/dkeye/Seminar/internal/domain"
)

const (
	ArrowHeadLength = 15.0
	ArrowHeadAngle  = math.Pi / 6
	minFontSize     = 8.0
	fontScale       = 4.0
)

type ShapeKind int

const (
	ShapePolyline ShapeKind = iota
	ShapeSegment
	ShapeArrow
	ShapeRect
	ShapeCircle
	ShapeText
)

type Segment struct {
	A, B domain.Point
}

// Rect is normalized: W and H are never negative.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p domain.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Edges() [4]Segment {
	tl := domain.Point{X: r.X, Y: r.Y}
	tr := domain.Point{X: r.X + r.W, Y: r.Y}
	br := domain.Point{X: r.X + r.W, Y: r.Y + r.H}
	bl := domain.Point{X: r.X, Y: r.Y + r.H}
	return [4]Segment{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}}
}

// Shape is the render geometry of one element.
type Shape struct {
	Kind     ShapeKind
	Points   []domain.Point
	Segment  Segment
	Barbs    [2]Segment
	Rect     Rect
	Center   domain.Point
	Radius   float64
	Text     string
	FontSize float64
	Style    domain.Style
}

// Geometry maps an element to what a renderer draws. Shape tools use the
// first and last point only.
func Geometry(e domain.DrawingElement) Shape {
	s := Shape{Style: e.Style}
	if len(e.Points) == 0 {
		s.Kind = ShapePolyline
		return s
	}
	first, last := e.First(), e.Last()
	switch e.Tool {
	case domain.ToolLine:
		s.Kind = ShapeSegment
		s.Segment = Segment{first, last}
	case domain.ToolArrow:
		s.Kind = ShapeArrow
		s.Segment = Segment{first, last}
		s.Barbs = ArrowBarbs(first, last)
	case domain.ToolRectangle:
		s.Kind = ShapeRect
		s.Rect = NormalizeRect(first, last)
	case domain.ToolCircle:
		s.Kind = ShapeCircle
		s.Center = first
		s.Radius = dist(first, last)
	case domain.ToolText:
		s.Kind = ShapeText
		s.Points = []domain.Point{first}
		s.Text = e.Text
		s.FontSize = FontSize(e.Style)
	default:
		s.Kind = ShapePolyline
		s.Points = e.Points
	}
	return s
}

func NormalizeRect(a, b domain.Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// ArrowBarbs returns the two arrowhead strokes at b, each ArrowHeadLength
// long and rotated ±ArrowHeadAngle from the reverse of a->b.
func ArrowBarbs(a, b domain.Point) [2]Segment {
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	barb := func(off float64) Segment {
		return Segment{b, domain.Point{
			X: b.X - ArrowHeadLength*math.Cos(angle+off),
			Y: b.Y - ArrowHeadLength*math.Sin(angle+off),
		}}
	}
	return [2]Segment{barb(-ArrowHeadAngle), barb(ArrowHeadAngle)}
}

func FontSize(st domain.Style) float64 {
	return math.Max(minFontSize, st.StrokeWidth*fontScale)
}

// TextBox approximates the box of a text element anchored at its
// baseline-left point.
func TextBox(anchor domain.Point, text string, size float64) Rect {
	n := len([]rune(text))
	if n == 0 {
		n = 1
	}
	return Rect{X: anchor.X, Y: anchor.Y - size, W: float64(n) * size * 0.6, H: size}
}

// Distance is the shortest distance from p to the drawn geometry.
func (s Shape) Distance(p domain.Point) float64 {
	switch s.Kind {
	case ShapeSegment:
		return distToSegment(p, s.Segment)
	case ShapeArrow:
		return math.Min(distToSegment(p, s.Segment),
			math.Min(distToSegment(p, s.Barbs[0]), distToSegment(p, s.Barbs[1])))
	case ShapeRect:
		best := math.Inf(1)
		for _, e := range s.Rect.Edges() {
			best = math.Min(best, distToSegment(p, e))
		}
		return best
	case ShapeCircle:
		return math.Abs(dist(s.Center, p) - s.Radius)
	case ShapeText:
		box := TextBox(s.Points[0], s.Text, s.FontSize)
		if box.Contains(p) {
			return 0
		}
		best := math.Inf(1)
		for _, e := range box.Edges() {
			best = math.Min(best, distToSegment(p, e))
		}
		return best
	}
	switch len(s.Points) {
	case 0:
		return math.Inf(1)
	case 1:
		return dist(s.Points[0], p)
	}
	best := math.Inf(1)
	for i := 1; i < len(s.Points); i++ {
		best = math.Min(best, distToSegment(p, Segment{s.Points[i-1], s.Points[i]}))
	}
	return best
}

func dist(a, b domain.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func distToSegment(p domain.Point, s Segment) float64 {
	dx, dy := s.B.X-s.A.X, s.B.Y-s.A.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, s.A)
	}
	t := ((p.X-s.A.X)*dx + (p.Y-s.A.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return dist(p, domain.Point{X: s.A.X + t*dx, Y: s.A.Y + t*dy})
}
