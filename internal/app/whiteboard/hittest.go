package whiteboard

import (
	"github.com/dkeye/Seminar/internal/domain"
)

// HitTest picks the element an eraser at p removes: the nearest one whose
// geometry lies within radius plus half its stroke width. Ties go to the
// topmost element. ok is false when nothing is in range.
func HitTest(list Elements, p domain.Point, radius float64) (idx int, ok bool) {
	best := 0.0
	idx = -1
	list.Each(func(i int, e domain.DrawingElement) bool {
		d := Geometry(e).Distance(p)
		if d > radius+e.Style.StrokeWidth/2 {
			return true
		}
		if idx < 0 || d <= best {
			idx, best = i, d
		}
		return true
	})
	return idx, idx >= 0
}
