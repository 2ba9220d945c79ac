package whiteboard

import (
	"slices"

	"github.com/dkeye/Seminar/internal/domain"
)

// change records one local mutation as the list before and after it.
type change struct {
	from, to Elements
}

type stack []change

func (s *stack) push(c change) { *s = append(*s, c) }

func (s *stack) pop() (change, bool) {
	if len(*s) == 0 {
		return change{}, false
	}
	c := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return c, true
}

func (s *stack) reset() { *s = nil }

// transition moves cur along a -> b. When cur is still a the result is b
// itself; otherwise the a -> b diff is rebased onto cur so edits made by
// other authors since a survive.
func transition(cur, a, b Elements) Elements {
	if cur.Same(a) {
		return b
	}
	return rebase(cur, a, b)
}

func rebase(cur, a, b Elements) Elements {
	before := index(a)
	after := index(b)
	out := cur.items()

	// Drop what a -> b removed.
	out = slices.DeleteFunc(out, func(e domain.DrawingElement) bool {
		_, inA := before[e.ID]
		_, inB := after[e.ID]
		return inA && !inB
	})

	// Revert replacements nobody else has touched since.
	for i, e := range out {
		old, inA := before[e.ID]
		nu, inB := after[e.ID]
		if inA && inB && !sameElement(old, nu) && sameElement(e, old) {
			out[i] = nu
		}
	}

	// Re-insert what a -> b added, after its nearest surviving predecessor in b.
	pos := make(map[domain.ElementID]bool, len(out))
	for _, e := range out {
		pos[e.ID] = true
	}
	items := b.items()
	for i, e := range items {
		if _, inA := before[e.ID]; inA || pos[e.ID] {
			continue
		}
		at := 0
		for j := i - 1; j >= 0; j-- {
			if k := slices.IndexFunc(out, func(x domain.DrawingElement) bool { return x.ID == items[j].ID }); k >= 0 {
				at = k + 1
				break
			}
		}
		out = slices.Insert(out, at, e)
		pos[e.ID] = true
	}
	return NewElements(out)
}

func index(v Elements) map[domain.ElementID]domain.DrawingElement {
	m := make(map[domain.ElementID]domain.DrawingElement, v.Len())
	v.Each(func(_ int, e domain.DrawingElement) bool {
		m[e.ID] = e
		return true
	})
	return m
}

// Diff is the net difference between two versions of the list.
type Diff struct {
	Added   []domain.DrawingElement
	Updated []domain.DrawingElement
	Removed []domain.ElementID
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

func diff(old, nu Elements) Diff {
	var d Diff
	if old.Same(nu) {
		return d
	}
	was := index(old)
	is := index(nu)
	nu.Each(func(_ int, e domain.DrawingElement) bool {
		prev, ok := was[e.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, e.Clone())
		case !sameElement(prev, e):
			d.Updated = append(d.Updated, e.Clone())
		}
		return true
	})
	old.Each(func(_ int, e domain.DrawingElement) bool {
		if _, ok := is[e.ID]; !ok {
			d.Removed = append(d.Removed, e.ID)
		}
		return true
	})
	return d
}

func sameElement(a, b domain.DrawingElement) bool {
	return a.ID == b.ID &&
		a.Tool == b.Tool &&
		a.Style == b.Style &&
		a.Text == b.Text &&
		a.AuthorID == b.AuthorID &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		slices.Equal(a.Points, b.Points)
}
