package whiteboard

import (
	"github.com/dkeye/Seminar/internal/domain"
)

const (
	bits  = 5
	width = 1 << bits
	mask  = width - 1
)

type node struct {
	kids  []*node
	items []domain.DrawingElement
}

// Elements is a persistent ordered list of drawing elements. Every
// mutation returns a new value that shares structure with the old one,
// so holding an old value is an O(1) snapshot. Append and Set are
// O(log32 n); Insert and Remove rebuild the list.
//
// The zero value is an empty list.
type Elements struct {
	root  *node
	tail  []domain.DrawingElement
	size  int
	shift uint
}

// NewElements builds a list holding items in order.
func NewElements(items []domain.DrawingElement) Elements {
	var v Elements
	for _, it := range items {
		v = v.Append(it)
	}
	return v
}

func (v Elements) Len() int { return v.size }

// Same reports whether both values are the same version of the list.
// Every mutation allocates a new tail or a new root, so identity of the
// two is enough. All empty lists are the same version.
func (v Elements) Same(o Elements) bool {
	if v.size != o.size || v.root != o.root {
		return false
	}
	return v.size == 0 || &v.tail[0] == &o.tail[0]
}

func (v Elements) tailOff() int {
	if v.size < width {
		return 0
	}
	return ((v.size - 1) >> bits) << bits
}

func (v Elements) arrayFor(i int) []domain.DrawingElement {
	if i >= v.tailOff() {
		return v.tail
	}
	n := v.root
	for level := v.shift; level > 0; level -= bits {
		n = n.kids[(i>>level)&mask]
	}
	return n.items
}

// At returns a copy of the element at index i. It panics when i is out
// of range.
func (v Elements) At(i int) domain.DrawingElement {
	if i < 0 || i >= v.size {
		panic("whiteboard: index out of range")
	}
	return v.arrayFor(i)[i&mask].Clone()
}

func (v Elements) Append(e domain.DrawingElement) Elements {
	if v.size-v.tailOff() < width {
		tail := make([]domain.DrawingElement, len(v.tail)+1)
		copy(tail, v.tail)
		tail[len(v.tail)] = e
		return Elements{root: v.root, tail: tail, size: v.size + 1, shift: v.shift}
	}

	root, shift := v.root, v.shift
	if root == nil {
		root, shift = &node{}, bits
	}
	tailNode := &node{items: v.tail}
	var newRoot *node
	if (v.size >> bits) > (1 << shift) {
		newRoot = &node{kids: []*node{root, newPath(shift, tailNode)}}
		shift += bits
	} else {
		newRoot = pushTail(v.size, shift, root, tailNode)
	}
	return Elements{
		root:  newRoot,
		tail:  []domain.DrawingElement{e},
		size:  v.size + 1,
		shift: shift,
	}
}

func pushTail(size int, level uint, parent, tailNode *node) *node {
	sub := ((size - 1) >> level) & mask
	ret := &node{kids: append([]*node(nil), parent.kids...)}
	var insert *node
	switch {
	case level == bits:
		insert = tailNode
	case sub < len(parent.kids):
		insert = pushTail(size, level-bits, parent.kids[sub], tailNode)
	default:
		insert = newPath(level-bits, tailNode)
	}
	if sub < len(ret.kids) {
		ret.kids[sub] = insert
	} else {
		ret.kids = append(ret.kids, insert)
	}
	return ret
}

func newPath(level uint, n *node) *node {
	if level == 0 {
		return n
	}
	return &node{kids: []*node{newPath(level-bits, n)}}
}

// Set replaces the element at index i.
func (v Elements) Set(i int, e domain.DrawingElement) Elements {
	if i < 0 || i >= v.size {
		panic("whiteboard: index out of range")
	}
	if i >= v.tailOff() {
		tail := append([]domain.DrawingElement(nil), v.tail...)
		tail[i&mask] = e
		return Elements{root: v.root, tail: tail, size: v.size, shift: v.shift}
	}
	return Elements{root: assoc(v.shift, v.root, i, e), tail: v.tail, size: v.size, shift: v.shift}
}

func assoc(level uint, n *node, i int, e domain.DrawingElement) *node {
	if level == 0 {
		items := append([]domain.DrawingElement(nil), n.items...)
		items[i&mask] = e
		return &node{items: items}
	}
	kids := append([]*node(nil), n.kids...)
	sub := (i >> level) & mask
	kids[sub] = assoc(level-bits, n.kids[sub], i, e)
	return &node{kids: kids}
}

// Each visits elements in stacking order until fn returns false. The
// elements are shared with the list; fn must not modify their points.
func (v Elements) Each(fn func(i int, e domain.DrawingElement) bool) {
	for i := 0; i < v.size; {
		arr := v.arrayFor(i)
		for _, e := range arr {
			if !fn(i, e) {
				return
			}
			i++
		}
	}
}

// Slice copies the list, points included, into a fresh slice.
func (v Elements) Slice() []domain.DrawingElement {
	out := v.items()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// items is Slice without copying points, for rebuilding lists.
func (v Elements) items() []domain.DrawingElement {
	out := make([]domain.DrawingElement, 0, v.size)
	v.Each(func(_ int, e domain.DrawingElement) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Index returns the position of id, or -1.
func (v Elements) Index(id domain.ElementID) int {
	idx := -1
	v.Each(func(i int, e domain.DrawingElement) bool {
		if e.ID == id {
			idx = i
			return false
		}
		return true
	})
	return idx
}

func (v Elements) Find(id domain.ElementID) (domain.DrawingElement, bool) {
	if i := v.Index(id); i >= 0 {
		return v.At(i), true
	}
	return domain.DrawingElement{}, false
}

// Remove drops id from the list. The second result is false when id
// is absent, in which case v is returned unchanged.
func (v Elements) Remove(id domain.ElementID) (Elements, bool) {
	i := v.Index(id)
	if i < 0 {
		return v, false
	}
	items := v.items()
	return NewElements(append(items[:i], items[i+1:]...)), true
}

// Insert places e at index i, clamped to [0, Len].
func (v Elements) Insert(i int, e domain.DrawingElement) Elements {
	if i >= v.size {
		return v.Append(e)
	}
	if i < 0 {
		i = 0
	}
	items := v.items()
	items = append(items[:i], append([]domain.DrawingElement{e}, items[i:]...)...)
	return NewElements(items)
}

// Upsert replaces the element with the same id in place, or appends it.
func (v Elements) Upsert(e domain.DrawingElement) Elements {
	if i := v.Index(e.ID); i >= 0 {
		return v.Set(i, e)
	}
	return v.Append(e)
}
