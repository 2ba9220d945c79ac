package whiteboard

import (
	"sort"
	"sync"

	"github.com/dkeye/Seminar/internal/domain"
)

// Cursors tracks the last known pointer of every remote author.
// The local author's own cursor is never stored.
type Cursors struct {
	mu   sync.RWMutex
	self domain.UserID
	pos  map[domain.UserID]domain.CursorPosition
}

func NewCursors(self domain.UserID) *Cursors {
	return &Cursors{self: self, pos: make(map[domain.UserID]domain.CursorPosition)}
}

func (c *Cursors) Update(p domain.CursorPosition) bool {
	if p.UserID == "" || p.UserID == c.self {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos[p.UserID] = p
	return true
}

func (c *Cursors) Remove(user domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pos, user)
}

func (c *Cursors) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pos)
}

func (c *Cursors) Get(user domain.UserID) (domain.CursorPosition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pos[user]
	return p, ok
}

// Snapshot returns cursors ordered by user id.
func (c *Cursors) Snapshot() []domain.CursorPosition {
	c.mu.RLock()
	out := make([]domain.CursorPosition, 0, len(c.pos))
	for _, p := range c.pos {
		out = append(out, p)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
