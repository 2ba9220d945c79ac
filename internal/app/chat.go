package app

import (
	"sync"

	"github.com/dkeye/Seminar/internal/domain"
)

// ChatStream is the append-only message log of one room. Messages keep
// delivery order; deletion removes one entry without touching the others.
type ChatStream struct {
	mu    sync.RWMutex
	msgs  []domain.ChatMessage
	index map[domain.MessageID]struct{}
}

func NewChatStream() *ChatStream {
	return &ChatStream{index: make(map[domain.MessageID]struct{})}
}

// Load replaces the log with a fetched tail.
func (c *ChatStream) Load(tail []domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = make([]domain.ChatMessage, 0, len(tail))
	c.index = make(map[domain.MessageID]struct{}, len(tail))
	for _, m := range tail {
		c.appendLocked(m)
	}
}

// Append adds a delivered message. Redelivery of a known id is ignored.
func (c *ChatStream) Append(m domain.ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(m)
}

func (c *ChatStream) appendLocked(m domain.ChatMessage) bool {
	if m.ID != "" {
		if _, dup := c.index[m.ID]; dup {
			return false
		}
		c.index[m.ID] = struct{}{}
	}
	if m.Type == "" {
		m.Type = domain.MessagePublic
		if m.RecipientID != "" {
			m.Type = domain.MessagePrivate
		}
	}
	c.msgs = append(c.msgs, m)
	return true
}

func (c *ChatStream) Delete(id domain.MessageID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[id]; !ok {
		return false
	}
	delete(c.index, id)
	for i := range c.msgs {
		if c.msgs[i].ID == id {
			c.msgs = append(c.msgs[:i], c.msgs[i+1:]...)
			break
		}
	}
	return true
}

func (c *ChatStream) Messages() []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ChatMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *ChatStream) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}
