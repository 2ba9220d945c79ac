package whiteboard

import (
	"testing"

	"github.com/dkeye/Seminar/internal/domain"
)

func TestCursorsIgnoreSelfAndDropOnLeave(t *testing.T) {
	c := NewCursors("me")
	if c.Update(domain.CursorPosition{UserID: "me", X: 1}) {
		t.Fatal("own cursor must not be tracked")
	}
	c.Update(domain.CursorPosition{UserID: "b", X: 1, Y: 2})
	c.Update(domain.CursorPosition{UserID: "a", X: 3, Y: 4})
	c.Update(domain.CursorPosition{UserID: "b", X: 5, Y: 6})

	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].UserID != "a" || snap[1].X != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	c.Remove("b")
	if _, ok := c.Get("b"); ok {
		t.Fatal("cursor of a departed participant must be removed")
	}
}
