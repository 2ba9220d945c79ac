package app

import (
	"testing"

	"github.com/dkeye/Seminar/internal/domain"
)

func TestChatStreamAppendOrderAndDedupe(t *testing.T) {
	c := NewChatStream()
	c.Load([]domain.ChatMessage{{ID: "1", Body: "hi"}, {ID: "2", Body: "there"}})
	if !c.Append(domain.ChatMessage{ID: "3", Body: "psst", RecipientID: "p"}) {
		t.Fatal("append rejected")
	}
	if c.Append(domain.ChatMessage{ID: "2", Body: "there"}) {
		t.Fatal("redelivered message appended")
	}

	msgs := c.Messages()
	want := []domain.MessageID{"1", "2", "3"}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d", len(msgs))
	}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Fatalf("msgs[%d] = %s, want %s", i, msgs[i].ID, id)
		}
	}
	if msgs[2].Type != domain.MessagePrivate || msgs[0].Type != domain.MessagePublic {
		t.Fatalf("types = %s, %s", msgs[0].Type, msgs[2].Type)
	}
}

func TestChatStreamDelete(t *testing.T) {
	c := NewChatStream()
	c.Load([]domain.ChatMessage{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	if !c.Delete("2") {
		t.Fatal("delete failed")
	}
	if c.Delete("2") {
		t.Fatal("second delete reported success")
	}
	msgs := c.Messages()
	if len(msgs) != 2 || msgs[0].ID != "1" || msgs[1].ID != "3" {
		t.Fatalf("msgs = %+v", msgs)
	}
}
