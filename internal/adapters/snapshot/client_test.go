package snapshot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/goccy/go-json"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /api/rooms/r1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			write(w, errorResponse{Error: "no token"})
			return
		}
		write(w, domain.Room{ID: "r1", Title: "Physics", Status: domain.RoomLive, Layout: domain.LayoutSpeaker})
	})
	mux.HandleFunc("GET /api/rooms/r1/participants", func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"participants": []domain.Participant{{ID: "a"}, {ID: "b"}}})
	})
	mux.HandleFunc("GET /api/rooms/r1/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "50" {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		write(w, map[string]any{"messages": []domain.ChatMessage{{ID: "m1", Body: "hello"}}})
	})
	mux.HandleFunc("GET /api/rooms/r1/whiteboard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessionId":"r1","elements":[`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/api/", time.Second)
	c.SetToken("tok")
	ctx := context.Background()

	room, err := c.FetchRoom(ctx, "r1")
	if err != nil || room.Title != "Physics" || room.Layout != domain.LayoutSpeaker {
		t.Fatalf("room = %+v, %v", room, err)
	}
	roster, err := c.FetchRoster(ctx, "r1")
	if err != nil || len(roster) != 2 {
		t.Fatalf("roster = %+v, %v", roster, err)
	}
	tail, err := c.FetchChatTail(ctx, "r1", 50)
	if err != nil || len(tail) != 1 || tail[0].Body != "hello" {
		t.Fatalf("chat = %+v, %v", tail, err)
	}
}

func TestFetchFailuresAreSnapshotErrors(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/api", time.Second)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"unauthorized", func() error { _, err := c.FetchRoom(ctx, "r1"); return err }},
		{"bad status", func() error { _, err := c.FetchChatTail(ctx, "r1", 10); return err }},
		{"not found", func() error { _, err := c.FetchRoster(ctx, "r2"); return err }},
		{"truncated body", func() error { _, err := c.FetchWhiteboard(ctx, "r1"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, domain.ErrSnapshotFetchFailed) {
				t.Fatalf("err = %v, want snapshot fetch failure", err)
			}
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/api", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchRoster(ctx, "r1")
	if !errors.Is(err, context.Canceled) || !errors.Is(err, domain.ErrSnapshotFetchFailed) {
		t.Fatalf("err = %v", err)
	}
}
