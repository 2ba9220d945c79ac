package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

func TestRoomStateEvents(t *testing.T) {
	s := NewRoomState()
	s.ApplySnapshot(domain.Room{ID: "r1"})

	room, ok := s.Get()
	if !ok || room.Status != domain.RoomScheduled || room.Layout != domain.LayoutGallery {
		t.Fatalf("snapshot defaults = %+v, %v", room, ok)
	}

	steps := []struct {
		ev      core.Event
		changed bool
		status  domain.RoomStatus
	}{
		{mustEvent(t, core.EvtRoomStarted, nil), true, domain.RoomLive},
		{mustEvent(t, core.EvtRoomStarted, nil), false, domain.RoomLive},
		{mustEvent(t, core.EvtRoomEnded, nil), true, domain.RoomEnded},
		{mustEvent(t, core.EvtRoomStarted, nil), false, domain.RoomEnded},
	}
	for i, st := range steps {
		changed, err := s.ApplyRoomEvent(st.ev)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if changed != st.changed || s.Status() != st.status {
			t.Fatalf("step %d: changed=%v status=%s, want %v %s", i, changed, s.Status(), st.changed, st.status)
		}
	}
}

func TestRoomStateLayout(t *testing.T) {
	s := NewRoomState()
	s.ApplySnapshot(domain.Room{ID: "r1", Status: domain.RoomLive})

	if _, err := s.ApplyRoomEvent(mustEvent(t, core.EvtLayoutUpdated, core.LayoutPayload{Layout: domain.LayoutSpeaker})); err != nil {
		t.Fatal(err)
	}
	if room, _ := s.Get(); room.Layout != domain.LayoutSpeaker {
		t.Fatalf("layout = %s", room.Layout)
	}

	_, err := s.ApplyRoomEvent(mustEvent(t, core.EvtLayoutUpdated, core.LayoutPayload{Layout: "GRID"}))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("bad layout err = %v", err)
	}
	if room, _ := s.Get(); room.Layout != domain.LayoutSpeaker {
		t.Fatalf("layout changed by rejected event: %s", room.Layout)
	}
}
