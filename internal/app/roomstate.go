package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomState holds room metadata. It changes only through snapshots and
// server events; nothing here is applied optimistically.
type RoomState struct {
	mu     sync.RWMutex
	room   domain.Room
	loaded bool
}

func NewRoomState() *RoomState { return &RoomState{} }

func (s *RoomState) ApplySnapshot(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.Layout == "" {
		room.Layout = domain.LayoutGallery
	}
	if room.Status == "" {
		room.Status = domain.RoomScheduled
	}
	s.room = room
	s.loaded = true
	log.Info().Str("module", "app.room").Str("room", string(room.ID)).Str("status", string(room.Status)).Msg("applied room snapshot")
}

func (s *RoomState) Get() (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, s.loaded
}

func (s *RoomState) Status() domain.RoomStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.Status
}

func (s *RoomState) SetStatus(st domain.RoomStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// ENDED is terminal.
	if s.room.Status == st || s.room.Status == domain.RoomEnded {
		return false
	}
	s.room.Status = st
	log.Info().Str("module", "app.room").Str("room", string(s.room.ID)).Str("status", string(st)).Msg("room status changed")
	return true
}

func (s *RoomState) SetLayout(l domain.LayoutMode) error {
	if !l.Valid() {
		return domain.NewError(domain.KindInvalidArgument, "room.layout", fmt.Errorf("layout %q", l))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room.Layout = l
	return nil
}

// ApplyRoomEvent handles room-started, room-ended and layout-updated.
func (s *RoomState) ApplyRoomEvent(ev core.Event) (bool, error) {
	switch ev.Type {
	case core.EvtRoomStarted:
		return s.SetStatus(domain.RoomLive), nil
	case core.EvtRoomEnded:
		return s.SetStatus(domain.RoomEnded), nil
	case core.EvtLayoutUpdated:
		var p core.LayoutPayload
		if err := ev.Decode(&p); err != nil {
			return false, err
		}
		if err := s.SetLayout(p.Layout); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("room: unexpected event %q", ev.Type)
}
