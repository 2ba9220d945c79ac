package core

import (
	"context"

	"github.com/dkeye/Seminar/internal/domain"
)

//go:generate mockgen -destination mocks/mock_snapshot.go -package mocks github.com/dkeye/Seminar/internal/core SnapshotSource

// SnapshotSource is the HTTP snapshot collaborator. Each call is made once
// per join or reconnect, never polled.
type SnapshotSource interface {
	FetchRoom(ctx context.Context, room domain.RoomID) (domain.Room, error)
	FetchRoster(ctx context.Context, room domain.RoomID) ([]domain.Participant, error)
	FetchChatTail(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error)
	FetchWhiteboard(ctx context.Context, room domain.RoomID) (domain.WhiteboardSnapshot, error)
}

// Baseline is everything a join or reconnect needs before live events.
type Baseline struct {
	Room       domain.Room
	Roster     []domain.Participant
	ChatTail   []domain.ChatMessage
	Whiteboard domain.WhiteboardSnapshot
}
