package orch

import (
	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/media"
	"github.com/dkeye/Seminar/internal/app/whiteboard"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

// SessionContext holds every piece of state for one joined room. It is
// built by Join and torn down by Leave; nothing in it is global.
type SessionContext struct {
	Room     domain.RoomID
	Identity domain.Identity

	RoomState  *app.RoomState
	Roster     *app.Roster
	Chat       *app.ChatStream
	Reactions  *app.ReactionFeed
	Whiteboard *whiteboard.Engine
	Cursors    *whiteboard.Cursors
	Pending    *app.PendingTable
	Media      *media.Manager // nil without a device platform

	local    *media.Resource
	display  *media.Resource
	remotes  map[domain.ParticipantID][]core.RemoteStream
	unsent   []intent
	inflight []sentIntent
	unsubs   []func()
}

func newSessionContext(room domain.RoomID, who domain.Identity, opts Options, devices core.DevicePlatform) *SessionContext {
	s := &SessionContext{
		Room:      room,
		Identity:  who,
		RoomState: app.NewRoomState(),
		Roster:    app.NewRoster(),
		Chat:      app.NewChatStream(),
		Reactions: app.NewReactionFeed(opts.ReactionTTL),
		Whiteboard: whiteboard.NewEngine(whiteboard.Options{
			Author:       who.UserID,
			EraserRadius: opts.EraserRadius,
			CanvasWidth:  opts.CanvasWidth,
			CanvasHeight: opts.CanvasHeight,
		}),
		Cursors: whiteboard.NewCursors(who.UserID),
		Pending: app.NewPendingTable(opts.CommandTimeout),
		remotes: make(map[domain.ParticipantID][]core.RemoteStream),
	}
	if devices != nil {
		s.Media = media.NewManager(devices, string(who.UserID))
	}
	return s
}

func (s *SessionContext) remoteCount() int {
	n := 0
	for _, rs := range s.remotes {
		n += len(rs)
	}
	return n
}
