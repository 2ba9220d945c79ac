package orch

import (
	"errors"
	"time"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

// effects are the follow-ups of one event that must run without mu held.
type effects struct {
	leave          bool
	refetch        bool
	releaseDisplay bool
	closeStreams   []core.RemoteStream
}

// handleEvent runs on the channel reader goroutine, one event at a time in
// server order.
func (o *Orchestrator) handleEvent(ev core.Event) {
	o.metrics.EventReceived(string(ev.Type))

	o.mu.Lock()
	s := o.sess
	if s == nil || (o.phase != PhaseSubscribed && o.phase != PhaseFetchingSnapshots) {
		o.mu.Unlock()
		return
	}
	fx := o.applyLocked(s, ev)
	o.mu.Unlock()

	for _, rs := range fx.closeStreams {
		if err := rs.Close(); err != nil {
			o.logger.Debug().Err(err).Str("participant", string(rs.ParticipantID())).Msg("remote stream close")
		}
	}
	if fx.releaseDisplay {
		o.releaseDisplay(s, false)
	}
	if fx.refetch {
		o.refetchRoster(s)
	}
	o.settle(s, ev)
	o.updateGauges(s)
	// the server already dropped us; nothing to announce
	if fx.leave {
		o.leave(s, false)
	}
}

// settle completes the pending command the event confirms or rejects.
// It runs after the event has been applied.
func (o *Orchestrator) settle(s *SessionContext, ev core.Event) {
	if ev.CorrelationID == "" {
		return
	}
	if ev.Type != core.EvtCommandError {
		s.Pending.Resolve(ev.CorrelationID, ev)
		return
	}
	var p core.CommandErrorPayload
	if err := ev.Decode(&p); err != nil {
		p = core.CommandErrorPayload{Code: "unknown", Message: err.Error()}
	}
	err := p.Err("command")
	if !s.Pending.Reject(ev.CorrelationID, err) {
		o.logger.Debug().Str("cid", ev.CorrelationID).Msg("command-error for unknown command")
		return
	}
	o.logger.Warn().Err(err).Str("cid", ev.CorrelationID).Msg("command rejected")
}

func (o *Orchestrator) applyLocked(s *SessionContext, ev core.Event) (fx effects) {
	logger := o.logger.With().Str("event", string(ev.Type)).Logger()
	bad := func(err error) effects {
		logger.Warn().Err(err).Msg("malformed event dropped")
		return effects{}
	}

	switch ev.Type {
	case core.EvtJoined:
		var p core.JoinedPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		if _, err := s.Roster.Upsert(p.Participant); err != nil {
			return bad(err)
		}
		s.Roster.SetSelf(p.Participant.ID)

	case core.EvtLeft:
		fx.leave = true

	case core.EvtRoomStarted, core.EvtRoomEnded, core.EvtLayoutUpdated:
		if _, err := s.RoomState.ApplyRoomEvent(ev); err != nil {
			return bad(err)
		}
		if ev.Type == core.EvtRoomEnded {
			fx.leave = true
		}

	case core.EvtParticipantJoined, core.EvtParticipantAdmitted, core.EvtParticipantLeft,
		core.EvtParticipantRemoved, core.EvtRoleChanged, core.EvtHandToggled,
		core.EvtMediaStateUpdated, core.EvtScreenShareStarted, core.EvtScreenShareStopped:
		self, _ := s.Roster.Self()
		ch, err := s.Roster.ApplyParticipantEvent(ev)
		if err != nil {
			if errors.Is(err, domain.ErrStaleParticipantReference) {
				logger.Info().Err(err).Msg("stale participant reference, refetching roster")
				fx.refetch = true
				return fx
			}
			return bad(err)
		}
		switch {
		case ch.Kind == app.Removed:
			id := ch.Participant.ID
			fx.closeStreams = s.remotes[id]
			delete(s.remotes, id)
			s.Cursors.Remove(ch.Participant.UserID)
			if self.ID != "" && id == self.ID {
				fx.leave = true
			}
		case self.ID != "" && s.display != nil:
			for _, id := range ch.Cleared {
				if id == self.ID {
					fx.releaseDisplay = true
				}
			}
		}

	case core.EvtChatMessage:
		var m domain.ChatMessage
		if err := ev.Decode(&m); err != nil {
			return bad(err)
		}
		s.Chat.Append(m)

	case core.EvtChatDeleted:
		var p core.MessageRefPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		s.Chat.Delete(p.ID)

	case core.EvtReaction:
		var r domain.Reaction
		if err := ev.Decode(&r); err != nil {
			return bad(err)
		}
		s.Reactions.Add(r)

	case core.EvtElementAdded:
		var p core.ElementPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		if err := s.Whiteboard.ApplyRemoteElement(p.Element); err != nil {
			return bad(err)
		}

	case core.EvtElementUpdated:
		var p core.UpdateElementPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		el := p.Updates
		el.ID = p.ID
		if err := s.Whiteboard.ApplyRemoteElement(el); err != nil {
			return bad(err)
		}

	case core.EvtElementRemoved:
		var p core.ElementRefPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		s.Whiteboard.ApplyRemoteRemoval(p.ID)

	case core.EvtWhiteboardCleared:
		s.Whiteboard.ApplyRemoteClear()

	case core.EvtCursorMoved:
		var p core.CursorPayload
		if err := ev.Decode(&p); err != nil {
			return bad(err)
		}
		s.Cursors.Update(domain.CursorPosition{UserID: p.UserID, X: p.X, Y: p.Y, At: time.Now()})

	case core.EvtCommandError:
		// settled after apply

	default:
		logger.Debug().Msg("unhandled event")
	}
	return fx
}

// handleState follows the channel lifecycle. It is called synchronously by
// the channel; on a resume that happens before the new reader starts.
func (o *Orchestrator) handleState(ev core.StateEvent) {
	o.mu.Lock()
	s, phase := o.sess, o.phase
	live := s != nil && (phase == PhaseSubscribed || phase == PhaseFetchingSnapshots)
	first := false
	if live && ev.New == core.ChannelReconnecting && !o.reconnecting {
		o.reconnecting = true
		first = true
		o.requeueInflightLocked(s)
	}
	o.mu.Unlock()
	if !live {
		return
	}

	switch {
	case ev.New == core.ChannelReconnecting:
		if ev.Attempt > 0 {
			o.metrics.ReconnectAttempt()
		}
		if first {
			n := s.Pending.Drain(domain.NewError(domain.KindChannelDisconnected, "reconnect", ev.Err))
			o.logger.Warn().Err(ev.Err).Int("pending", n).Msg("channel dropped, reconnecting")
			o.metrics.SetPending(0)
		}
	case ev.Resumed():
		o.resync(s)
	case ev.New == core.ChannelDisconnected:
		if phase != PhaseSubscribed {
			return
		}
		err := ev.Err
		if err == nil {
			err = errors.New("channel closed")
		}
		o.fail(s, domain.NewError(domain.KindChannelDisconnected, "channel", err))
	}
}

// leave is Leave for a session that may already have been replaced.
func (o *Orchestrator) leave(s *SessionContext, announce bool) {
	o.mu.Lock()
	if o.sess != s || o.phase == PhaseLeft || o.phase == PhaseError {
		o.mu.Unlock()
		return
	}
	wasLive := o.phase == PhaseSubscribed
	o.phase = PhaseLeft
	o.reconnecting = false
	o.mu.Unlock()

	if announce && wasLive {
		if err := o.ch.Send(core.Command{Type: core.CmdLeaveRoom}); err != nil {
			o.logger.Debug().Err(err).Msg("leave-room not sent")
		}
	}
	o.teardown(s, domain.NewError(domain.KindChannelDisconnected, "leave", errSessionLeft))
	o.logger.Info().Str("room", string(s.Room)).Msg("left")
}

var errSessionLeft = errors.New("session left")

// Leave announces the departure, closes the channel and releases every
// local and remote media stream. It is safe to call more than once.
func (o *Orchestrator) Leave() {
	o.mu.Lock()
	s := o.sess
	o.mu.Unlock()
	if s != nil {
		o.leave(s, true)
	}
}
