package orch

import (
	"errors"
	"slices"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/whiteboard"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

type intentKind int

const (
	intentAdd intentKind = iota
	intentUpdate
	intentRemove
	intentClear
)

// intent is one local whiteboard mutation waiting to reach the server.
type intent struct {
	kind intentKind
	el   domain.DrawingElement
	id   domain.ElementID
}

type sentIntent struct {
	cid string
	intent
}

func (in intent) command() (core.CommandType, any) {
	switch in.kind {
	case intentAdd:
		return core.CmdWhiteboardAdd, core.ElementPayload{Element: in.el}
	case intentUpdate:
		return core.CmdWhiteboardUpdate, core.UpdateElementPayload{ID: in.el.ID, Updates: in.el}
	case intentRemove:
		return core.CmdWhiteboardRemove, core.ElementRefPayload{ID: in.id}
	}
	return core.CmdWhiteboardClear, nil
}

// queue keeps at most one intent per element. A clear supersedes
// everything queued before it.
func (s *SessionContext) queue(in intent) {
	if in.kind == intentClear {
		s.unsent = append(s.unsent[:0], in)
		return
	}
	for i, q := range s.unsent {
		if q.kind != intentClear && q.id == in.id {
			s.unsent = append(s.unsent[:i], s.unsent[i+1:]...)
			break
		}
	}
	s.unsent = append(s.unsent, in)
}

func (o *Orchestrator) whiteboardHooks(s *SessionContext) whiteboard.Hooks {
	return whiteboard.Hooks{
		Added: func(el domain.DrawingElement) {
			o.sendIntent(s, intent{kind: intentAdd, el: el, id: el.ID})
		},
		Updated: func(el domain.DrawingElement) {
			o.sendIntent(s, intent{kind: intentUpdate, el: el, id: el.ID})
		},
		Removed: func(id domain.ElementID) {
			o.sendIntent(s, intent{kind: intentRemove, id: id})
		},
		Cleared: func() {
			o.sendIntent(s, intent{kind: intentClear})
		},
		Cursor: func(p domain.Point) {
			// fire and forget
			_, _ = o.issue(core.CmdCursorMove, core.CursorPayload{UserID: s.Identity.UserID, X: p.X, Y: p.Y})
		},
	}
}

// sendIntent issues a whiteboard command. When the channel is down, or the
// command is later lost to a disconnect or timeout, the intent is kept for
// re-send after the next resync.
func (o *Orchestrator) sendIntent(s *SessionContext, in intent) {
	typ, payload := in.command()
	call, err := o.issue(typ, payload)
	if err != nil {
		if errors.Is(err, domain.ErrChannelDisconnected) {
			o.requeue(s, in)
			return
		}
		o.logger.Warn().Err(err).Str("type", string(typ)).Msg("whiteboard command failed")
		return
	}
	if call == nil {
		return
	}
	o.mu.Lock()
	s.inflight = append(s.inflight, sentIntent{cid: call.ID, intent: in})
	o.mu.Unlock()
	go o.watchIntent(s, call)
}

func (o *Orchestrator) watchIntent(s *SessionContext, call *app.Call) {
	<-call.Done()
	_, err := call.Result()

	o.mu.Lock()
	defer o.mu.Unlock()
	i := slices.IndexFunc(s.inflight, func(si sentIntent) bool { return si.cid == call.ID })
	if i < 0 {
		return
	}
	in := s.inflight[i].intent
	s.inflight = slices.Delete(s.inflight, i, i+1)
	if err == nil || !o.keepsUnsentLocked(s) {
		return
	}
	if errors.Is(err, domain.ErrChannelDisconnected) || errors.Is(err, app.ErrCommandTimeout) {
		s.queue(in)
		return
	}
	o.logger.Warn().Err(err).Str("type", string(call.Type)).Msg("whiteboard command rejected")
}

func (o *Orchestrator) requeue(s *SessionContext, in intent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.keepsUnsentLocked(s) {
		s.queue(in)
	}
}

// keepsUnsentLocked reports whether s is still a session that may resync.
func (o *Orchestrator) keepsUnsentLocked(s *SessionContext) bool {
	return o.sess == s && o.phase != PhaseLeft && o.phase != PhaseError
}

// requeueInflightLocked moves every unconfirmed whiteboard command back to
// the unsent set. Called when the channel drops.
func (o *Orchestrator) requeueInflightLocked(s *SessionContext) {
	for _, si := range s.inflight {
		s.queue(si.intent)
	}
	s.inflight = nil
}

// resendUnsent re-applies queued intents on top of the fresh baseline and
// sends them again. An add for an element the server already has becomes
// an update; a removal of an element it no longer has is dropped.
func (o *Orchestrator) resendUnsent(s *SessionContext) {
	o.mu.Lock()
	queued := s.unsent
	s.unsent = nil
	o.mu.Unlock()
	if len(queued) == 0 {
		return
	}

	sent := 0
	for _, in := range queued {
		switch in.kind {
		case intentClear:
			s.Whiteboard.ApplyRemoteClear()
		case intentRemove:
			if !s.Whiteboard.ApplyRemoteRemoval(in.id) {
				continue
			}
		default:
			_, exists := s.Whiteboard.List().Find(in.el.ID)
			if err := s.Whiteboard.ApplyRemoteElement(in.el); err != nil {
				o.logger.Warn().Err(err).Msg("dropping unsent element")
				continue
			}
			in.kind = intentAdd
			if exists {
				in.kind = intentUpdate
			}
		}
		o.sendIntent(s, in)
		sent++
	}
	o.logger.Info().Int("queued", len(queued)).Int("sent", sent).Msg("unsent whiteboard changes re-sent")
}

// Unsent returns how many whiteboard changes wait for a connection.
func (o *Orchestrator) Unsent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return 0
	}
	return len(o.sess.unsent)
}
