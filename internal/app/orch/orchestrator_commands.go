package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

var errNotLive = errors.New("session is not subscribed")

// issue sends one command. Confirmed commands get a Call that completes
// when the server echoes the correlation id, rejects it, or the timeout
// fires. Unconfirmed commands return a nil Call.
func (o *Orchestrator) issue(typ core.CommandType, payload any) (*app.Call, error) {
	op := string(typ)
	o.mu.Lock()
	s, phase, reconnecting := o.sess, o.phase, o.reconnecting
	o.mu.Unlock()
	if s == nil || phase != PhaseSubscribed || reconnecting {
		o.metrics.CommandSent(op, "disconnected")
		return nil, domain.NewError(domain.KindChannelDisconnected, op, errNotLive)
	}
	if err := o.policy.Authorize(s.Roster.LocalRole(), typ); err != nil {
		o.metrics.CommandSent(op, "denied")
		return nil, err
	}

	cmd := core.Command{Type: typ, Payload: payload}
	var call *app.Call
	if typ.Confirmed() {
		var err error
		if call, err = s.Pending.Add(&cmd); err != nil {
			return nil, err
		}
	}

	err := o.ch.Send(cmd)
	switch {
	case err == nil:
		o.metrics.CommandSent(op, "sent")
		o.metrics.SetPending(s.Pending.Len())
		return call, nil
	case errors.Is(err, core.ErrBackpressure) && o.policy.OnBackpressure(typ) == app.DropFrame:
		o.metrics.CommandSent(op, "dropped")
		if call != nil {
			s.Pending.Reject(cmd.CorrelationID, err)
		}
		return nil, nil
	case errors.Is(err, core.ErrBackpressure):
		err = domain.NewError(domain.KindCommandRejected, op, err)
	}
	o.metrics.CommandSent(op, "failed")
	if call != nil {
		s.Pending.Reject(cmd.CorrelationID, err)
	}
	return nil, err
}

// SendChat sends a chat message. Nothing is added locally: the message
// shows up when the server echoes it.
func (o *Orchestrator) SendChat(body string, to domain.ParticipantID) (*app.Call, error) {
	body, err := domain.NormalizeBody(body)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, string(core.CmdSendChat), err)
	}
	return o.issue(core.CmdSendChat, core.SendChatPayload{Content: body, RecipientID: to})
}

func (o *Orchestrator) DeleteChat(id domain.MessageID) (*app.Call, error) {
	if id == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, string(core.CmdDeleteChat), errors.New("empty message id"))
	}
	return o.issue(core.CmdDeleteChat, core.MessageRefPayload{ID: id})
}

func (o *Orchestrator) SendReaction(kind domain.ReactionKind) (*app.Call, error) {
	if kind == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, string(core.CmdSendReaction), errors.New("empty reaction"))
	}
	return o.issue(core.CmdSendReaction, core.SendReactionPayload{Kind: kind})
}

func (o *Orchestrator) RaiseHand(raised bool) (*app.Call, error) {
	return o.issue(core.CmdToggleHand, core.HandPayload{ParticipantID: o.selfID(), IsRaised: raised})
}

// IssueLayoutChange asks the server for a new layout. The local layout
// changes only when layout-updated arrives.
func (o *Orchestrator) IssueLayoutChange(layout domain.LayoutMode) (*app.Call, error) {
	if !layout.Valid() {
		return nil, domain.NewError(domain.KindInvalidArgument, string(core.CmdUpdateLayout), fmt.Errorf("layout %q", layout))
	}
	return o.issue(core.CmdUpdateLayout, core.LayoutPayload{Layout: layout})
}

func (o *Orchestrator) Admit(id domain.ParticipantID) (*app.Call, error) {
	if err := o.known(core.CmdAdmitParticipant, id); err != nil {
		return nil, err
	}
	return o.issue(core.CmdAdmitParticipant, core.ParticipantRefPayload{ID: id})
}

func (o *Orchestrator) Remove(id domain.ParticipantID) (*app.Call, error) {
	if err := o.known(core.CmdRemoveParticipant, id); err != nil {
		return nil, err
	}
	return o.issue(core.CmdRemoveParticipant, core.ParticipantRefPayload{ID: id})
}

func (o *Orchestrator) known(typ core.CommandType, id domain.ParticipantID) error {
	s, _ := o.current()
	if s == nil {
		return domain.NewError(domain.KindChannelDisconnected, string(typ), errNotLive)
	}
	if _, ok := s.Roster.Get(id); !ok {
		return domain.NewError(domain.KindStaleParticipantReference, string(typ), fmt.Errorf("participant %s", id))
	}
	return nil
}

func (o *Orchestrator) selfID() domain.ParticipantID {
	s, _ := o.current()
	if s == nil {
		return ""
	}
	p, _ := s.Roster.Self()
	return p.ID
}
