package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/rs/zerolog/log"
)

type ChangeKind int

const (
	NoChange ChangeKind = iota
	Added
	Updated
	Removed
)

// RosterChange describes what one participant event did to the roster.
// Cleared lists presenters whose screen-share flag was reset.
type RosterChange struct {
	Kind        ChangeKind
	Participant domain.Participant
	Cleared     []domain.ParticipantID
}

// Roster is the local view of the participants of one room, keyed by
// participant id. Order follows first appearance.
type Roster struct {
	mu       sync.RWMutex
	byID     map[domain.ParticipantID]*domain.Participant
	order    []domain.ParticipantID
	departed map[domain.ParticipantID]struct{}
	self     domain.ParticipantID
}

func NewRoster() *Roster {
	return &Roster{
		byID:     make(map[domain.ParticipantID]*domain.Participant),
		departed: make(map[domain.ParticipantID]struct{}),
	}
}

// SetSelf records which participant record belongs to the local user.
func (r *Roster) SetSelf(id domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.self = id
}

func (r *Roster) Self() (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[r.self]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// LocalRole is the role of the local participant, or ATTENDEE when the
// local record is not known yet.
func (r *Roster) LocalRole() domain.Role {
	if p, ok := r.Self(); ok {
		return p.Role
	}
	return domain.RoleAttendee
}

// ApplySnapshot replaces the whole roster. Participants already LEFT in
// the snapshot are not listed.
func (r *Roster) ApplySnapshot(list []domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[domain.ParticipantID]*domain.Participant, len(list))
	r.order = r.order[:0]
	for _, p := range list {
		if p.ID == "" || p.Status == domain.StatusLeft {
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		cp := p
		if cp.Status == "" {
			cp.Status = domain.StatusJoined
		}
		r.byID[p.ID] = &cp
		r.order = append(r.order, p.ID)
	}
	log.Info().Str("module", "app.roster").Int("participants", len(r.order)).Msg("applied roster snapshot")
}

// Upsert inserts or refreshes a participant. Applying the same record twice
// leaves one entry. Records of departed participants are ignored since a
// re-join always carries a new id.
func (r *Roster) Upsert(p domain.Participant) (RosterChange, error) {
	if p.ID == "" {
		return RosterChange{}, domain.NewError(domain.KindInvalidArgument, "roster.upsert", fmt.Errorf("participant without id"))
	}
	if p.Status == "" {
		p.Status = domain.StatusJoined
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, gone := r.departed[p.ID]; gone || p.Status == domain.StatusLeft {
		return RosterChange{}, nil
	}
	cur, ok := r.byID[p.ID]
	if !ok {
		cp := p
		r.byID[p.ID] = &cp
		r.order = append(r.order, p.ID)
		log.Info().Str("module", "app.roster").Str("participant", string(p.ID)).Str("status", string(p.Status)).Msg("participant added")
		return RosterChange{Kind: Added, Participant: cp}, nil
	}
	status := cur.Status
	if status != p.Status && status.CanTransition(p.Status) {
		status = p.Status
	}
	next := p
	next.Status = status
	if next == *cur {
		return RosterChange{Kind: NoChange, Participant: next}, nil
	}
	*cur = next
	return RosterChange{Kind: Updated, Participant: next}, nil
}

// Admit moves a WAITING participant to JOINED.
func (r *Roster) Admit(id domain.ParticipantID) (RosterChange, error) {
	return r.update("roster.admit", id, func(p *domain.Participant) bool {
		if !p.Status.CanTransition(domain.StatusJoined) {
			return false
		}
		p.Status = domain.StatusJoined
		return true
	})
}

// Remove marks a participant LEFT and drops it from the roster. Unknown ids
// are not an error: the participant is already gone from the local view.
func (r *Roster) Remove(id domain.ParticipantID) RosterChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return RosterChange{}
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.departed[id] = struct{}{}
	left := *p
	left.Status = domain.StatusLeft
	log.Info().Str("module", "app.roster").Str("participant", string(id)).Msg("participant left")
	return RosterChange{Kind: Removed, Participant: left}
}

func (r *Roster) SetRole(id domain.ParticipantID, role domain.Role) (RosterChange, error) {
	return r.update("roster.role", id, func(p *domain.Participant) bool {
		if p.Role == role {
			return false
		}
		p.Role = role
		return true
	})
}

func (r *Roster) SetHand(id domain.ParticipantID, raised bool) (RosterChange, error) {
	return r.update("roster.hand", id, func(p *domain.Participant) bool {
		if p.Media.HandRaised == raised {
			return false
		}
		p.Media.HandRaised = raised
		return true
	})
}

// SetMedia applies the flags present in the payload; absent flags keep
// their value. A screen-share flag going up clears every other presenter.
func (r *Roster) SetMedia(m core.MediaStatePayload) (RosterChange, error) {
	if m.IsScreenSharing != nil && *m.IsScreenSharing {
		ch, err := r.StartScreenShare(m.ParticipantID)
		if err != nil {
			return ch, err
		}
		m.IsScreenSharing = nil
		rest, err := r.setMedia(m)
		rest.Cleared = ch.Cleared
		if rest.Kind == NoChange {
			rest.Kind = ch.Kind
		}
		return rest, err
	}
	return r.setMedia(m)
}

func (r *Roster) setMedia(m core.MediaStatePayload) (RosterChange, error) {
	return r.update("roster.media", m.ParticipantID, func(p *domain.Participant) bool {
		before := p.Media
		if m.IsMuted != nil {
			p.Media.Muted = *m.IsMuted
		}
		if m.IsVideoOn != nil {
			p.Media.VideoOn = *m.IsVideoOn
		}
		if m.IsScreenSharing != nil {
			p.Media.ScreenSharing = *m.IsScreenSharing
		}
		return before != p.Media
	})
}

// StartScreenShare flags the presenter and clears the flag on everyone else.
func (r *Roster) StartScreenShare(presenter domain.ParticipantID) (RosterChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[presenter]
	if !ok {
		return RosterChange{}, r.stale("roster.screen_share", presenter)
	}
	var cleared []domain.ParticipantID
	for _, id := range r.order {
		o := r.byID[id]
		if id != presenter && o.Media.ScreenSharing {
			o.Media.ScreenSharing = false
			cleared = append(cleared, id)
		}
	}
	kind := NoChange
	if !p.Media.ScreenSharing || len(cleared) > 0 {
		kind = Updated
	}
	p.Media.ScreenSharing = true
	return RosterChange{Kind: kind, Participant: *p, Cleared: cleared}, nil
}

// StopScreenShare clears the presenter's flag, or every flag when the
// presenter is empty.
func (r *Roster) StopScreenShare(presenter domain.ParticipantID) RosterChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cleared []domain.ParticipantID
	for _, id := range r.order {
		o := r.byID[id]
		if (presenter == "" || id == presenter) && o.Media.ScreenSharing {
			o.Media.ScreenSharing = false
			cleared = append(cleared, id)
		}
	}
	if len(cleared) == 0 {
		return RosterChange{}
	}
	ch := RosterChange{Kind: Updated, Cleared: cleared}
	if p, ok := r.byID[cleared[0]]; ok {
		ch.Participant = *p
	}
	return ch
}

// Presenter returns the participant currently sharing a screen.
func (r *Roster) Presenter() (domain.ParticipantID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if r.byID[id].Media.ScreenSharing {
			return id, true
		}
	}
	return "", false
}

// ApplyParticipantEvent routes one participant event to the matching
// mutation. An update naming an unknown participant returns an error of
// kind StaleParticipantReference so the caller can refetch the roster.
func (r *Roster) ApplyParticipantEvent(ev core.Event) (RosterChange, error) {
	switch ev.Type {
	case core.EvtParticipantJoined:
		var p core.ParticipantPayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.Upsert(p.Participant)
	case core.EvtParticipantAdmitted:
		var p core.ParticipantRefPayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.Admit(p.ID)
	case core.EvtParticipantLeft, core.EvtParticipantRemoved:
		var p core.ParticipantRefPayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.Remove(p.ID), nil
	case core.EvtRoleChanged:
		var p core.RoleChangedPayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.SetRole(p.ID, p.Role)
	case core.EvtHandToggled:
		var p core.HandPayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.SetHand(p.ParticipantID, p.IsRaised)
	case core.EvtMediaStateUpdated:
		var p core.MediaStatePayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.SetMedia(p)
	case core.EvtScreenShareStarted:
		var p core.ScreenSharePayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.StartScreenShare(p.PresenterID)
	case core.EvtScreenShareStopped:
		var p core.ScreenSharePayload
		if err := ev.Decode(&p); err != nil {
			return RosterChange{}, err
		}
		return r.StopScreenShare(p.PresenterID), nil
	}
	return RosterChange{}, fmt.Errorf("roster: unexpected event %q", ev.Type)
}

func (r *Roster) Get(id domain.ParticipantID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// FindByUser returns the current participant record of a user.
func (r *Roster) FindByUser(uid domain.UserID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if p := r.byID[id]; p.UserID == uid {
			return *p, true
		}
	}
	return domain.Participant{}, false
}

func (r *Roster) List() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Roster) update(op string, id domain.ParticipantID, fn func(p *domain.Participant) bool) (RosterChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		if _, gone := r.departed[id]; gone {
			return RosterChange{}, nil
		}
		return RosterChange{}, r.stale(op, id)
	}
	if !fn(p) {
		return RosterChange{Kind: NoChange, Participant: *p}, nil
	}
	return RosterChange{Kind: Updated, Participant: *p}, nil
}

func (r *Roster) stale(op string, id domain.ParticipantID) error {
	log.Warn().Str("module", "app.roster").Str("participant", string(id)).Str("op", op).Msg("unknown participant")
	return domain.NewError(domain.KindStaleParticipantReference, op, fmt.Errorf("participant %q", id))
}
