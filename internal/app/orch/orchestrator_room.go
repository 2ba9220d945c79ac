package orch

import (
	"context"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Join fetches the baseline, then subscribes and connects. Any snapshot
// failure fails the whole join and leaves the session in ERROR; live
// events are never accepted before the baseline is applied.
func (o *Orchestrator) Join(ctx context.Context, room domain.RoomID, who domain.Identity) error {
	o.mu.Lock()
	switch o.phase {
	case PhaseInitializing, PhaseFetchingSnapshots, PhaseSubscribed:
		o.mu.Unlock()
		return ErrAlreadyJoined
	}
	s := newSessionContext(room, who, o.opts, o.devices)
	o.sess = s
	o.phase = PhaseInitializing
	o.lastErr = nil
	o.reconnecting = false
	o.mu.Unlock()

	logger := o.logger.With().Str("room", string(room)).Str("user", string(who.UserID)).Logger()
	logger.Info().Msg("joining")

	o.setPhase(s, PhaseFetchingSnapshots)
	base, err := o.fetchBaseline(ctx, room)
	if err != nil {
		logger.Error().Err(err).Msg("join failed: snapshot fetch")
		o.fail(s, err)
		return err
	}

	o.mu.Lock()
	if o.sess != s {
		o.mu.Unlock()
		return ErrAlreadyJoined
	}
	orphans := o.applyBaselineLocked(s, base)
	o.mu.Unlock()
	closeStreams(orphans)

	s.Whiteboard.SetHooks(o.whiteboardHooks(s))
	unsubs := []func(){o.ch.Subscribe(o.handleEvent), o.ch.OnStateChange(o.handleState)}
	o.mu.Lock()
	s.unsubs = append(s.unsubs, unsubs...)
	o.mu.Unlock()
	if err := o.ch.Connect(ctx, room, who); err != nil {
		logger.Error().Err(err).Msg("join failed: connect")
		o.fail(s, err)
		return err
	}

	o.mu.Lock()
	if o.sess == s && o.phase == PhaseFetchingSnapshots {
		o.phase = PhaseSubscribed
	}
	o.mu.Unlock()
	o.updateGauges(s)
	logger.Info().Int("participants", s.Roster.Len()).Int("elements", s.Whiteboard.List().Len()).Msg("joined")
	return nil
}

// fetchBaseline loads all four snapshots concurrently, all or nothing.
func (o *Orchestrator) fetchBaseline(ctx context.Context, room domain.RoomID) (core.Baseline, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	var base core.Baseline
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		base.Room, err = o.snapshots.FetchRoom(gctx, room)
		return err
	})
	g.Go(func() (err error) {
		base.Roster, err = o.snapshots.FetchRoster(gctx, room)
		return err
	})
	g.Go(func() (err error) {
		base.ChatTail, err = o.snapshots.FetchChatTail(gctx, room, o.opts.ChatTail)
		return err
	})
	g.Go(func() (err error) {
		base.Whiteboard, err = o.snapshots.FetchWhiteboard(gctx, room)
		return err
	})
	if err := g.Wait(); err != nil {
		if domain.KindOf(err) != domain.KindSnapshotFetchFailed {
			err = domain.NewError(domain.KindSnapshotFetchFailed, "join", err)
		}
		return core.Baseline{}, err
	}
	if base.Room.ID == "" {
		base.Room.ID = room
	}
	return base, nil
}

// applyBaselineLocked replaces every collection with the snapshot and
// returns the remote streams whose owner is gone.
func (o *Orchestrator) applyBaselineLocked(s *SessionContext, base core.Baseline) []core.RemoteStream {
	s.RoomState.ApplySnapshot(base.Room)
	s.Roster.ApplySnapshot(base.Roster)
	if p, ok := s.Roster.FindByUser(s.Identity.UserID); ok {
		s.Roster.SetSelf(p.ID)
	}
	s.Chat.Load(base.ChatTail)
	s.Whiteboard.Load(base.Whiteboard)
	s.Cursors.Reset()
	return o.orphanStreamsLocked(s)
}

// resync refetches the baseline after a reconnect and re-sends whiteboard
// work that never reached the server. It runs before the new connection's
// reader starts.
func (o *Orchestrator) resync(s *SessionContext) {
	o.setPhase(s, PhaseFetchingSnapshots)
	base, err := o.fetchBaseline(context.Background(), s.Room)
	if err != nil {
		o.logger.Error().Err(err).Str("room", string(s.Room)).Msg("resync failed")
		o.fail(s, err)
		return
	}
	o.mu.Lock()
	if o.sess != s || o.phase != PhaseFetchingSnapshots {
		o.mu.Unlock()
		return
	}
	orphans := o.applyBaselineLocked(s, base)
	o.reconnecting = false
	o.phase = PhaseSubscribed
	o.mu.Unlock()
	closeStreams(orphans)

	o.resendUnsent(s)
	o.updateGauges(s)
	o.logger.Info().Str("room", string(s.Room)).Msg("resynced after reconnect")
}

// refetchRoster handles an event naming a participant we never saw.
func (o *Orchestrator) refetchRoster(s *SessionContext) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.FetchTimeout)
	defer cancel()
	list, err := o.snapshots.FetchRoster(ctx, s.Room)
	if err != nil {
		o.logger.Warn().Err(err).Str("room", string(s.Room)).Msg("roster refetch failed")
		return
	}
	o.mu.Lock()
	if o.sess != s {
		o.mu.Unlock()
		return
	}
	s.Roster.ApplySnapshot(list)
	if p, ok := s.Roster.FindByUser(s.Identity.UserID); ok {
		s.Roster.SetSelf(p.ID)
	}
	orphans := o.orphanStreamsLocked(s)
	o.mu.Unlock()
	closeStreams(orphans)
	o.metrics.SetRosterSize(s.Roster.Len())
}

func (o *Orchestrator) setPhase(s *SessionContext, p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == s && o.phase != PhaseLeft && o.phase != PhaseError {
		o.phase = p
	}
}

// fail moves the session to ERROR and releases everything it holds.
func (o *Orchestrator) fail(s *SessionContext, err error) {
	o.mu.Lock()
	if o.sess != s || o.phase == PhaseLeft || o.phase == PhaseError {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseError
	o.lastErr = err
	o.reconnecting = false
	o.mu.Unlock()
	o.teardown(s, err)
}

func (o *Orchestrator) teardown(s *SessionContext, cause error) {
	o.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	o.mu.Unlock()
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
	if err := o.ch.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("channel close")
	}
	if n := s.Pending.Drain(cause); n > 0 {
		o.logger.Debug().Int("pending", n).Msg("pending commands dropped")
	}
	o.cleanupMedia(s)
	s.Reactions.Close()
	s.Cursors.Reset()
	o.updateGauges(s)
}
