package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/media"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

var errNoDevices = errors.New("no device platform")

// live returns the session if it is subscribed and can use media.
func (o *Orchestrator) live(op string) (*SessionContext, error) {
	s, phase := o.current()
	if s == nil || phase != PhaseSubscribed {
		return nil, domain.NewError(domain.KindChannelDisconnected, op, errNotLive)
	}
	if s.Media == nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, op, errNoDevices)
	}
	return s, nil
}

// EnableMedia acquires microphone and camera, publishes them and tells the
// room. If the session ends while devices are opening, they are released.
func (o *Orchestrator) EnableMedia(ctx context.Context, settings domain.MediaSettings) error {
	const op = "media.enable"
	s, err := o.live(op)
	if err != nil {
		return err
	}
	o.mu.Lock()
	busy := s.local != nil
	o.mu.Unlock()
	if busy {
		return nil
	}

	res, err := s.Media.Acquire(ctx, settings)
	if err != nil {
		o.logger.Warn().Err(err).Msg("media acquisition failed")
		return err
	}

	o.mu.Lock()
	if o.sess != s || o.phase != PhaseSubscribed || s.local != nil {
		o.mu.Unlock()
		_ = s.Media.Release(res)
		return domain.NewError(domain.KindChannelDisconnected, op, errNotLive)
	}
	s.local = res
	o.mu.Unlock()

	o.publish(res)
	_, err = o.issue(core.CmdUpdateMediaState, o.mediaState(s))
	return err
}

// DisableMedia unpublishes and releases the local microphone and camera.
func (o *Orchestrator) DisableMedia() error {
	s, _ := o.current()
	if s == nil {
		return nil
	}
	o.mu.Lock()
	res := s.local
	s.local = nil
	o.mu.Unlock()
	if res == nil {
		return nil
	}
	o.unpublish(res)
	err := s.Media.Release(res)
	if _, serr := o.issue(core.CmdUpdateMediaState, core.MediaStatePayload{
		ParticipantID: o.selfID(), IsMuted: ptr(true), IsVideoOn: ptr(false),
	}); serr != nil {
		o.logger.Debug().Err(serr).Msg("media state not sent")
	}
	return err
}

func (o *Orchestrator) SetMuted(muted bool) (*app.Call, error) {
	return o.toggle(domain.TrackAudio, !muted, core.MediaStatePayload{IsMuted: &muted})
}

func (o *Orchestrator) SetVideo(on bool) (*app.Call, error) {
	return o.toggle(domain.TrackVideo, on, core.MediaStatePayload{IsVideoOn: &on})
}

func (o *Orchestrator) toggle(kind domain.TrackKind, enabled bool, state core.MediaStatePayload) (*app.Call, error) {
	s, _ := o.current()
	if s != nil && s.Media != nil {
		o.mu.Lock()
		res := s.local
		o.mu.Unlock()
		if res != nil {
			if err := s.Media.SetTrackEnabled(res, kind, enabled); err != nil && !errors.Is(err, domain.ErrDeviceUnavailable) {
				return nil, err
			}
		}
	}
	state.ParticipantID = o.selfID()
	return o.issue(core.CmdUpdateMediaState, state)
}

// SwapDevice moves one local track to another input device and republishes
// it. Mute state carries over.
func (o *Orchestrator) SwapDevice(ctx context.Context, kind domain.TrackKind, device domain.DeviceID) error {
	const op = "media.swap"
	s, err := o.live(op)
	if err != nil {
		return err
	}
	o.mu.Lock()
	res := s.local
	o.mu.Unlock()
	if res == nil {
		return domain.NewError(domain.KindDeviceUnavailable, op, errors.New("media not enabled"))
	}
	old, next, err := s.Media.SwapDevice(ctx, res, kind, device)
	if err != nil {
		return err
	}
	if o.transport != nil {
		if err := o.transport.Unpublish(old.Track); err != nil {
			o.logger.Debug().Err(err).Msg("unpublish swapped track")
		}
		if err := o.transport.Publish(next.Track); err != nil {
			return domain.NewError(domain.KindDeviceUnavailable, op, err)
		}
	}
	return nil
}

// StartScreenShare captures the display and announces it. Starting a share
// clears everyone else's screen flag; the server does the same for us when
// someone else starts.
func (o *Orchestrator) StartScreenShare(ctx context.Context) error {
	const op = "media.screen_share"
	s, err := o.live(op)
	if err != nil {
		return err
	}
	o.mu.Lock()
	busy := s.display != nil
	o.mu.Unlock()
	if busy {
		return nil
	}

	res, err := s.Media.AcquireDisplayCapture(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	if o.sess != s || o.phase != PhaseSubscribed || s.display != nil {
		o.mu.Unlock()
		_ = s.Media.Release(res)
		return domain.NewError(domain.KindChannelDisconnected, op, errNotLive)
	}
	s.display = res
	o.mu.Unlock()

	res.OnTerminated(func(r *media.Resource) {
		o.logger.Info().Msg("screen share ended by platform")
		o.releaseDisplay(s, true)
	})
	o.publish(res)
	_, err = o.issue(core.CmdUpdateMediaState, core.MediaStatePayload{ParticipantID: o.selfID(), IsScreenSharing: ptr(true)})
	return err
}

func (o *Orchestrator) StopScreenShare() {
	s, _ := o.current()
	if s != nil {
		o.releaseDisplay(s, true)
	}
}

// releaseDisplay drops the screen capture. announce is false when the
// server already cleared our flag.
func (o *Orchestrator) releaseDisplay(s *SessionContext, announce bool) {
	o.mu.Lock()
	res := s.display
	s.display = nil
	o.mu.Unlock()
	if res == nil {
		return
	}
	o.unpublish(res)
	if err := s.Media.Release(res); err != nil {
		o.logger.Warn().Err(err).Msg("release screen capture")
	}
	if !announce {
		return
	}
	if _, err := o.issue(core.CmdUpdateMediaState, core.MediaStatePayload{ParticipantID: o.selfID(), IsScreenSharing: ptr(false)}); err != nil {
		o.logger.Debug().Err(err).Msg("screen share stop not sent")
	}
}

func (o *Orchestrator) publish(res *media.Resource) {
	if o.transport == nil {
		return
	}
	for _, t := range res.Tracks() {
		if err := o.transport.Publish(t.Track); err != nil {
			o.logger.Warn().Err(err).Str("kind", string(t.Kind())).Msg("publish track")
		}
	}
}

func (o *Orchestrator) unpublish(res *media.Resource) {
	if o.transport == nil {
		return
	}
	for _, t := range res.Tracks() {
		if err := o.transport.Unpublish(t.Track); err != nil {
			o.logger.Debug().Err(err).Str("kind", string(t.Kind())).Msg("unpublish track")
		}
	}
}

func (o *Orchestrator) mediaState(s *SessionContext) core.MediaStatePayload {
	o.mu.Lock()
	res := s.local
	o.mu.Unlock()
	muted, video := true, false
	if res != nil {
		if t, ok := res.Track(domain.TrackAudio); ok {
			muted = t.State() != media.TrackStateLive
		}
		if t, ok := res.Track(domain.TrackVideo); ok {
			video = t.State() == media.TrackStateLive
		}
	}
	p, _ := s.Roster.Self()
	return core.MediaStatePayload{ParticipantID: p.ID, IsMuted: &muted, IsVideoOn: &video}
}

// onRemoteStream files a received stream under its owner. Streams of
// unknown or departed participants are closed straight away.
func (o *Orchestrator) onRemoteStream(rs core.RemoteStream) {
	o.mu.Lock()
	s := o.sess
	keep := s != nil && o.phase == PhaseSubscribed
	if keep {
		_, keep = s.Roster.Get(rs.ParticipantID())
	}
	n := 0
	if keep {
		s.remotes[rs.ParticipantID()] = append(s.remotes[rs.ParticipantID()], rs)
		n = s.remoteCount()
	}
	o.mu.Unlock()

	if !keep {
		o.logger.Debug().Str("participant", string(rs.ParticipantID())).Msg("closing stream of unknown participant")
		_ = rs.Close()
		return
	}
	o.metrics.SetRemoteStreams(n)
}

// orphanStreamsLocked detaches streams whose owner is no longer in the
// roster, e.g. after a resync. The caller closes them once mu is released.
func (o *Orchestrator) orphanStreamsLocked(s *SessionContext) []core.RemoteStream {
	var out []core.RemoteStream
	for id, streams := range s.remotes {
		if _, ok := s.Roster.Get(id); ok {
			continue
		}
		delete(s.remotes, id)
		out = append(out, streams...)
	}
	return out
}

func closeStreams(streams []core.RemoteStream) {
	for _, rs := range streams {
		_ = rs.Close()
	}
}

// cleanupMedia releases every local resource, then closes remote streams.
func (o *Orchestrator) cleanupMedia(s *SessionContext) {
	o.mu.Lock()
	local, display := s.local, s.display
	s.local, s.display = nil, nil
	remotes := s.remotes
	s.remotes = make(map[domain.ParticipantID][]core.RemoteStream)
	o.mu.Unlock()

	for _, res := range []*media.Resource{local, display} {
		if res != nil {
			o.unpublish(res)
		}
	}
	if s.Media != nil {
		if err := s.Media.ReleaseAll(); err != nil {
			o.logger.Warn().Err(err).Msg("release local media")
		}
	}
	for _, streams := range remotes {
		closeStreams(streams)
	}
}

func ptr[T any](v T) *T { return &v }
