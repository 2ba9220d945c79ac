package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type TrackState int32

const (
	TrackStateLive TrackState = iota
	TrackStateMuted
	TrackStateStopped
)

func (s TrackState) String() string {
	switch s {
	case TrackStateLive:
		return "live"
	case TrackStateMuted:
		return "muted"
	}
	return "stopped"
}

// LocalTrack pumps samples from one capture source into a local pion track.
// While muted the source keeps running and samples are dropped, so
// unmuting needs no renegotiation.
type LocalTrack struct {
	Source core.CaptureSource
	Track  *webrtc.TrackLocalStaticSample

	state    atomic.Int32 // TrackStateLive by default
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func newLocalTrack(src core.CaptureSource, id, streamID string) (*LocalTrack, error) {
	track, err := webrtc.NewTrackLocalStaticSample(src.Codec(), id, streamID)
	if err != nil {
		return nil, err
	}
	return &LocalTrack{Source: src, Track: track, done: make(chan struct{})}, nil
}

func (t *LocalTrack) Kind() domain.TrackKind { return t.Source.Kind() }

func (t *LocalTrack) DeviceID() domain.DeviceID { return t.Source.DeviceID() }

func (t *LocalTrack) State() TrackState {
	return TrackState(t.state.Load())
}

// setEnabled flips between live and muted. A stopped track stays stopped.
func (t *LocalTrack) setEnabled(on bool) bool {
	from, to := TrackStateMuted, TrackStateLive
	if !on {
		from, to = TrackStateLive, TrackStateMuted
	}
	if t.state.CompareAndSwap(int32(from), int32(to)) {
		return true
	}
	return t.State() == to
}

func (t *LocalTrack) start(ctx context.Context, logger *zerolog.Logger) {
	ctx, t.cancel = context.WithCancel(ctx)
	go t.loop(ctx, logger)
}

// loop reads samples from the source and writes them to the track until
// the source ends or the track is stopped.
func (t *LocalTrack) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(t.done)
	for {
		sample, err := t.Source.ReadSample(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("track", t.Track.ID()).Msg("capture read error, stopping pump")
			}
			return
		}
		switch t.State() {
		case TrackStateStopped:
			return
		case TrackStateMuted:
		case TrackStateLive:
			if err := t.Track.WriteSample(sample); err != nil {
				logger.Warn().Err(err).Str("track", t.Track.ID()).Msg("write sample failed")
			}
		}
	}
}

// stop ends the pump and the capture. Safe to call more than once.
func (t *LocalTrack) stop() error {
	t.stopOnce.Do(func() {
		t.state.Store(int32(TrackStateStopped))
		if t.cancel != nil {
			t.cancel()
		}
		t.stopErr = t.Source.Stop()
		if t.cancel != nil {
			<-t.done
		}
	})
	return t.stopErr
}
