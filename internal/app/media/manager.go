// Package media owns local capture resources: acquisition, mute toggling,
// device swap, platform termination and release.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

type ResourceKind int

const (
	ResourceCapture ResourceKind = iota
	ResourceDisplay
)

var ErrReleased = errors.New("resource already released")

// Resource is a set of local tracks owned by whoever acquired it. It must
// be handed back through Manager.Release.
type Resource struct {
	ID   string
	Kind ResourceKind

	mu        sync.Mutex
	tracks    map[domain.TrackKind]*LocalTrack
	observers map[int]func(*Resource)
	nextObs   int
	released  atomic.Bool
	stopWatch chan struct{}
}

func newResource(kind ResourceKind) *Resource {
	return &Resource{
		ID:        uuid.NewString(),
		Kind:      kind,
		tracks:    make(map[domain.TrackKind]*LocalTrack),
		observers: make(map[int]func(*Resource)),
		stopWatch: make(chan struct{}),
	}
}

func (r *Resource) Track(kind domain.TrackKind) (*LocalTrack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[kind]
	return t, ok
}

func (r *Resource) Tracks() []*LocalTrack {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*LocalTrack, 0, len(r.tracks))
	for _, k := range []domain.TrackKind{domain.TrackAudio, domain.TrackVideo, domain.TrackScreen} {
		if t, ok := r.tracks[k]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *Resource) Released() bool { return r.released.Load() }

// OnTerminated registers fn to run when the platform ends this resource on
// its own. The returned func removes the observer; release drops them all.
func (r *Resource) OnTerminated(fn func(*Resource)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

func (r *Resource) notifyTerminated(logger *zerolog.Logger) {
	r.mu.Lock()
	fns := make([]func(*Resource), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	var wg conc.WaitGroup
	for _, fn := range fns {
		wg.Go(func() { fn(r) })
	}
	if rec := wg.WaitAndRecover(); rec != nil {
		logger.Error().Str("resource", r.ID).Str("panic", rec.String()).Msg("termination observer panicked")
	}
}

// Manager hands out capture resources and keeps track of every one of them
// until it is released.
type Manager struct {
	platform core.DevicePlatform
	streamID string
	logger   zerolog.Logger

	mu    sync.Mutex
	owned map[string]*Resource
}

// NewManager builds a manager on platform. streamID groups the local
// tracks on the wire; the participant id is a good choice.
func NewManager(platform core.DevicePlatform, streamID string) *Manager {
	if streamID == "" {
		streamID = uuid.NewString()
	}
	return &Manager{
		platform: platform,
		streamID: streamID,
		logger:   log.With().Str("module", "media").Logger(),
		owned:    make(map[string]*Resource),
	}
}

func (m *Manager) Enumerate(ctx context.Context) ([]domain.DeviceInfo, error) {
	devs, err := m.platform.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return devs, nil
}

// Acquire opens the microphone and/or camera selected by settings. On any
// failure, including ctx cancellation, whatever was opened is released.
func (m *Manager) Acquire(ctx context.Context, s domain.MediaSettings) (*Resource, error) {
	if !s.AudioEnabled && !s.VideoEnabled {
		return nil, domain.NewError(domain.KindInvalidArgument, "media.acquire", errors.New("nothing to capture"))
	}
	res := newResource(ResourceCapture)
	var reqs []core.CaptureRequest
	if s.AudioEnabled {
		reqs = append(reqs, core.CaptureRequest{Kind: domain.TrackAudio, DeviceID: s.AudioInput})
	}
	if s.VideoEnabled {
		reqs = append(reqs, core.CaptureRequest{Kind: domain.TrackVideo, DeviceID: s.VideoInput})
	}
	for _, req := range reqs {
		src, err := m.platform.Open(ctx, req)
		if err == nil {
			err = ctx.Err()
			if err != nil {
				_ = src.Stop()
			}
		}
		if err != nil {
			m.stopTracks(res)
			return nil, fmt.Errorf("acquire %s: %w", req.Kind, err)
		}
		if err := m.attach(ctx, res, src); err != nil {
			_ = src.Stop()
			m.stopTracks(res)
			return nil, err
		}
	}
	m.own(res)
	return res, nil
}

// AcquireDisplayCapture opens a screen capture and watches it, so that a
// stop from the platform UI releases it and notifies OnTerminated observers.
func (m *Manager) AcquireDisplayCapture(ctx context.Context) (*Resource, error) {
	src, err := m.platform.OpenDisplay(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire display: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = src.Stop()
		return nil, err
	}
	res := newResource(ResourceDisplay)
	if err := m.attach(ctx, res, src); err != nil {
		_ = src.Stop()
		return nil, err
	}
	m.own(res)
	go m.watch(res, src)
	return res, nil
}

func (m *Manager) watch(res *Resource, src core.CaptureSource) {
	select {
	case <-src.Ended():
	case <-res.stopWatch:
		return
	}
	if res.Released() {
		return
	}
	m.logger.Info().Str("resource", res.ID).Msg("capture ended by platform")
	res.notifyTerminated(&m.logger)
	if err := m.Release(res); err != nil {
		m.logger.Warn().Err(err).Str("resource", res.ID).Msg("release after platform stop")
	}
}

func (m *Manager) attach(ctx context.Context, res *Resource, src core.CaptureSource) error {
	t, err := newLocalTrack(src, string(src.Kind())+"-"+res.ID, m.streamID)
	if err != nil {
		return fmt.Errorf("create %s track: %w", src.Kind(), err)
	}
	// The pump outlives the acquiring call, so it must not inherit ctx's
	// cancellation.
	t.start(context.WithoutCancel(ctx), &m.logger)
	res.mu.Lock()
	res.tracks[src.Kind()] = t
	res.mu.Unlock()
	return nil
}

func (m *Manager) own(res *Resource) {
	m.mu.Lock()
	m.owned[res.ID] = res
	n := len(m.owned)
	m.mu.Unlock()
	m.logger.Info().Str("resource", res.ID).Int("tracks", len(res.Tracks())).Int("owned", n).Msg("resource acquired")
}

// SwapDevice replaces the track of kind with one captured from device. The
// old track is stopped; both are returned so the caller can republish.
func (m *Manager) SwapDevice(ctx context.Context, res *Resource, kind domain.TrackKind, device domain.DeviceID) (old, next *LocalTrack, err error) {
	if res.Released() {
		return nil, nil, ErrReleased
	}
	old, ok := res.Track(kind)
	if !ok {
		return nil, nil, domain.NewError(domain.KindDeviceUnavailable, "media.swap", fmt.Errorf("no %s track", kind))
	}
	src, err := m.platform.Open(ctx, core.CaptureRequest{Kind: kind, DeviceID: device})
	if err != nil {
		return nil, nil, fmt.Errorf("swap %s: %w", kind, err)
	}
	next, err = newLocalTrack(src, string(kind)+"-"+uuid.NewString(), m.streamID)
	if err != nil {
		_ = src.Stop()
		return nil, nil, err
	}
	if old.State() == TrackStateMuted {
		next.setEnabled(false)
	}
	next.start(context.WithoutCancel(ctx), &m.logger)
	res.mu.Lock()
	res.tracks[kind] = next
	res.mu.Unlock()
	if err := old.stop(); err != nil {
		m.logger.Warn().Err(err).Str("resource", res.ID).Msg("stop swapped track")
	}
	return old, next, nil
}

// SetTrackEnabled mutes or unmutes one track of res without releasing it.
func (m *Manager) SetTrackEnabled(res *Resource, kind domain.TrackKind, enabled bool) error {
	if res.Released() {
		return ErrReleased
	}
	t, ok := res.Track(kind)
	if !ok {
		return domain.NewError(domain.KindDeviceUnavailable, "media.set_enabled", fmt.Errorf("no %s track", kind))
	}
	if !t.setEnabled(enabled) {
		return ErrReleased
	}
	return nil
}

// Release stops every track of res. Releasing twice is a no-op.
func (m *Manager) Release(res *Resource) error {
	if res == nil || !res.released.CompareAndSwap(false, true) {
		return nil
	}
	close(res.stopWatch)
	m.mu.Lock()
	delete(m.owned, res.ID)
	m.mu.Unlock()

	res.mu.Lock()
	clear(res.observers)
	res.mu.Unlock()

	err := m.stopTracks(res)
	m.logger.Info().Str("resource", res.ID).Msg("resource released")
	return err
}

func (m *Manager) stopTracks(res *Resource) error {
	var errs []error
	for _, t := range res.Tracks() {
		if err := t.stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", t.Kind(), err))
		}
	}
	return errors.Join(errs...)
}

// ReleaseAll releases every resource still owned, concurrently.
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	all := make([]*Resource, 0, len(m.owned))
	for _, r := range m.owned {
		all = append(all, r)
	}
	m.mu.Unlock()

	p := pool.New().WithErrors()
	for _, r := range all {
		p.Go(func() error { return m.Release(r) })
	}
	return p.Wait()
}

// Owned returns how many resources have not been released yet.
func (m *Manager) Owned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned)
}
