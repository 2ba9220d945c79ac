// Package device is a synthetic DevicePlatform. Its sources emit silent
// audio and blank video frames at real-time pace, which is enough to drive
// the local tracks on hosts without capture hardware.
package device

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// opus frame carrying 20ms of silence
var opusSilence = []byte{0xf8, 0xff, 0xfe}

type Platform struct {
	mu       sync.Mutex
	granted  bool
	devices  []domain.DeviceInfo
	sources  map[*source]struct{}
	interval map[domain.TrackKind]time.Duration
}

func DefaultDevices() []domain.DeviceInfo {
	return []domain.DeviceInfo{
		{ID: "default-mic", Kind: domain.DeviceAudioIn, Label: "Synthetic Microphone"},
		{ID: "default-cam", Kind: domain.DeviceVideoIn, Label: "Synthetic Camera"},
		{ID: "default-out", Kind: domain.DeviceAudioOut, Label: "Synthetic Speaker"},
	}
}

func NewPlatform(granted bool, devices []domain.DeviceInfo) *Platform {
	if devices == nil {
		devices = DefaultDevices()
	}
	return &Platform{
		granted: granted,
		devices: devices,
		sources: make(map[*source]struct{}),
		interval: map[domain.TrackKind]time.Duration{
			domain.TrackAudio:  20 * time.Millisecond,
			domain.TrackVideo:  33 * time.Millisecond,
			domain.TrackScreen: 100 * time.Millisecond,
		},
	}
}

// SetGranted flips the permission state, as the user would in a prompt.
func (p *Platform) SetGranted(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = ok
}

func (p *Platform) Enumerate(context.Context) ([]domain.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return nil, domain.NewError(domain.KindPermissionDenied, "device.enumerate", fmt.Errorf("camera/microphone access not granted"))
	}
	out := make([]domain.DeviceInfo, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

func (p *Platform) Open(ctx context.Context, req core.CaptureRequest) (core.CaptureSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var want domain.DeviceKind
	var codec webrtc.RTPCodecCapability
	switch req.Kind {
	case domain.TrackAudio:
		want = domain.DeviceAudioIn
		codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	case domain.TrackVideo:
		want = domain.DeviceVideoIn
		codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	default:
		return nil, domain.NewError(domain.KindInvalidArgument, "device.open", fmt.Errorf("track kind %q", req.Kind))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return nil, domain.NewError(domain.KindPermissionDenied, "device.open", fmt.Errorf("%s access not granted", req.Kind))
	}
	for _, d := range p.devices {
		if d.Kind == want && (req.DeviceID == "" || req.DeviceID == d.ID) {
			return p.newSourceLocked(req.Kind, d.ID, codec), nil
		}
	}
	return nil, domain.NewError(domain.KindDeviceUnavailable, "device.open", fmt.Errorf("no %s device %q", want, req.DeviceID))
}

// OpenDisplay captures the "screen". Display capture has its own prompt, so
// it does not depend on the camera/microphone grant.
func (p *Platform) OpenDisplay(ctx context.Context) (core.CaptureSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	return p.newSourceLocked(domain.TrackScreen, "display", codec), nil
}

func (p *Platform) newSourceLocked(kind domain.TrackKind, id domain.DeviceID, codec webrtc.RTPCodecCapability) *source {
	s := &source{
		platform: p,
		kind:     kind,
		device:   id,
		codec:    codec,
		interval: p.interval[kind],
		stopped:  make(chan struct{}),
		ended:    make(chan struct{}),
	}
	p.sources[s] = struct{}{}
	log.Debug().Str("module", "device").Str("kind", string(kind)).Str("device", string(id)).Msg("capture opened")
	return s
}

// EndDisplayCapture simulates the user pressing the platform's own
// "stop sharing" button. It returns how many captures were ended.
func (p *Platform) EndDisplayCapture() int {
	p.mu.Lock()
	var ended []*source
	for s := range p.sources {
		if s.kind == domain.TrackScreen {
			ended = append(ended, s)
		}
	}
	p.mu.Unlock()
	for _, s := range ended {
		s.end()
	}
	return len(ended)
}

// Active returns how many captures are open.
func (p *Platform) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}

func (p *Platform) forget(s *source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sources, s)
}

type source struct {
	platform *Platform
	kind     domain.TrackKind
	device   domain.DeviceID
	codec    webrtc.RTPCodecCapability
	interval time.Duration

	stopOnce sync.Once
	endOnce  sync.Once
	stopped  chan struct{}
	ended    chan struct{}
}

func (s *source) Kind() domain.TrackKind           { return s.kind }
func (s *source) DeviceID() domain.DeviceID        { return s.device }
func (s *source) Codec() webrtc.RTPCodecCapability { return s.codec }
func (s *source) Ended() <-chan struct{}           { return s.ended }

func (s *source) ReadSample(ctx context.Context) (media.Sample, error) {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return media.Sample{}, ctx.Err()
	case <-s.stopped:
		return media.Sample{}, io.EOF
	case <-s.ended:
		return media.Sample{}, io.EOF
	case <-t.C:
	}
	data := opusSilence
	if s.kind != domain.TrackAudio {
		// VP8 inter-frame header for an unchanged frame
		data = []byte{0x31, 0x00, 0x00}
	}
	return media.Sample{Data: data, Duration: s.interval}, nil
}

func (s *source) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.platform.forget(s)
		log.Debug().Str("module", "device").Str("kind", string(s.kind)).Msg("capture stopped")
	})
	return nil
}

func (s *source) end() {
	s.endOnce.Do(func() {
		close(s.ended)
		s.platform.forget(s)
	})
}
