package core

import (
	"context"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

type CaptureRequest struct {
	Kind     domain.TrackKind
	DeviceID domain.DeviceID
}

// CaptureSource is one platform capture (microphone, camera or display).
type CaptureSource interface {
	Kind() domain.TrackKind
	DeviceID() domain.DeviceID
	Codec() webrtc.RTPCodecCapability
	// ReadSample blocks for the next sample. It returns io.EOF once the
	// source has been stopped or ended by the platform.
	ReadSample(ctx context.Context) (media.Sample, error)
	// Ended is closed when the platform terminates capture on its own,
	// e.g. the user pressed the system "stop sharing" button.
	Ended() <-chan struct{}
	Stop() error
}

// DevicePlatform is the OS/browser media layer. Implementations report
// domain.ErrPermissionDenied and domain.ErrDeviceUnavailable.
type DevicePlatform interface {
	Enumerate(ctx context.Context) ([]domain.DeviceInfo, error)
	Open(ctx context.Context, req CaptureRequest) (CaptureSource, error)
	OpenDisplay(ctx context.Context) (CaptureSource, error)
}

// RemoteStream is media received from another participant.
type RemoteStream interface {
	ParticipantID() domain.ParticipantID
	Kind() domain.TrackKind
	Close() error
}

// MediaTransport carries audio/video to and from the SFU.
type MediaTransport interface {
	Publish(track webrtc.TrackLocal) error
	Unpublish(track webrtc.TrackLocal) error
	OnRemoteStream(fn func(RemoteStream))
	Close() error
}
