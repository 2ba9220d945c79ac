package device

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

func TestPermission(t *testing.T) {
	p := NewPlatform(false, nil)
	ctx := context.Background()
	if _, err := p.Enumerate(ctx); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("enumerate err = %v", err)
	}
	if _, err := p.Open(ctx, core.CaptureRequest{Kind: domain.TrackAudio}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("open err = %v", err)
	}
	p.SetGranted(true)
	devs, err := p.Enumerate(ctx)
	if err != nil || len(devs) != 3 {
		t.Fatalf("devices = %v, %v", devs, err)
	}
}

func TestOpenAndStop(t *testing.T) {
	p := NewPlatform(true, nil)
	ctx := context.Background()
	src, err := p.Open(ctx, core.CaptureRequest{Kind: domain.TrackAudio})
	if err != nil {
		t.Fatal(err)
	}
	if src.DeviceID() != "default-mic" || src.Codec().ClockRate != 48000 {
		t.Fatalf("source = %s %+v", src.DeviceID(), src.Codec())
	}
	sample, err := src.ReadSample(ctx)
	if err != nil || len(sample.Data) == 0 || sample.Duration == 0 {
		t.Fatalf("sample = %+v, %v", sample, err)
	}
	if p.Active() != 1 {
		t.Fatalf("active = %d", p.Active())
	}
	src.Stop()
	src.Stop()
	if _, err := src.ReadSample(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("read after stop = %v", err)
	}
	if p.Active() != 0 {
		t.Fatal("stopped source still active")
	}
}

func TestOpenUnknownDevice(t *testing.T) {
	p := NewPlatform(true, nil)
	_, err := p.Open(context.Background(), core.CaptureRequest{Kind: domain.TrackVideo, DeviceID: "usb-cam"})
	if !errors.Is(err, domain.ErrDeviceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestEndDisplayCapture(t *testing.T) {
	p := NewPlatform(false, nil)
	src, err := p.OpenDisplay(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := p.EndDisplayCapture(); n != 1 {
		t.Fatalf("ended %d", n)
	}
	select {
	case <-src.Ended():
	default:
		t.Fatal("Ended not closed")
	}
	if _, err := src.ReadSample(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("read after end = %v", err)
	}
}
