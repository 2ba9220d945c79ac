package core

import (
	"context"
	"errors"

	"github.com/dkeye/Seminar/internal/domain"
)

// ErrBackpressure is returned by Send when the outbound queue is full.
var ErrBackpressure = errors.New("backpressure")

// Frame is a raw encoded envelope as it travels over the wire.
type Frame []byte

type ChannelState int32

const (
	ChannelIdle ChannelState = iota
	ChannelConnecting
	ChannelConnected
	ChannelReconnecting
	ChannelDisconnected
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelConnecting:
		return "connecting"
	case ChannelConnected:
		return "connected"
	case ChannelReconnecting:
		return "reconnecting"
	case ChannelDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// StateEvent describes one channel state transition.
// Attempt is the reconnect attempt number while Reconnecting.
type StateEvent struct {
	Old     ChannelState
	New     ChannelState
	Attempt int
	Err     error
}

// Resumed reports a return to Connected after a drop.
func (e StateEvent) Resumed() bool {
	return e.New == ChannelConnected && e.Old == ChannelReconnecting
}

type EventHandler func(Event)

//go:generate mockgen -destination mocks/mock_channel.go -package mocks github.com/dkeye/Seminar/internal/core SessionChannel

// SessionChannel is the bidirectional event channel to the session server.
// Handlers run one at a time, in the order events arrive. Send fails fast
// with domain.ErrChannelDisconnected unless the channel is Connected.
type SessionChannel interface {
	Connect(ctx context.Context, room domain.RoomID, who domain.Identity) error
	Send(cmd Command) error
	Subscribe(h EventHandler) (unsubscribe func())
	OnStateChange(fn func(StateEvent)) (unsubscribe func())
	State() ChannelState
	Close() error
}
