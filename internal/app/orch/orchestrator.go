// Package orch is the session orchestrator. It joins a room, feeds channel
// events into local state and turns user intents into commands.
package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/whiteboard"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseIdle              Phase = "IDLE"
	PhaseInitializing      Phase = "INITIALIZING"
	PhaseFetchingSnapshots Phase = "FETCHING_SNAPSHOTS"
	PhaseSubscribed        Phase = "SUBSCRIBED"
	PhaseError             Phase = "ERROR"
	PhaseLeft              Phase = "LEFT"
)

var ErrAlreadyJoined = errors.New("session already joined")

// Recorder receives session metrics.
type Recorder interface {
	EventReceived(typ string)
	CommandSent(typ, result string)
	ReconnectAttempt()
	SetRosterSize(n int)
	SetElements(n int)
	SetPending(n int)
	SetRemoteStreams(n int)
}

type nopRecorder struct{}

func (nopRecorder) EventReceived(string)       {}
func (nopRecorder) CommandSent(string, string) {}
func (nopRecorder) ReconnectAttempt()          {}
func (nopRecorder) SetRosterSize(int)          {}
func (nopRecorder) SetElements(int)            {}
func (nopRecorder) SetPending(int)             {}
func (nopRecorder) SetRemoteStreams(int)       {}

type Options struct {
	ChatTail       int
	CommandTimeout time.Duration
	ReactionTTL    time.Duration
	FetchTimeout   time.Duration
	EraserRadius   float64
	CanvasWidth    int
	CanvasHeight   int
}

// Deps are the collaborators. Devices and Transport may be nil, in which
// case media operations report DeviceUnavailable.
type Deps struct {
	Channel   core.SessionChannel
	Snapshots core.SnapshotSource
	Devices   core.DevicePlatform
	Transport core.MediaTransport
	Policy    app.Policy
	Recorder  Recorder
}

// Orchestrator serializes every state mutation behind mu. It never holds
// mu across I/O: snapshot fetches, device acquisition and waits on command
// confirmation all happen outside it.
type Orchestrator struct {
	ch        core.SessionChannel
	snapshots core.SnapshotSource
	devices   core.DevicePlatform
	transport core.MediaTransport
	policy    app.Policy
	metrics   Recorder
	opts      Options
	logger    zerolog.Logger

	mu           sync.Mutex
	phase        Phase
	sess         *SessionContext
	reconnecting bool
	lastErr      error
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Policy == nil {
		deps.Policy = app.SimplePolicy{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if opts.ChatTail <= 0 {
		opts.ChatTail = 50
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	o := &Orchestrator{
		ch:        deps.Channel,
		snapshots: deps.Snapshots,
		devices:   deps.Devices,
		transport: deps.Transport,
		policy:    deps.Policy,
		metrics:   deps.Recorder,
		opts:      opts,
		logger:    log.With().Str("module", "orch").Logger(),
		phase:     PhaseIdle,
	}
	if o.transport != nil {
		o.transport.OnRemoteStream(o.onRemoteStream)
	}
	return o
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Session returns the current session context, or nil before a join.
func (o *Orchestrator) Session() *SessionContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// Status is a read-only summary for presentation.
type Status struct {
	Phase        Phase              `json:"phase"`
	Channel      string             `json:"channel"`
	Reconnecting bool               `json:"reconnecting"`
	Room         domain.Room        `json:"room"`
	Self         domain.Participant `json:"self"`
	Participants int                `json:"participants"`
	Pending      int                `json:"pending"`
	Unsent       int                `json:"unsent"`
	LocalMedia   bool               `json:"localMedia"`
	ScreenShare  bool               `json:"screenShare"`
	Error        string             `json:"error,omitempty"`
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{Phase: o.phase, Reconnecting: o.reconnecting, Channel: o.ch.State().String()}
	if o.lastErr != nil {
		st.Error = o.lastErr.Error()
	}
	if s := o.sess; s != nil {
		st.Room, _ = s.RoomState.Get()
		st.Self, _ = s.Roster.Self()
		st.Participants = s.Roster.Len()
		st.Pending = s.Pending.Len()
		st.Unsent = len(s.unsent)
		st.LocalMedia = s.local != nil
		st.ScreenShare = s.display != nil
	}
	return st
}

// current returns the session if it is live.
func (o *Orchestrator) current() (*SessionContext, Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess, o.phase
}

func (o *Orchestrator) updateGauges(s *SessionContext) {
	o.metrics.SetRosterSize(s.Roster.Len())
	o.metrics.SetElements(s.Whiteboard.List().Len())
	o.metrics.SetPending(s.Pending.Len())
	o.mu.Lock()
	remotes := s.remoteCount()
	o.mu.Unlock()
	o.metrics.SetRemoteStreams(remotes)
}

// Read accessors for presentation. They return copies and are empty
// before a join.

func (o *Orchestrator) Roster() []domain.Participant {
	if s := o.Session(); s != nil {
		return s.Roster.List()
	}
	return nil
}

func (o *Orchestrator) Chat() []domain.ChatMessage {
	if s := o.Session(); s != nil {
		return s.Chat.Messages()
	}
	return nil
}

func (o *Orchestrator) Reactions() []domain.Reaction {
	if s := o.Session(); s != nil {
		return s.Reactions.Live()
	}
	return nil
}

func (o *Orchestrator) Whiteboard() (domain.WhiteboardSnapshot, bool) {
	if s := o.Session(); s != nil {
		return s.Whiteboard.Snapshot(), true
	}
	return domain.WhiteboardSnapshot{}, false
}

func (o *Orchestrator) ExportWhiteboard(f whiteboard.Format) ([]byte, error) {
	s := o.Session()
	if s == nil {
		return nil, domain.NewError(domain.KindChannelDisconnected, "whiteboard.export", errNotLive)
	}
	return s.Whiteboard.ExportSnapshot(f)
}
