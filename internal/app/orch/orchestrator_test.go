package orch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Seminar/internal/adapters/device"
	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/core/mocks"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/pion/webrtc/v4"
	"go.uber.org/mock/gomock"
)

const room = domain.RoomID("r1")

var me = domain.Identity{UserID: "u-p1", DisplayName: "p1"}

func participant(id string, role domain.Role) domain.Participant {
	return domain.Participant{
		ID:          domain.ParticipantID(id),
		UserID:      domain.UserID("u-" + id),
		DisplayName: id,
		Role:        role,
		Status:      domain.StatusJoined,
	}
}

type fakeRemote struct {
	owner  domain.ParticipantID
	mu     sync.Mutex
	closed bool
}

func (r *fakeRemote) ParticipantID() domain.ParticipantID { return r.owner }
func (r *fakeRemote) Kind() domain.TrackKind              { return domain.TrackVideo }
func (r *fakeRemote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
func (r *fakeRemote) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fakeTransport struct {
	mu        sync.Mutex
	published map[string]bool
	onRemote  func(core.RemoteStream)
}

func (f *fakeTransport) Publish(t webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[t.ID()] = true
	return nil
}

func (f *fakeTransport) Unpublish(t webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.published, t.ID())
	return nil
}

func (f *fakeTransport) OnRemoteStream(fn func(core.RemoteStream)) { f.onRemote = fn }
func (f *fakeTransport) Close() error                              { return nil }

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type harness struct {
	t         *testing.T
	ch        *mocks.MockSessionChannel
	snap      *mocks.MockSnapshotSource
	devices   *device.Platform
	transport *fakeTransport
	o         *Orchestrator

	mu      sync.Mutex
	handler core.EventHandler
	state   func(core.StateEvent)
	sent    []core.Command
	sendErr error
	closed  int
	roster  []domain.Participant
}

func newHarness(t *testing.T, roster ...domain.Participant) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		t:         t,
		ch:        mocks.NewMockSessionChannel(ctrl),
		snap:      mocks.NewMockSnapshotSource(ctrl),
		devices:   device.NewPlatform(true, nil),
		transport: &fakeTransport{published: make(map[string]bool)},
		roster:    roster,
	}
	h.ch.EXPECT().Subscribe(gomock.Any()).DoAndReturn(func(fn core.EventHandler) func() {
		h.mu.Lock()
		h.handler = fn
		h.mu.Unlock()
		return func() {
			h.mu.Lock()
			h.handler = nil
			h.mu.Unlock()
		}
	}).AnyTimes()
	h.ch.EXPECT().OnStateChange(gomock.Any()).DoAndReturn(func(fn func(core.StateEvent)) func() {
		h.mu.Lock()
		h.state = fn
		h.mu.Unlock()
		return func() {
			h.mu.Lock()
			h.state = nil
			h.mu.Unlock()
		}
	}).AnyTimes()
	h.ch.EXPECT().Send(gomock.Any()).DoAndReturn(func(cmd core.Command) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.sendErr != nil {
			return h.sendErr
		}
		h.sent = append(h.sent, cmd)
		return nil
	}).AnyTimes()
	h.ch.EXPECT().Close().DoAndReturn(func() error {
		h.mu.Lock()
		h.closed++
		h.mu.Unlock()
		return nil
	}).AnyTimes()
	h.ch.EXPECT().State().Return(core.ChannelConnected).AnyTimes()

	h.o = New(Deps{
		Channel:   h.ch,
		Snapshots: h.snap,
		Devices:   h.devices,
		Transport: h.transport,
	}, Options{CommandTimeout: time.Minute})
	return h
}

func (h *harness) expectBaseline() {
	h.snap.EXPECT().FetchRoom(gomock.Any(), room).
		Return(domain.Room{ID: room, Title: "Seminar", HostID: "p1", Status: domain.RoomLive}, nil).AnyTimes()
	h.snap.EXPECT().FetchRoster(gomock.Any(), room).DoAndReturn(func(context.Context, domain.RoomID) ([]domain.Participant, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]domain.Participant(nil), h.roster...), nil
	}).AnyTimes()
	h.snap.EXPECT().FetchChatTail(gomock.Any(), room, 50).Return([]domain.ChatMessage{
		{ID: "m1", SenderID: "p2", Body: "hello", Type: domain.MessagePublic},
	}, nil).AnyTimes()
	h.snap.EXPECT().FetchWhiteboard(gomock.Any(), room).Return(domain.WhiteboardSnapshot{SessionID: "wb"}, nil).AnyTimes()
}

func (h *harness) join() {
	h.t.Helper()
	h.expectBaseline()
	h.ch.EXPECT().Connect(gomock.Any(), room, me).Return(nil)
	if err := h.o.Join(context.Background(), room, me); err != nil {
		h.t.Fatalf("Join: %v", err)
	}
}

func (h *harness) emit(typ core.EventType, cid string, payload any) {
	h.t.Helper()
	ev, err := core.NewEvent(typ, cid, payload)
	if err != nil {
		h.t.Fatalf("NewEvent(%s): %v", typ, err)
	}
	h.mu.Lock()
	fn := h.handler
	h.mu.Unlock()
	if fn == nil {
		h.t.Fatalf("no event subscriber for %s", typ)
	}
	fn(ev)
}

func (h *harness) channel(old, next core.ChannelState, attempt int) {
	h.mu.Lock()
	fn := h.state
	h.mu.Unlock()
	if fn != nil {
		fn(core.StateEvent{Old: old, New: next, Attempt: attempt})
	}
}

func (h *harness) sentOf(typ core.CommandType) []core.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []core.Command
	for _, c := range h.sent {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinAppliesBaseline(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee), participant("p3", domain.RoleAttendee))
	h.join()

	if got := h.o.Phase(); got != PhaseSubscribed {
		t.Fatalf("phase = %s", got)
	}
	s := h.o.Session()
	if s.Roster.Len() != 3 {
		t.Fatalf("roster = %d", s.Roster.Len())
	}
	if self, ok := s.Roster.Self(); !ok || self.ID != "p1" {
		t.Fatalf("self = %+v, %v", self, ok)
	}
	if s.Chat.Len() != 1 {
		t.Fatalf("chat = %d", s.Chat.Len())
	}
	if r, _ := s.RoomState.Get(); r.Status != domain.RoomLive || r.Layout != domain.LayoutGallery {
		t.Fatalf("room = %+v", r)
	}
	if err := h.o.Join(context.Background(), room, me); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second join err = %v", err)
	}
}

func TestParticipantLeftReleasesRemoteStreams(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee), participant("p3", domain.RoleAttendee))
	h.join()

	p2 := &fakeRemote{owner: "p2"}
	stranger := &fakeRemote{owner: "p9"}
	h.transport.onRemote(p2)
	h.transport.onRemote(stranger)
	if !stranger.isClosed() {
		t.Fatal("stream of unknown participant kept")
	}

	h.emit(core.EvtParticipantLeft, "", core.ParticipantRefPayload{ID: "p2"})

	s := h.o.Session()
	if s.Roster.Len() != 2 {
		t.Fatalf("roster = %d", s.Roster.Len())
	}
	if !p2.isClosed() {
		t.Fatal("stream of departed participant not closed")
	}
	// a late join for the departed id is ignored
	h.emit(core.EvtParticipantJoined, "", core.ParticipantPayload{Participant: participant("p2", domain.RoleAttendee)})
	if s.Roster.Len() != 2 {
		t.Fatalf("departed participant came back: %d", s.Roster.Len())
	}
}

func TestSnapshotFailureFailsJoin(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("503")
	h.snap.EXPECT().FetchRoom(gomock.Any(), room).Return(domain.Room{ID: room}, nil).AnyTimes()
	h.snap.EXPECT().FetchRoster(gomock.Any(), room).Return(nil, boom)
	h.snap.EXPECT().FetchChatTail(gomock.Any(), room, gomock.Any()).Return(nil, nil).AnyTimes()
	h.snap.EXPECT().FetchWhiteboard(gomock.Any(), room).Return(domain.WhiteboardSnapshot{}, nil).AnyTimes()

	err := h.o.Join(context.Background(), room, me)
	if !errors.Is(err, domain.ErrSnapshotFetchFailed) || !errors.Is(err, boom) {
		t.Fatalf("join err = %v", err)
	}
	if h.o.Phase() != PhaseError {
		t.Fatalf("phase = %s", h.o.Phase())
	}
	if h.o.Status().Error == "" {
		t.Fatal("status carries no error")
	}
}

func TestChatWhileDisconnected(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	if _, err := h.o.SendChat("hi", ""); !errors.Is(err, domain.ErrChannelDisconnected) {
		t.Fatalf("before join err = %v", err)
	}
	h.join()
	h.channel(core.ChannelConnected, core.ChannelReconnecting, 0)

	if _, err := h.o.SendChat("hi", ""); !errors.Is(err, domain.ErrChannelDisconnected) {
		t.Fatalf("reconnecting err = %v", err)
	}
	if n := h.o.Session().Chat.Len(); n != 1 {
		t.Fatalf("chat grew to %d", n)
	}
	if len(h.sentOf(core.CmdSendChat)) != 0 {
		t.Fatal("chat reached the channel")
	}
}

func TestChatEchoResolvesCall(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()

	if _, err := h.o.SendChat("   ", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("blank chat err = %v", err)
	}
	call, err := h.o.SendChat("  question  ", "")
	if err != nil {
		t.Fatal(err)
	}
	sent := h.sentOf(core.CmdSendChat)
	if len(sent) != 1 || sent[0].Payload.(core.SendChatPayload).Content != "question" {
		t.Fatalf("sent = %+v", sent)
	}
	if h.o.Session().Chat.Len() != 1 {
		t.Fatal("chat appended before echo")
	}

	h.emit(core.EvtChatMessage, sent[0].CorrelationID, domain.ChatMessage{ID: "m2", SenderID: "p1", Body: "question"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := call.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if h.o.Session().Chat.Len() != 2 {
		t.Fatal("echo not appended")
	}
}

func TestAttendeeLayoutChangeDenied(t *testing.T) {
	h := newHarness(t, participant("p0", domain.RoleHost), participant("p1", domain.RoleAttendee))
	h.join()

	if _, err := h.o.IssueLayoutChange(domain.LayoutSpeaker); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.o.Remove("p0"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("remove err = %v", err)
	}
	if len(h.sentOf(core.CmdUpdateLayout)) != 0 {
		t.Fatal("layout command sent")
	}

	h.emit(core.EvtRoleChanged, "", core.RoleChangedPayload{ID: "p1", Role: domain.RoleCoHost})
	if _, err := h.o.IssueLayoutChange(domain.LayoutSpeaker); err != nil {
		t.Fatalf("co-host err = %v", err)
	}
	if r, _ := h.o.Session().RoomState.Get(); r.Layout != domain.LayoutGallery {
		t.Fatal("layout applied before confirmation")
	}
	h.emit(core.EvtLayoutUpdated, "", core.LayoutPayload{Layout: domain.LayoutSpeaker})
	if r, _ := h.o.Session().RoomState.Get(); r.Layout != domain.LayoutSpeaker {
		t.Fatalf("layout = %s", r.Layout)
	}
}

func TestCommandErrorRejectsPending(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()

	call, err := h.o.Remove("p2")
	if err != nil {
		t.Fatal(err)
	}
	cid := h.sentOf(core.CmdRemoveParticipant)[0].CorrelationID
	h.emit(core.EvtCommandError, cid, core.CommandErrorPayload{Code: "forbidden", Message: "not the host"})

	_, err = call.Wait(context.Background())
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	if h.o.Session().Roster.Len() != 2 {
		t.Fatal("roster changed on rejected command")
	}
}

func TestReconnectDrainsAndResyncs(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()

	call, err := h.o.RaiseHand(true)
	if err != nil {
		t.Fatal(err)
	}
	h.channel(core.ChannelConnected, core.ChannelReconnecting, 0)
	if _, err := call.Wait(context.Background()); !errors.Is(err, domain.ErrChannelDisconnected) {
		t.Fatalf("pending err = %v", err)
	}
	if !h.o.Status().Reconnecting {
		t.Fatal("status not reconnecting")
	}

	// p2 left while we were away
	h.mu.Lock()
	h.roster = h.roster[:1]
	h.mu.Unlock()
	h.channel(core.ChannelReconnecting, core.ChannelReconnecting, 1)
	h.channel(core.ChannelReconnecting, core.ChannelConnected, 1)

	if h.o.Phase() != PhaseSubscribed || h.o.Status().Reconnecting {
		t.Fatalf("status after resume = %+v", h.o.Status())
	}
	if n := h.o.Session().Roster.Len(); n != 1 {
		t.Fatalf("roster after resync = %d", n)
	}
}

func TestReconnectExhaustedEndsInError(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	h.channel(core.ChannelConnected, core.ChannelReconnecting, 0)
	h.channel(core.ChannelReconnecting, core.ChannelDisconnected, 8)

	if h.o.Phase() != PhaseError {
		t.Fatalf("phase = %s", h.o.Phase())
	}
	// a fresh join is allowed after an error
	h.ch.EXPECT().Connect(gomock.Any(), room, me).Return(nil)
	if err := h.o.Join(context.Background(), room, me); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
}

func TestRoomEndedLeaves(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()
	if err := h.o.EnableMedia(context.Background(), domain.MediaSettings{AudioEnabled: true, VideoEnabled: true}); err != nil {
		t.Fatal(err)
	}
	remote := &fakeRemote{owner: "p2"}
	h.transport.onRemote(remote)

	h.emit(core.EvtRoomEnded, "", nil)

	if h.o.Phase() != PhaseLeft {
		t.Fatalf("phase = %s", h.o.Phase())
	}
	if h.devices.Active() != 0 {
		t.Fatalf("%d captures still open", h.devices.Active())
	}
	if !remote.isClosed() {
		t.Fatal("remote stream left open")
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed == 0 {
		t.Fatal("channel not closed")
	}
}

func TestRemovedSelfLeaves(t *testing.T) {
	h := newHarness(t, participant("p0", domain.RoleHost), participant("p1", domain.RoleAttendee))
	h.join()
	h.emit(core.EvtParticipantRemoved, "", core.ParticipantRefPayload{ID: "p1"})
	if h.o.Phase() != PhaseLeft {
		t.Fatalf("phase = %s", h.o.Phase())
	}
	if len(h.sentOf(core.CmdLeaveRoom)) != 0 {
		t.Fatal("leave-room sent after removal")
	}
}

func TestLeaveAnnouncesAndIsIdempotent(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	h.o.Leave()
	h.o.Leave()
	if got := len(h.sentOf(core.CmdLeaveRoom)); got != 1 {
		t.Fatalf("leave-room sent %d times", got)
	}
	if h.o.Phase() != PhaseLeft {
		t.Fatalf("phase = %s", h.o.Phase())
	}
}

func TestStaleReferenceRefetchesRoster(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()

	h.mu.Lock()
	h.roster = append(h.roster, participant("p9", domain.RoleAttendee))
	h.mu.Unlock()
	h.emit(core.EvtHandToggled, "", core.HandPayload{ParticipantID: "p9", IsRaised: true})

	if _, ok := h.o.Session().Roster.Get("p9"); !ok {
		t.Fatal("roster not refetched")
	}
}

func TestMediaEnableAndMute(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()

	if err := h.o.EnableMedia(context.Background(), domain.MediaSettings{AudioEnabled: true, VideoEnabled: true}); err != nil {
		t.Fatal(err)
	}
	if h.transport.count() != 2 {
		t.Fatalf("published %d tracks", h.transport.count())
	}
	if _, err := h.o.SetMuted(true); err != nil {
		t.Fatal(err)
	}
	sent := h.sentOf(core.CmdUpdateMediaState)
	last := sent[len(sent)-1].Payload.(core.MediaStatePayload)
	if last.IsMuted == nil || !*last.IsMuted || last.ParticipantID != "p1" {
		t.Fatalf("media state = %+v", last)
	}

	if err := h.o.DisableMedia(); err != nil {
		t.Fatal(err)
	}
	if h.transport.count() != 0 || h.devices.Active() != 0 {
		t.Fatalf("published=%d active=%d", h.transport.count(), h.devices.Active())
	}
}

func TestMediaPermissionDenied(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.devices.SetGranted(false)
	h.join()
	err := h.o.EnableMedia(context.Background(), domain.MediaSettings{AudioEnabled: true})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	if h.o.Status().LocalMedia {
		t.Fatal("local media recorded after failure")
	}
}

func TestScreenShareExclusive(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()

	if err := h.o.StartScreenShare(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.emit(core.EvtScreenShareStarted, "", core.ScreenSharePayload{PresenterID: "p1"})
	if !h.o.Status().ScreenShare {
		t.Fatal("no local screen share")
	}

	h.emit(core.EvtScreenShareStarted, "", core.ScreenSharePayload{PresenterID: "p2"})

	s := h.o.Session()
	if id, ok := s.Roster.Presenter(); !ok || id != "p2" {
		t.Fatalf("presenter = %s, %v", id, ok)
	}
	if self, _ := s.Roster.Self(); self.Media.ScreenSharing {
		t.Fatal("self still flagged as presenting")
	}
	if h.o.Status().ScreenShare || h.devices.Active() != 0 {
		t.Fatal("display capture not released")
	}
}

func TestScreenShareEndedByPlatform(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	if err := h.o.StartScreenShare(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.devices.EndDisplayCapture() != 1 {
		t.Fatal("no display capture open")
	}
	eventually(t, "screen share stop", func() bool {
		for _, c := range h.sentOf(core.CmdUpdateMediaState) {
			p := c.Payload.(core.MediaStatePayload)
			if p.IsScreenSharing != nil && !*p.IsScreenSharing {
				return true
			}
		}
		return false
	})
	if h.o.Status().ScreenShare {
		t.Fatal("status still sharing")
	}
}

func TestWhiteboardStrokeBroadcast(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	wb := h.o.Session().Whiteboard

	if err := wb.SetTool(domain.ToolRectangle); err != nil {
		t.Fatal(err)
	}
	wb.BeginStroke(domain.Point{X: 40, Y: 30})
	wb.ExtendStroke(domain.Point{X: 20, Y: 25})
	wb.ExtendStroke(domain.Point{X: 10, Y: 10})
	el, ok := wb.EndStroke()
	if !ok {
		t.Fatal("stroke not committed")
	}

	adds := h.sentOf(core.CmdWhiteboardAdd)
	if len(adds) != 1 {
		t.Fatalf("adds = %d", len(adds))
	}
	got := adds[0].Payload.(core.ElementPayload).Element
	if got.ID != el.ID || got.Tool != domain.ToolRectangle || got.AuthorID != me.UserID {
		t.Fatalf("element = %+v", got)
	}

	// the echo does not duplicate the element
	h.emit(core.EvtElementAdded, adds[0].CorrelationID, core.ElementPayload{Element: got})
	if wb.List().Len() != 1 {
		t.Fatalf("elements = %d", wb.List().Len())
	}

	wb.PointerMove(domain.Point{X: 1, Y: 2})
	if len(h.sentOf(core.CmdCursorMove)) != 1 {
		t.Fatal("cursor not sent")
	}
}

func TestRemoteCursorDroppedOnLeave(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost), participant("p2", domain.RoleAttendee))
	h.join()
	h.emit(core.EvtCursorMoved, "", core.CursorPayload{UserID: "u-p2", X: 3, Y: 4})
	s := h.o.Session()
	if _, ok := s.Cursors.Get("u-p2"); !ok {
		t.Fatal("cursor not tracked")
	}
	h.emit(core.EvtParticipantLeft, "", core.ParticipantRefPayload{ID: "p2"})
	if _, ok := s.Cursors.Get("u-p2"); ok {
		t.Fatal("cursor kept after leave")
	}
}

func TestUnsentWhiteboardResentAfterResync(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	wb := h.o.Session().Whiteboard

	h.channel(core.ChannelConnected, core.ChannelReconnecting, 0)
	wb.BeginStroke(domain.Point{X: 1, Y: 1})
	wb.ExtendStroke(domain.Point{X: 2, Y: 2})
	el, _ := wb.EndStroke()
	if h.o.Unsent() != 1 {
		t.Fatalf("unsent = %d", h.o.Unsent())
	}
	if len(h.sentOf(core.CmdWhiteboardAdd)) != 0 {
		t.Fatal("sent while reconnecting")
	}

	h.channel(core.ChannelReconnecting, core.ChannelConnected, 1)

	adds := h.sentOf(core.CmdWhiteboardAdd)
	if len(adds) != 1 || adds[0].Payload.(core.ElementPayload).Element.ID != el.ID {
		t.Fatalf("re-sent = %+v", adds)
	}
	if _, ok := wb.List().Find(el.ID); !ok {
		t.Fatal("unsent element lost by resync")
	}
	if h.o.Unsent() != 0 {
		t.Fatalf("unsent after resend = %d", h.o.Unsent())
	}
}

func TestInflightWhiteboardRequeuedOnDrop(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	wb := h.o.Session().Whiteboard

	wb.BeginStroke(domain.Point{X: 1, Y: 1})
	wb.ExtendStroke(domain.Point{X: 5, Y: 5})
	wb.EndStroke()
	wb.Clear()
	if len(h.sentOf(core.CmdWhiteboardClear)) != 1 {
		t.Fatal("clear not sent")
	}

	h.channel(core.ChannelConnected, core.ChannelReconnecting, 0)
	// the clear supersedes the add
	if h.o.Unsent() != 1 {
		t.Fatalf("unsent = %d", h.o.Unsent())
	}
	h.channel(core.ChannelReconnecting, core.ChannelConnected, 1)
	if got := len(h.sentOf(core.CmdWhiteboardClear)); got != 2 {
		t.Fatalf("clear sent %d times", got)
	}
}

func TestBackpressureDropsCursorFailsCommands(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	h.mu.Lock()
	h.sendErr = core.ErrBackpressure
	h.mu.Unlock()

	if _, err := h.o.issue(core.CmdCursorMove, core.CursorPayload{X: 1}); err != nil {
		t.Fatalf("cursor err = %v", err)
	}
	if _, err := h.o.SendReaction("clap"); !errors.Is(err, domain.ErrCommandRejected) {
		t.Fatalf("reaction err = %v", err)
	}
	if n := h.o.Session().Pending.Len(); n != 0 {
		t.Fatalf("pending = %d", n)
	}
}

func TestReactionsExpire(t *testing.T) {
	h := newHarness(t, participant("p1", domain.RoleHost))
	h.join()
	h.emit(core.EvtReaction, "", domain.Reaction{ID: "x", Emitter: "p1", Kind: "clap", Timestamp: time.Now()})
	if n := len(h.o.Session().Reactions.Live()); n != 1 {
		t.Fatalf("live = %d", n)
	}
	h.emit(core.EvtChatDeleted, "", core.MessageRefPayload{ID: "m1"})
	if h.o.Session().Chat.Len() != 0 {
		t.Fatal("chat message not deleted")
	}
}
