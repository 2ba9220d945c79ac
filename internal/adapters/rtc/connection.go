// Package rtc is the media transport: one pion PeerConnection to the SFU
// that publishes local tracks and surfaces remote ones.
package rtc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNotPublished = errors.New("track not published")

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Connection implements core.MediaTransport.
type Connection struct {
	pc     *webrtc.PeerConnection
	self   domain.ParticipantID
	onICE  func(webrtc.ICECandidateInit)
	cancel context.CancelFunc

	mu       sync.Mutex
	senders  map[string]*webrtc.RTPSender
	remotes  map[*RemoteStream]struct{}
	onRemote func(core.RemoteStream)
	onClosed func()
	closed   atomic.Bool
}

func NewConnection(cfg webrtc.Configuration, self domain.ParticipantID) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{
		pc:      pc,
		self:    self,
		senders: make(map[string]*webrtc.RTPSender),
		remotes: make(map[*RemoteStream]struct{}),
	}, nil
}

func (c *Connection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("participant", string(c.self)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("participant", string(c.self)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.mu.Lock()
			fn := c.onClosed
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.addRemote(ctx, track, receiver)
	})

	return nil
}

func (c *Connection) addRemote(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	rs := newRemoteStream(track, receiver)
	rs.onClose = func() {
		c.mu.Lock()
		delete(c.remotes, rs)
		c.mu.Unlock()
	}
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = rs.Close()
		return
	}
	c.remotes[rs] = struct{}{}
	fn := c.onRemote
	c.mu.Unlock()

	go rs.loop(ctx)
	if fn != nil {
		fn(rs)
	}
}

// ApplyOfferAndCreateAnswer answers an SFU offer and waits for ICE gathering.
func (c *Connection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return c.pc.LocalDescription(), nil
}

// Publish adds a local track to the connection. RTCP from the SFU is read
// and discarded so the interceptors keep running.
func (c *Connection) Publish(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.senders[track.ID()] = sender
	c.mu.Unlock()
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	log.Info().Str("module", "webrtc").Str("participant", string(c.self)).Str("track_id", track.ID()).Msg("track published")
	return nil
}

func (c *Connection) Unpublish(track webrtc.TrackLocal) error {
	c.mu.Lock()
	sender, ok := c.senders[track.ID()]
	delete(c.senders, track.ID())
	c.mu.Unlock()
	if !ok {
		return ErrNotPublished
	}
	return c.pc.RemoveTrack(sender)
}

// Published returns how many local tracks are attached.
func (c *Connection) Published() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.senders)
}

func (c *Connection) OnRemoteStream(fn func(core.RemoteStream)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemote = fn
}

func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.onICE = fn
}

// OnClosed sets a callback for a failed or closed peer connection.
func (c *Connection) OnClosed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = fn
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

// Close releases every remote stream, then the peer connection.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	remotes := make([]*RemoteStream, 0, len(c.remotes))
	for rs := range c.remotes {
		remotes = append(remotes, rs)
	}
	c.mu.Unlock()
	for _, rs := range remotes {
		_ = rs.Close()
	}

	err := c.pc.Close()
	if err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("participant", string(c.self)).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("participant", string(c.self)).Msg("closed")
	}
	return err
}

// RemoteStream is one track received from another participant. The SFU
// labels each stream with the publishing participant's id.
type RemoteStream struct {
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
	kind     domain.TrackKind
	owner    domain.ParticipantID

	packets atomic.Uint64
	seq     seqTracker
	once    sync.Once
	onClose func()
}

func newRemoteStream(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) *RemoteStream {
	return &RemoteStream{
		track:    track,
		receiver: receiver,
		kind:     kindOf(track.Kind(), track.ID()),
		owner:    domain.ParticipantID(track.StreamID()),
	}
}

// kindOf maps a pion codec type and track id onto a track kind. Screen
// tracks carry a "screen" id prefix.
func kindOf(t webrtc.RTPCodecType, id string) domain.TrackKind {
	if t == webrtc.RTPCodecTypeAudio {
		return domain.TrackAudio
	}
	if strings.HasPrefix(id, string(domain.TrackScreen)) {
		return domain.TrackScreen
	}
	return domain.TrackVideo
}

func (r *RemoteStream) ParticipantID() domain.ParticipantID { return r.owner }
func (r *RemoteStream) Kind() domain.TrackKind              { return r.kind }
func (r *RemoteStream) Packets() uint64                     { return r.packets.Load() }
func (r *RemoteStream) Lost() uint64                        { return r.seq.lost.Load() }

// loop drains RTP until the track ends or the stream is closed.
func (r *RemoteStream) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, _, err := r.track.ReadRTP()
		if err != nil {
			log.Debug().Err(err).Str("module", "webrtc").Str("participant", string(r.owner)).
				Uint64("packets", r.Packets()).Uint64("lost", r.Lost()).Msg("remote track ended")
			_ = r.Close()
			return
		}
		r.packets.Add(1)
		r.seq.observe(pkt)
	}
}

// seqTracker counts RTP sequence gaps. Only the read loop calls observe.
type seqTracker struct {
	started bool
	last    uint16
	lost    atomic.Uint64
}

func (s *seqTracker) observe(pkt *rtp.Packet) {
	if !s.started {
		s.started = true
		s.last = pkt.SequenceNumber
		return
	}
	gap := pkt.SequenceNumber - s.last
	// duplicate or late packet
	if gap == 0 || gap >= 0x8000 {
		return
	}
	s.lost.Add(uint64(gap - 1))
	s.last = pkt.SequenceNumber
}

func (r *RemoteStream) Close() error {
	var err error
	r.once.Do(func() {
		if r.receiver != nil {
			err = r.receiver.Stop()
		}
		if r.onClose != nil {
			r.onClose()
		}
	})
	return err
}
