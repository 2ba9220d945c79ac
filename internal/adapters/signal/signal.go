// Package signal is the Session Channel over a WebSocket connection.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	errNotConnected       = errors.New("channel not connected")
	errConnClosed         = errors.New("connection closed")
	ErrAlreadyConnected   = errors.New("channel already connected")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

type Options struct {
	URL            string
	SendBuffer     int
	WriteTimeout   time.Duration
	PingPeriod     time.Duration
	ReadLimit      int64
	Backoff        Backoff
	CursorInterval time.Duration
	Header         http.Header
}

func (o *Options) defaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.CursorInterval <= 0 {
		o.CursorInterval = 50 * time.Millisecond
	}
	o.Backoff.defaults()
}

// pongWait is how long the reader waits for any frame before it gives up.
func (o Options) pongWait() time.Duration { return o.PingPeriod * 10 / 9 }

// wsConn is one physical connection. A Channel replaces it on reconnect.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

type subscriber struct {
	id int
	fn core.EventHandler
}

type observer struct {
	id int
	fn func(core.StateEvent)
}

// Channel implements core.SessionChannel. It owns one reader goroutine per
// connection, which calls subscribers synchronously in arrival order.
type Channel struct {
	opts   Options
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu      sync.Mutex
	state   core.ChannelState
	conn    *wsConn
	room    domain.RoomID
	who     domain.Identity
	life    context.Context
	cancel  context.CancelFunc
	closing bool

	hmu       sync.RWMutex
	subs      []subscriber
	observers []observer
	nextID    int

	throttle *Throttle
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewChannel(opts Options) *Channel {
	opts.defaults()
	return &Channel{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger:   log.With().Str("module", "signal").Logger(),
		throttle: NewThrottle(1, opts.CursorInterval),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Channel) State() core.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server, announces the join and starts the pumps. The
// initial dial is not retried; reconnects start once a live connection drops.
func (c *Channel) Connect(ctx context.Context, room domain.RoomID, who domain.Identity) error {
	c.mu.Lock()
	switch c.state {
	case core.ChannelConnecting, core.ChannelConnected, core.ChannelReconnecting:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.room, c.who = room, who
	c.life, c.cancel = context.WithCancel(context.Background())
	c.closing = false
	c.mu.Unlock()

	if !c.setState(core.ChannelConnecting, 0, nil) {
		return domain.NewError(domain.KindChannelDisconnected, "channel.connect", errConnClosed)
	}
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(core.ChannelDisconnected, 0, err)
		return domain.NewError(domain.KindChannelDisconnected, "channel.connect", err)
	}
	if err := c.attach(conn); err != nil {
		conn.Close()
		c.setState(core.ChannelDisconnected, 0, err)
		return domain.NewError(domain.KindChannelDisconnected, "channel.connect", err)
	}
	if !c.setState(core.ChannelConnected, 0, nil) {
		conn.Close()
		return domain.NewError(domain.KindChannelDisconnected, "channel.connect", errConnClosed)
	}
	go c.readPump(conn)
	return nil
}

func (c *Channel) dial(ctx context.Context) (*wsConn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse channel url: %w", err)
	}
	c.mu.Lock()
	q := u.Query()
	q.Set("room", string(c.room))
	q.Set("user", string(c.who.UserID))
	c.mu.Unlock()
	u.RawQuery = q.Encode()

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), c.opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Host, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	ws.SetReadLimit(c.opts.ReadLimit)
	return &wsConn{conn: ws, send: make(chan core.Frame, c.opts.SendBuffer)}, nil
}

// attach makes conn current, starts its writer and queues join-room ahead
// of anything else.
func (c *Channel) attach(conn *wsConn) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return errConnClosed
	}
	c.conn = conn
	room, who := c.room, c.who
	c.mu.Unlock()

	go c.writePump(conn)
	join, err := core.EncodeCommand(core.Command{
		Type:    core.CmdJoinRoom,
		Payload: core.JoinRoomPayload{RoomID: room, UserID: who.UserID, DisplayName: who.DisplayName},
	})
	if err != nil {
		return err
	}
	return conn.TrySend(join)
}

// Send queues cmd behind earlier sends. Cursor moves beyond the throttle
// rate are dropped without error.
func (c *Channel) Send(cmd core.Command) error {
	c.mu.Lock()
	conn, st, uid := c.conn, c.state, c.who.UserID
	c.mu.Unlock()
	if st != core.ChannelConnected || conn == nil {
		return domain.NewError(domain.KindChannelDisconnected, string(cmd.Type), errNotConnected)
	}
	if cmd.Type == core.CmdCursorMove && !c.throttle.Allow(uid) {
		return nil
	}
	f, err := core.EncodeCommand(cmd)
	if err != nil {
		return domain.NewError(domain.KindInvalidArgument, string(cmd.Type), err)
	}
	switch err := conn.TrySend(f); {
	case err == nil:
		c.logger.Debug().Str("type", string(cmd.Type)).Str("cid", cmd.CorrelationID).Msg("command queued")
		return nil
	case errors.Is(err, core.ErrBackpressure):
		c.logger.Warn().Str("type", string(cmd.Type)).Msg("send queue full")
		return err
	default:
		return domain.NewError(domain.KindChannelDisconnected, string(cmd.Type), err)
	}
}

func (c *Channel) Subscribe(h core.EventHandler) (unsubscribe func()) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: h})
	return func() {
		c.hmu.Lock()
		defer c.hmu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Channel) OnStateChange(fn func(core.StateEvent)) (unsubscribe func()) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		c.hmu.Lock()
		defer c.hmu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// setState records the transition and tells observers synchronously.
// Once Close has started only Disconnected is accepted; it reports false
// for a refused transition.
func (c *Channel) setState(next core.ChannelState, attempt int, err error) bool {
	c.mu.Lock()
	if c.closing && next != core.ChannelDisconnected {
		c.mu.Unlock()
		return false
	}
	old := c.state
	c.state = next
	c.mu.Unlock()
	if old == next && next != core.ChannelReconnecting {
		return true
	}

	lvl := zerolog.InfoLevel
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	c.logger.WithLevel(lvl).Err(err).Str("from", old.String()).Str("to", next.String()).Int("attempt", attempt).Msg("channel state")

	c.hmu.RLock()
	obs := make([]observer, len(c.observers))
	copy(obs, c.observers)
	c.hmu.RUnlock()
	for _, o := range obs {
		o.fn(core.StateEvent{Old: old, New: next, Attempt: attempt, Err: err})
	}
	return true
}

// Close stops the pumps and any reconnect loop. It does not wait for the
// reader, so a subscriber may call it.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	conn, cancel := c.conn, c.cancel
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
		conn.Close()
	}
	c.setState(core.ChannelDisconnected, 0, nil)
	return nil
}
