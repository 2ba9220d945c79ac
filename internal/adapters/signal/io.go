package signal

import (
	"fmt"
	"time"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/gorilla/websocket"
)

func (c *Channel) writePump(conn *wsConn) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-conn.send:
			if !ok {
				c.logger.Debug().Msg("writePump channel closed")
				return
			}
			if err := conn.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("writePump write error")
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.logger.Warn().Err(err).Msg("writePump ping failed")
				conn.Close()
				return
			}
		}
	}
}

func (c *Channel) readPump(conn *wsConn) {
	var err error
	defer func() { c.dropped(conn, err) }()

	wait := c.opts.pongWait()
	_ = conn.conn.SetReadDeadline(time.Now().Add(wait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		var data []byte
		_, data, err = conn.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(wait))
		c.dispatch(data)
	}
}

// dispatch decodes one frame and hands it to every subscriber in turn.
func (c *Channel) dispatch(data []byte) {
	ev, err := core.DecodeEvent(data)
	if err != nil {
		c.logger.Error().Err(err).Msg("bad frame")
		return
	}
	if ev.Type == core.EvtPong {
		c.logger.Debug().Msg("pong")
		return
	}
	c.logger.Debug().Str("type", string(ev.Type)).Str("cid", ev.CorrelationID).Msg("event")

	c.hmu.RLock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.hmu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}

// dropped runs when the reader of conn exits. Unless the channel is closing
// it starts reconnecting on the reader goroutine.
func (c *Channel) dropped(conn *wsConn, err error) {
	conn.Close()
	c.mu.Lock()
	if c.conn != conn || c.closing {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info().Err(err).Msg("server closed the channel")
	} else {
		c.logger.Warn().Err(err).Msg("channel dropped")
	}
	if c.setState(core.ChannelReconnecting, 0, err) {
		c.reconnect(err)
	}
}

// reconnect redials with exponential backoff. Observers see Connected
// before the new reader starts, so a resync they run cannot interleave with
// live events.
func (c *Channel) reconnect(cause error) {
	c.mu.Lock()
	life := c.life
	c.mu.Unlock()

	last := cause
	for attempt := 1; attempt <= c.opts.Backoff.Attempts; attempt++ {
		if err := c.sleep(life, c.opts.Backoff.Delay(attempt)); err != nil {
			return
		}
		if !c.setState(core.ChannelReconnecting, attempt, last) {
			return
		}
		conn, err := c.dial(life)
		if err != nil {
			last = err
			continue
		}
		if err := c.attach(conn); err != nil {
			conn.Close()
			return
		}
		if !c.setState(core.ChannelConnected, attempt, nil) {
			conn.Close()
			return
		}
		go c.readPump(conn)
		return
	}
	c.setState(core.ChannelDisconnected, c.opts.Backoff.Attempts, fmt.Errorf("%w: %v", ErrReconnectExhausted, last))
}
