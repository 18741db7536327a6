package ws

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/novarelay/tunrelay/utils"
)

// PingInterval is how often a server-side Conn pings the client to keep
// intermediate proxies and idle-timeout middleboxes from dropping the
// connection. Pongs are not waited on.
const PingInterval = 30 * time.Second

// Conn wraps a raw net.Conn that has completed the WebSocket handshake
// and speaks binary frames: each Read returns bytes from one binary
// message, each Write sends one binary message.
//
// gobwas/ws doesn't wrap the connection itself, so reading/writing
// binary frames needs the lower-level wsutil helpers; this type gives
// callers a plain Read/Write like any other net.Conn.
type Conn struct {
	net.Conn

	state ws.State
	r     *wsutil.Reader

	remainLenForLastFrame int64

	serverEndGotEarlyData []byte

	pingOnce sync.Once
	closeCh  chan struct{}
}

// StartPing launches the server-side keepalive ping loop. Safe to call
// multiple times; only the first call has effect.
func (c *Conn) StartPing() {
	if c.state != ws.StateServerSide {
		return
	}
	c.pingOnce.Do(func() {
		c.closeCh = make(chan struct{})
		go c.pingLoop()
	})
}

func (c *Conn) pingLoop() {
	t := time.NewTicker(PingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := wsutil.WriteServerMessage(c.Conn, ws.OpPing, nil); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) Close() error {
	if c.closeCh != nil {
		select {
		case <-c.closeCh:
		default:
			close(c.closeCh)
		}
	}
	return c.Conn.Close()
}

// Read returns bytes from the next binary frame, reassembling
// fragmented frames transparently. A single oversized frame (websocket
// allows up to 2^64 bytes) is read out incrementally rather than
// buffered whole, since relaying must bound memory to chunk size.
func (c *Conn) Read(p []byte) (int, error) {
	if len(c.serverEndGotEarlyData) > 0 {
		n := copy(p, c.serverEndGotEarlyData)
		c.serverEndGotEarlyData = c.serverEndGotEarlyData[n:]
		return n, nil
	}

	if c.remainLenForLastFrame > 0 {
		n, e := c.r.Read(p)
		if e != nil && e != io.EOF {
			return n, e
		}
		c.remainLenForLastFrame -= int64(n)
		return n, nil
	}

	h, e := c.r.NextFrame()
	if e != nil {
		return 0, e
	}
	if h.OpCode.IsControl() {
		return c.Read(p)
	}
	if h.OpCode != ws.OpBinary && h.OpCode != ws.OpContinuation {
		return 0, utils.ErrInErr{ErrDesc: "ws OpCode not OpBinary/OpContinuation", Data: h.OpCode}
	}

	c.remainLenForLastFrame = h.Length

	n, e := c.r.Read(p)
	c.remainLenForLastFrame -= int64(n)
	if e != nil && e != io.EOF {
		return n, e
	}
	return n, nil
}

// Write sends p as a single unfragmented binary message.
func (c *Conn) Write(p []byte) (n int, e error) {
	if c.state == ws.StateClientSide {
		e = wsutil.WriteClientBinary(c.Conn, p)
	} else {
		e = wsutil.WriteServerBinary(c.Conn, p)
	}
	if e == nil {
		n = len(p)
	}
	return
}
